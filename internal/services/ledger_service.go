package services

import (
	"context"
	"errors"
	"strings"

	"investment-bot/internal/models"
	"investment-bot/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerSummary is what a user sees under "balance and profit"
type LedgerSummary struct {
	Balance            decimal.Decimal `json:"balance"`
	ActivePrincipal    decimal.Decimal `json:"active_principal"`
	MonthlyEntitlement decimal.Decimal `json:"monthly_entitlement"`
	DailyEquivalent    decimal.Decimal `json:"daily_equivalent"`
	ActiveCount        int             `json:"active_count"`
}

// LedgerService computes entitlements at read time from active investments.
// Stored balances change only through AdjustBalance.
type LedgerService struct {
	repo   *repository.Repository
	authz  Authorizer
	admin  *AdminService
	logger *zap.Logger
}

func NewLedgerService(repo *repository.Repository, authz Authorizer, admin *AdminService, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		repo:   repo,
		authz:  authz,
		admin:  admin,
		logger: logger.Named("ledger"),
	}
}

type totals struct {
	principal decimal.Decimal
	monthly   decimal.Decimal
	count     int
}

func (s *LedgerService) activeTotals(ctx context.Context, userID int64) (totals, error) {
	active, err := s.repo.ListInvestmentsByUser(ctx, userID, models.InvestmentActive)
	if err != nil {
		return totals{}, persistenceErr("load active investments", err)
	}
	return sumInvestments(active), nil
}

func sumInvestments(investments []models.Investment) totals {
	t := totals{principal: decimal.Zero, monthly: decimal.Zero}
	for _, inv := range investments {
		t.principal = t.principal.Add(inv.Amount)
		t.monthly = t.monthly.Add(MonthlyProfit(inv.Amount, inv.MonthlyRate))
		t.count++
	}
	return t
}

// TotalActivePrincipal sums the amounts of the user's active investments
func (s *LedgerService) TotalActivePrincipal(ctx context.Context, userID int64) (decimal.Decimal, error) {
	t, err := s.activeTotals(ctx, userID)
	return t.principal, err
}

// TotalMonthlyEntitlement sums monthly profit over the user's active investments
func (s *LedgerService) TotalMonthlyEntitlement(ctx context.Context, userID int64) (decimal.Decimal, error) {
	t, err := s.activeTotals(ctx, userID)
	return t.monthly, err
}

// DailyEquivalent is the monthly entitlement over 30 days
func (s *LedgerService) DailyEquivalent(ctx context.Context, userID int64) (decimal.Decimal, error) {
	t, err := s.activeTotals(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return DailyEquivalent(t.monthly), nil
}

// Summary combines the stored balance with the derived entitlement
func (s *LedgerService) Summary(ctx context.Context, userID int64) (*LedgerSummary, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceErr("load user", err)
	}

	t, err := s.activeTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &LedgerSummary{
		Balance:            user.Balance,
		ActivePrincipal:    t.principal,
		MonthlyEntitlement: t.monthly,
		DailyEquivalent:    DailyEquivalent(t.monthly),
		ActiveCount:        t.count,
	}, nil
}

// ParseBalanceOp accepts add, subtract or set
func ParseBalanceOp(raw string) (repository.BalanceOp, error) {
	switch op := repository.BalanceOp(strings.ToLower(strings.TrimSpace(raw))); op {
	case repository.BalanceAdd, repository.BalanceSubtract, repository.BalanceSet:
		return op, nil
	}
	return "", &ValidationError{Field: "operation", Reason: "must be add, subtract or set"}
}

// AdjustBalance applies a manual correction to a user's stored balance and
// returns the new balance.
func (s *LedgerService) AdjustBalance(
	ctx context.Context,
	adminID, userID int64,
	amount decimal.Decimal,
	op repository.BalanceOp,
) (decimal.Decimal, error) {
	if !s.authz.IsAdministrator(adminID) {
		s.logger.Warn("unauthorized balance adjustment", zap.Int64("admin_id", adminID), zap.Int64("user_id", userID))
		return decimal.Zero, ErrNotAuthorized
	}
	if _, err := ParseBalanceOp(string(op)); err != nil {
		return decimal.Zero, err
	}
	if amount.IsNegative() || (op != repository.BalanceSet && amount.IsZero()) {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if err := ValidateAmount("amount", amount); err != nil {
		return decimal.Zero, err
	}

	balance, err := s.repo.AdjustBalance(ctx, userID, op, amount)
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return balance, &ValidationError{Field: "amount", Reason: "balance would become negative"}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return decimal.Zero, ErrUserNotFound
	case err != nil:
		s.logger.Error("balance adjustment failed", zap.Int64("user_id", userID), zap.Error(err))
		return decimal.Zero, persistenceErr("adjust balance", err)
	}

	resourceID := userID
	s.admin.LogAdminAction(ctx, adminID, models.ActionAdjustBalance, "USER", &resourceID, map[string]interface{}{
		"operation": string(op),
		"amount":    amount.String(),
		"balance":   balance.String(),
	})

	s.logger.Info("balance adjusted",
		zap.Int64("admin_id", adminID),
		zap.Int64("user_id", userID),
		zap.String("operation", string(op)),
		zap.String("balance", balance.String()))
	return balance, nil
}
