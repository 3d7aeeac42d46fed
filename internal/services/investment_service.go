package services

import (
	"context"
	"errors"

	"investment-bot/internal/models"
	"investment-bot/internal/monitoring"
	"investment-bot/internal/notify"
	"investment-bot/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InvestmentService creates pending investments and reads them back
type InvestmentService struct {
	repo     *repository.Repository
	admins   AdminDirectory
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewInvestmentService(
	repo *repository.Repository,
	admins AdminDirectory,
	notifier notify.Notifier,
	logger *zap.Logger,
) *InvestmentService {
	return &InvestmentService{
		repo:     repo,
		admins:   admins,
		notifier: notifier,
		logger:   logger.Named("investments"),
	}
}

// Submit persists a pending investment for quote and evidence, then tells
// every administrator about it.
func (s *InvestmentService) Submit(ctx context.Context, userID int64, quote Quote, evidence Evidence) (*models.Investment, error) {
	annual, err := AnnualRate(quote.Amount)
	if err != nil {
		return nil, err
	}
	if !annual.Equal(quote.AnnualRate) || !quote.MonthlyRate.Equal(MonthlyRate(annual)) {
		return nil, &ValidationError{Field: "quote", Reason: "rates do not match the amount"}
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceErr("load user", err)
	}

	inv := &models.Investment{
		UserID:          userID,
		Amount:          quote.Amount,
		AnnualRate:      quote.AnnualRate,
		MonthlyRate:     quote.MonthlyRate,
		Status:          models.InvestmentPending,
		EvidenceContent: evidence.Content,
		EvidenceKind:    evidence.Kind,
	}
	if err := s.repo.CreateInvestment(ctx, inv); err != nil {
		s.logger.Error("failed to create investment", zap.Int64("user_id", userID), zap.Error(err))
		return nil, persistenceErr("create investment", err)
	}
	monitoring.InvestmentsSubmitted.Inc()

	s.logger.Info("investment submitted",
		zap.Uint("investment_id", inv.ID),
		zap.Int64("user_id", userID),
		zap.String("amount", inv.Amount.String()))

	payload := notify.Payload{
		Kind:            notify.KindInvestmentSubmitted,
		InvestmentID:    inv.ID,
		UserID:          userID,
		UserName:        user.FullName,
		Amount:          inv.Amount,
		AnnualRate:      inv.AnnualRate,
		MonthlyRate:     inv.MonthlyRate,
		MonthlyProfit:   quote.MonthlyProfit,
		WalletExcerpt:   notify.MaskWallet(user.WalletAddress),
		EvidenceKind:    string(evidence.Kind),
		EvidenceDisplay: evidence.Display(),
		Directives:      notify.DecisionDirectives(inv.ID, userID),
		CreatedAt:       inv.CreatedAt,
	}
	for _, adminID := range s.admins.Administrators() {
		s.notifier.Notify(ctx, adminID, payload)
	}

	return inv, nil
}

// Get loads one investment
func (s *InvestmentService) Get(ctx context.Context, id uint) (*models.Investment, error) {
	inv, err := s.repo.GetInvestmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, persistenceErr("load investment", err)
	}
	return inv, nil
}

// ListForUser returns a user's investments, newest first
func (s *InvestmentService) ListForUser(ctx context.Context, userID int64) ([]models.Investment, error) {
	investments, err := s.repo.ListInvestmentsByUser(ctx, userID)
	if err != nil {
		return nil, persistenceErr("list investments", err)
	}
	return investments, nil
}

// ListPending returns investments awaiting a decision, oldest first
func (s *InvestmentService) ListPending(ctx context.Context, limit int) ([]models.Investment, error) {
	investments, err := s.repo.ListInvestmentsByStatus(ctx, models.InvestmentPending, limit)
	if err != nil {
		return nil, persistenceErr("list pending investments", err)
	}
	return investments, nil
}
