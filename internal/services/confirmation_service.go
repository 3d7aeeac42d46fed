package services

import (
	"context"
	"errors"
	"time"

	"investment-bot/internal/models"
	"investment-bot/internal/monitoring"
	"investment-bot/internal/notify"
	"investment-bot/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outcome tells an admin whether their decision changed anything
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoop    Outcome = "noop"
)

// ConfirmationResult is returned by Confirm and Reject. A noop means the
// investment had already left pending; Investment shows its current state.
type ConfirmationResult struct {
	Outcome    Outcome            `json:"outcome"`
	Investment *models.Investment `json:"investment"`
}

// ConfirmationService is the only writer that moves an investment out of
// pending.
type ConfirmationService struct {
	repo     *repository.Repository
	authz    Authorizer
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewConfirmationService(
	repo *repository.Repository,
	authz Authorizer,
	notifier notify.Notifier,
	logger *zap.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		repo:     repo,
		authz:    authz,
		notifier: notifier,
		logger:   logger.Named("confirmation"),
		now:      time.Now,
	}
}

// Confirm activates a pending investment and stamps its start date
func (s *ConfirmationService) Confirm(ctx context.Context, investmentID uint, adminID int64) (ConfirmationResult, error) {
	return s.decide(ctx, investmentID, adminID, models.InvestmentActive)
}

// Reject moves a pending investment to rejected
func (s *ConfirmationService) Reject(ctx context.Context, investmentID uint, adminID int64) (ConfirmationResult, error) {
	return s.decide(ctx, investmentID, adminID, models.InvestmentRejected)
}

func (s *ConfirmationService) decide(
	ctx context.Context,
	investmentID uint,
	adminID int64,
	to models.InvestmentStatus,
) (ConfirmationResult, error) {
	decision := string(to)
	if !s.authz.IsAdministrator(adminID) {
		s.logger.Warn("unauthorized decision attempt",
			zap.Int64("admin_id", adminID),
			zap.Uint("investment_id", investmentID),
			zap.String("decision", decision))
		monitoring.InvestmentDecisions.WithLabelValues(decision, "denied").Inc()
		return ConfirmationResult{}, ErrNotAuthorized
	}

	inv, err := s.load(ctx, investmentID)
	if err != nil {
		return ConfirmationResult{}, err
	}
	if inv.Status != models.InvestmentPending {
		monitoring.InvestmentDecisions.WithLabelValues(decision, string(OutcomeNoop)).Inc()
		return ConfirmationResult{Outcome: OutcomeNoop, Investment: inv}, nil
	}

	now := s.now()
	fields := map[string]interface{}{"decided_at": now}
	action := models.ActionRejectInvestment
	if to == models.InvestmentActive {
		fields["start_date"] = now
		fields["confirmed_by"] = adminID
		action = models.ActionConfirmInvestment
	}

	var applied bool
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		applied, err = tx.TransitionInvestment(ctx, investmentID, models.InvestmentPending, to, fields)
		if err != nil || !applied {
			return err
		}
		if to == models.InvestmentActive {
			if err := tx.AddTotalInvested(ctx, inv.UserID, inv.Amount); err != nil {
				return err
			}
		}
		resourceID := int64(investmentID)
		return tx.CreateAdminLog(ctx, &models.AdminLog{
			AdminID:      adminID,
			Action:       action,
			ResourceType: "INVESTMENT",
			ResourceID:   &resourceID,
			Details: models.JSONB{
				"user_id": inv.UserID,
				"amount":  inv.Amount.String(),
			},
		})
	})
	if err != nil {
		s.logger.Error("failed to apply decision",
			zap.Uint("investment_id", investmentID),
			zap.String("decision", decision),
			zap.Error(err))
		return ConfirmationResult{}, persistenceErr("update investment", err)
	}

	current, err := s.load(ctx, investmentID)
	if err != nil {
		return ConfirmationResult{}, err
	}

	if !applied {
		// another admin won the race
		monitoring.InvestmentDecisions.WithLabelValues(decision, string(OutcomeNoop)).Inc()
		return ConfirmationResult{Outcome: OutcomeNoop, Investment: current}, nil
	}

	monitoring.InvestmentDecisions.WithLabelValues(decision, string(OutcomeApplied)).Inc()
	s.logger.Info("investment decided",
		zap.Uint("investment_id", investmentID),
		zap.Int64("admin_id", adminID),
		zap.String("status", string(current.Status)))

	kind := notify.KindInvestmentRejected
	if to == models.InvestmentActive {
		kind = notify.KindInvestmentConfirmed
	}
	s.notifier.Notify(ctx, current.UserID, notify.Payload{
		Kind:          kind,
		InvestmentID:  current.ID,
		UserID:        current.UserID,
		Amount:        current.Amount,
		AnnualRate:    current.AnnualRate,
		MonthlyRate:   current.MonthlyRate,
		MonthlyProfit: MonthlyProfit(current.Amount, current.MonthlyRate),
		StartDate:     current.StartDate,
	})

	return ConfirmationResult{Outcome: OutcomeApplied, Investment: current}, nil
}

func (s *ConfirmationService) load(ctx context.Context, id uint) (*models.Investment, error) {
	inv, err := s.repo.GetInvestmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, persistenceErr("load investment", err)
	}
	return inv, nil
}
