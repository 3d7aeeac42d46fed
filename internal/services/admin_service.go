package services

import (
	"context"
	"time"

	"investment-bot/internal/models"
	"investment-bot/internal/repository"

	"go.uber.org/zap"
)

type AdminService struct {
	repo   *repository.Repository
	authz  Authorizer
	logger *zap.Logger
}

func NewAdminService(repo *repository.Repository, authz Authorizer, logger *zap.Logger) *AdminService {
	return &AdminService{
		repo:   repo,
		authz:  authz,
		logger: logger.Named("admin"),
	}
}

// IsAdmin checks if a user is an admin
func (s *AdminService) IsAdmin(userID int64) bool {
	return s.authz.IsAdministrator(userID)
}

// LogAdminAction records an admin action. Failures are logged only.
func (s *AdminService) LogAdminAction(
	ctx context.Context,
	adminID int64,
	action, resourceType string,
	resourceID *int64,
	details map[string]interface{},
) {
	entry := models.AdminLog{
		AdminID:      adminID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      models.JSONB(details),
	}
	if err := s.repo.CreateAdminLog(ctx, &entry); err != nil {
		s.logger.Error("failed to log admin action", zap.String("action", action), zap.Error(err))
	}
}

// RecentLogs returns the latest audit entries
func (s *AdminService) RecentLogs(ctx context.Context, adminID int64, limit int) ([]models.AdminLog, error) {
	if !s.authz.IsAdministrator(adminID) {
		return nil, ErrNotAuthorized
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.repo.ListAdminLogs(ctx, limit)
	if err != nil {
		return nil, persistenceErr("list admin logs", err)
	}
	return logs, nil
}

// SystemStatistics builds the admin dashboard snapshot
func (s *AdminService) SystemStatistics(ctx context.Context, adminID int64) (*models.SystemStatistics, error) {
	if !s.authz.IsAdministrator(adminID) {
		return nil, ErrNotAuthorized
	}

	stats := &models.SystemStatistics{GeneratedAt: time.Now()}
	var err error

	if stats.TotalUsers, err = s.repo.CountUsers(ctx, false); err != nil {
		return nil, persistenceErr("count users", err)
	}
	if stats.RegisteredUsers, err = s.repo.CountUsers(ctx, true); err != nil {
		return nil, persistenceErr("count users", err)
	}
	if stats.TotalInvestments, err = s.repo.CountInvestments(ctx, ""); err != nil {
		return nil, persistenceErr("count investments", err)
	}
	if stats.PendingInvestments, err = s.repo.CountInvestments(ctx, models.InvestmentPending); err != nil {
		return nil, persistenceErr("count investments", err)
	}
	if stats.RejectedInvestments, err = s.repo.CountInvestments(ctx, models.InvestmentRejected); err != nil {
		return nil, persistenceErr("count investments", err)
	}
	if stats.TotalReferrals, err = s.repo.CountReferrals(ctx); err != nil {
		return nil, persistenceErr("count referrals", err)
	}
	if stats.TotalBalances, err = s.repo.SumBalances(ctx); err != nil {
		return nil, persistenceErr("sum balances", err)
	}

	active, err := s.repo.ListInvestmentsByStatus(ctx, models.InvestmentActive, 0)
	if err != nil {
		return nil, persistenceErr("load active investments", err)
	}
	t := sumInvestments(active)
	stats.ActiveInvestments = int64(t.count)
	stats.ActivePrincipal = t.principal
	stats.MonthlyEntitlement = t.monthly

	return stats, nil
}
