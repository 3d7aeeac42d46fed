package repository

import (
	"context"
	"errors"
	"time"

	"investment-bot/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceOp is a manual balance adjustment operation
type BalanceOp string

const (
	BalanceAdd      BalanceOp = "add"
	BalanceSubtract BalanceOp = "subtract"
	BalanceSet      BalanceOp = "set"
)

// ErrInsufficientBalance is returned when a subtraction would go negative
var ErrInsufficientBalance = errors.New("insufficient balance")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to a single DB transaction
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// CreateInvestment persists a new investment
func (r *Repository) CreateInvestment(ctx context.Context, inv *models.Investment) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

// GetInvestmentByID retrieves an investment by ID
func (r *Repository) GetInvestmentByID(ctx context.Context, id uint) (*models.Investment, error) {
	var inv models.Investment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// TransitionInvestment moves an investment out of status from, only if it is
// still in that status. It reports whether this call performed the transition.
func (r *Repository) TransitionInvestment(
	ctx context.Context,
	id uint,
	from, to models.InvestmentStatus,
	fields map[string]interface{},
) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&models.Investment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListInvestmentsByUser returns a user's investments, newest first. With no
// statuses given every investment is returned.
func (r *Repository) ListInvestmentsByUser(
	ctx context.Context,
	userID int64,
	statuses ...models.InvestmentStatus,
) ([]models.Investment, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var investments []models.Investment
	if err := query.Order("created_at DESC, id DESC").Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}

// ListInvestmentsByStatus returns investments in a status, oldest first
func (r *Repository) ListInvestmentsByStatus(
	ctx context.Context,
	status models.InvestmentStatus,
	limit int,
) ([]models.Investment, error) {
	query := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var investments []models.Investment
	if err := query.Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}

// CountInvestments counts investments, optionally filtered by status
func (r *Repository) CountInvestments(ctx context.Context, status models.InvestmentStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Investment{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// GetUserByID retrieves a user by telegram id
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureUser inserts the user if missing and leaves an existing row untouched
func (r *Repository) EnsureUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(user).Error
}

// UpdateUserFields updates the given columns on a user
func (r *Repository) UpdateUserFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// InviteCodeExists reports whether any user holds code
func (r *Repository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("invite_code = ?", code).Count(&count).Error
	return count > 0, err
}

// AssignInviteCode stores code for the user unless one is already assigned.
// A code held by another user fails with gorm.ErrDuplicatedKey.
func (r *Repository) AssignInviteCode(ctx context.Context, userID int64, code string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND (invite_code IS NULL OR invite_code = '')", userID).
		Update("invite_code", code)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetUserByInviteCode resolves an invite code to its owner
func (r *Repository) GetUserByInviteCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateReferral inserts a referral. A second referral for the same invited
// user fails with gorm.ErrDuplicatedKey.
func (r *Repository) CreateReferral(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

// SetReferrer sets the inviter pointer if it has never been set
func (r *Repository) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND referrer_id IS NULL", userID).
		Update("referrer_id", referrerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetReferralByReferred returns the attribution for an invited user
func (r *Repository) GetReferralByReferred(ctx context.Context, referredID int64) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.WithContext(ctx).Where("referred_user_id = ?", referredID).First(&referral).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}

// ReferralStats aggregates the invited users of referrerID
func (r *Repository) ReferralStats(ctx context.Context, referrerID int64) (*models.ReferralStats, error) {
	stats := &models.ReferralStats{TotalInvested: decimal.Zero}

	if err := r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_id = ?", referrerID).
		Count(&stats.TotalReferrals).Error; err != nil {
		return nil, err
	}

	invited := r.db.Model(&models.Referral{}).Select("referred_user_id").Where("referrer_id = ?", referrerID)

	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN (?) AND total_invested > 0", invited).
		Count(&stats.ActiveReferrals).Error; err != nil {
		return nil, err
	}

	var total decimal.NullDecimal
	row := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN (?)", invited).
		Select("COALESCE(SUM(total_invested), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return nil, err
	}
	if total.Valid {
		stats.TotalInvested = total.Decimal
	}

	return stats, nil
}

// AddTotalInvested increments the user's cumulative invested amount
func (r *Repository) AddTotalInvested(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("total_invested", gorm.Expr("total_invested + ?", amount)).Error
}

// AdjustBalance applies op to the user's stored balance and returns the result
func (r *Repository) AdjustBalance(
	ctx context.Context,
	userID int64,
	op BalanceOp,
	amount decimal.Decimal,
) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID)

	var result *gorm.DB
	switch op {
	case BalanceAdd:
		result = query.Update("balance", gorm.Expr("balance + ?", amount))
	case BalanceSubtract:
		result = query.Where("balance >= ?", amount).Update("balance", gorm.Expr("balance - ?", amount))
	case BalanceSet:
		result = query.Update("balance", amount)
	default:
		return decimal.Zero, errors.New("unknown balance operation")
	}
	if result.Error != nil {
		return decimal.Zero, result.Error
	}

	if result.RowsAffected == 0 {
		user, err := r.GetUserByID(ctx, userID)
		if err != nil {
			return decimal.Zero, err
		}
		if op == BalanceSubtract {
			return user.Balance, ErrInsufficientBalance
		}
		return user.Balance, nil
	}

	user, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// CountUsers counts users, optionally only registered ones
func (r *Repository) CountUsers(ctx context.Context, registeredOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if registeredOnly {
		query = query.Where("registered_at IS NOT NULL")
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

// CountReferrals counts all attributions
func (r *Repository) CountReferrals(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Referral{}).Count(&count).Error
	return count, err
}

// SumBalances totals every stored user balance
func (r *Repository) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	row := r.db.WithContext(ctx).Model(&models.User{}).Select("COALESCE(SUM(balance), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// CreateAdminLog records an admin action
func (r *Repository) CreateAdminLog(ctx context.Context, entry *models.AdminLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListAdminLogs returns the most recent audit entries
func (r *Repository) ListAdminLogs(ctx context.Context, limit int) ([]models.AdminLog, error) {
	var logs []models.AdminLog
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
