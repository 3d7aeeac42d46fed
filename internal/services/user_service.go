package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"investment-bot/internal/models"
	"investment-bot/internal/notify"
	"investment-bot/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minWalletLength = 20

// Registration is the profile captured when a user finishes onboarding
type Registration struct {
	UserID        int64
	FullName      string
	Language      string
	Email         *string
	Phone         *string
	WalletAddress string
	ReferrerID    *int64
}

// UserService handles user-related business logic
type UserService struct {
	repo      *repository.Repository
	referrals *ReferralService
	notifier  notify.Notifier
	logger    *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	repo *repository.Repository,
	referrals *ReferralService,
	notifier notify.Notifier,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		repo:      repo,
		referrals: referrals,
		notifier:  notifier,
		logger:    logger.Named("users"),
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistenceErr("load user", err)
	}
	return user, nil
}

// EnsureUser creates a bare user row on first contact
func (s *UserService) EnsureUser(ctx context.Context, userID int64, fullName string) (*models.User, error) {
	if err := s.repo.EnsureUser(ctx, &models.User{ID: userID, FullName: fullName, Language: "en"}); err != nil {
		return nil, persistenceErr("create user", err)
	}
	return s.GetUserByID(ctx, userID)
}

// ValidateWalletAddress checks the payout address shape
func ValidateWalletAddress(address string) error {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") || len(address) < minWalletLength {
		return &ValidationError{Field: "wallet", Reason: "expected an address starting with 0x"}
	}
	return nil
}

// CompleteRegistration stores the profile, allocates an invite code and
// attributes the user to their inviter when they arrived through one.
func (s *UserService) CompleteRegistration(ctx context.Context, reg Registration) (*models.User, error) {
	if err := ValidateWalletAddress(reg.WalletAddress); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reg.FullName) == "" {
		return nil, &ValidationError{Field: "full_name", Reason: "required"}
	}
	language := reg.Language
	if language == "" {
		language = "en"
	}

	user, err := s.EnsureUser(ctx, reg.UserID, reg.FullName)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"full_name":      strings.TrimSpace(reg.FullName),
		"language":       language,
		"wallet_address": strings.TrimSpace(reg.WalletAddress),
	}
	if reg.Email != nil {
		fields["email"] = *reg.Email
	}
	if reg.Phone != nil {
		fields["phone"] = *reg.Phone
	}
	firstCompletion := user.RegisteredAt == nil
	if firstCompletion {
		fields["registered_at"] = time.Now()
	}
	if err := s.repo.UpdateUserFields(ctx, reg.UserID, fields); err != nil {
		return nil, persistenceErr("update user", err)
	}

	if _, err := s.referrals.GenerateCode(ctx, reg.UserID); err != nil {
		s.logger.Warn("invite code not generated", zap.Int64("user_id", reg.UserID), zap.Error(err))
	}

	if firstCompletion && reg.ReferrerID != nil {
		registered, err := s.referrals.Register(ctx, *reg.ReferrerID, reg.UserID)
		if err != nil {
			s.logger.Warn("referral not recorded", zap.Int64("user_id", reg.UserID), zap.Error(err))
		}
		if registered {
			s.notifier.Notify(ctx, *reg.ReferrerID, notify.Payload{
				Kind:     notify.KindReferralJoined,
				UserID:   reg.UserID,
				UserName: strings.TrimSpace(reg.FullName),
			})
		}
	}

	return s.GetUserByID(ctx, reg.UserID)
}
