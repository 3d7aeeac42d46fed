package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"investment-bot/internal/models"
	"investment-bot/internal/monitoring"
	"investment-bot/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	inviteCodePrefix   = "RAMO"
	inviteSuffixLength = 6
	inviteAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts    = 10
)

type ReferralService struct {
	repo   *repository.Repository
	logger *zap.Logger
	suffix func(n int) (string, error)
}

func NewReferralService(repo *repository.Repository, logger *zap.Logger) *ReferralService {
	return &ReferralService{
		repo:   repo,
		logger: logger.Named("referral"),
		suffix: randomSuffix,
	}
}

// randomSuffix draws n characters from inviteAlphabet
func randomSuffix(n int) (string, error) {
	max := big.NewInt(int64(len(inviteAlphabet)))
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(inviteAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// GenerateCode returns the user's invite code, allocating one on first use.
// The unique index on invite_code settles concurrent allocations.
func (s *ReferralService) GenerateCode(ctx context.Context, userID int64) (string, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", persistenceErr("load user", err)
	}
	if user.InviteCode != nil && *user.InviteCode != "" {
		return *user.InviteCode, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		suffix, err := s.suffix(inviteSuffixLength)
		if err != nil {
			return "", fmt.Errorf("failed to draw invite code: %w", err)
		}
		code := fmt.Sprintf("%s%d%s", inviteCodePrefix, userID, suffix)

		taken, err := s.repo.InviteCodeExists(ctx, code)
		if err != nil {
			return "", persistenceErr("check invite code", err)
		}
		if taken {
			continue
		}

		assigned, err := s.repo.AssignInviteCode(ctx, userID, code)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		if err != nil {
			return "", persistenceErr("assign invite code", err)
		}
		if !assigned {
			// a concurrent call for the same user got there first
			current, err := s.repo.GetUserByID(ctx, userID)
			if err != nil {
				return "", persistenceErr("load user", err)
			}
			if current.InviteCode != nil {
				return *current.InviteCode, nil
			}
			continue
		}

		s.logger.Info("invite code generated", zap.Int64("user_id", userID), zap.String("code", code))
		return code, nil
	}

	s.logger.Error("invite code attempts exhausted", zap.Int64("user_id", userID))
	return "", ErrInviteCodeExhausted
}

// Resolve maps an invite code to the inviting user's id
func (s *ReferralService) Resolve(ctx context.Context, code string) (int64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, ErrReferralCodeNotFound
	}
	user, err := s.repo.GetUserByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrReferralCodeNotFound
		}
		return 0, persistenceErr("resolve invite code", err)
	}
	return user.ID, nil
}

// Register attributes referredID to referrerID. It returns false when the
// invited user already has an inviter or tries to invite themselves.
func (s *ReferralService) Register(ctx context.Context, referrerID, referredID int64) (bool, error) {
	if referrerID == referredID {
		monitoring.ReferralsRegistered.WithLabelValues("self").Inc()
		return false, nil
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CreateReferral(ctx, &models.Referral{
			ReferrerID:     referrerID,
			ReferredUserID: referredID,
			Status:         "completed",
		}); err != nil {
			return err
		}
		set, err := tx.SetReferrer(ctx, referredID, referrerID)
		if err != nil {
			return err
		}
		if !set {
			return ErrDuplicateAttribution
		}
		return nil
	})

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, ErrDuplicateAttribution):
		monitoring.ReferralsRegistered.WithLabelValues("duplicate").Inc()
		s.logger.Debug("referral already attributed",
			zap.Int64("referrer_id", referrerID),
			zap.Int64("referred_id", referredID))
		return false, nil
	case err != nil:
		s.logger.Error("failed to register referral", zap.Int64("referred_id", referredID), zap.Error(err))
		return false, persistenceErr("register referral", err)
	}

	monitoring.ReferralsRegistered.WithLabelValues("registered").Inc()
	s.logger.Info("referral registered",
		zap.Int64("referrer_id", referrerID),
		zap.Int64("referred_id", referredID))
	return true, nil
}

// Stats returns referral counts and the invested total of invited users
func (s *ReferralService) Stats(ctx context.Context, userID int64) (*models.ReferralStats, error) {
	stats, err := s.repo.ReferralStats(ctx, userID)
	if err != nil {
		return nil, persistenceErr("load referral stats", err)
	}
	return stats, nil
}
