package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral attributes an invited user to exactly one inviter.
// ReferredUserID is unique so the first registration wins.
type Referral struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ReferrerID     int64           `gorm:"not null;index" json:"referrer_id"`
	ReferredUserID int64           `gorm:"uniqueIndex;not null" json:"referred_user_id"`
	Status         string          `gorm:"size:20;default:completed" json:"status"`
	RewardAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"reward_amount"`
	RewardPaid     bool            `gorm:"default:false" json:"reward_paid"`
	ReferredAt     time.Time       `gorm:"autoCreateTime" json:"referred_at"`
}

func (Referral) TableName() string {
	return "referrals"
}

// ReferralStats is computed on read, it is not persisted.
type ReferralStats struct {
	TotalReferrals  int64           `json:"total_referrals"`
	ActiveReferrals int64           `json:"active_referrals"`
	TotalInvested   decimal.Decimal `json:"total_invested"`
}
