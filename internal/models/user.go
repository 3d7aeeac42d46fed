package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a bot user. ID is the telegram user id.
type User struct {
	ID             int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Language       string          `gorm:"size:8;default:en" json:"language"`
	FullName       string          `gorm:"size:255" json:"full_name"`
	Email          *string         `gorm:"size:255" json:"email,omitempty"`
	Phone          *string         `gorm:"size:32" json:"phone,omitempty"`
	WalletAddress  string          `gorm:"size:128" json:"wallet_address"`
	Balance        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	InviteCode     *string         `gorm:"uniqueIndex;size:32" json:"invite_code,omitempty"`
	ReferrerID     *int64          `gorm:"index" json:"referrer_id,omitempty"`
	TotalInvested  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_invested"`
	TotalWithdrawn decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_withdrawn"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	RegisteredAt   *time.Time      `json:"registered_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// IsRegistered reports whether the user finished registration and can invest.
func (u *User) IsRegistered() bool {
	return u.RegisteredAt != nil && u.WalletAddress != ""
}
