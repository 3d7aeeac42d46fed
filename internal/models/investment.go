package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentStatus represents the lifecycle state of an investment
type InvestmentStatus string

const (
	InvestmentPending   InvestmentStatus = "pending"
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
	InvestmentRejected  InvestmentStatus = "rejected"
)

// EvidenceKind classifies the payment proof attached to an investment
type EvidenceKind string

const (
	EvidenceNone     EvidenceKind = "none"
	EvidenceText     EvidenceKind = "text"
	EvidencePhoto    EvidenceKind = "photo"
	EvidenceDocument EvidenceKind = "document"
)

// Investment is a capital deposit request. Rates are fixed at creation.
type Investment struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	UserID          int64            `gorm:"not null;index" json:"user_id"`
	Amount          decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"amount"`
	AnnualRate      decimal.Decimal  `gorm:"type:decimal(5,2);not null" json:"annual_rate"`
	MonthlyRate     decimal.Decimal  `gorm:"type:decimal(24,16);not null" json:"monthly_rate"`
	Status          InvestmentStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	EvidenceContent string           `gorm:"type:text" json:"evidence_content"`
	EvidenceKind    EvidenceKind     `gorm:"size:16;not null;default:none" json:"evidence_kind"`
	StartDate       *time.Time       `json:"start_date,omitempty"`
	ConfirmedBy     *int64           `json:"confirmed_by,omitempty"`
	DecidedAt       *time.Time       `json:"decided_at,omitempty"`
	Notes           string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Investment model
func (Investment) TableName() string {
	return "investments"
}

// IsTerminal reports whether no further status transition is allowed
func (i *Investment) IsTerminal() bool {
	return i.Status != InvestmentPending
}
