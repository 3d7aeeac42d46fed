package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Admin actions recorded in the audit log
const (
	ActionConfirmInvestment = "CONFIRM_INVESTMENT"
	ActionRejectInvestment  = "REJECT_INVESTMENT"
	ActionAdjustBalance     = "ADJUST_BALANCE"
)

// AdminLog tracks admin actions for audit
type AdminLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AdminID      int64     `gorm:"not null;index" json:"admin_id"`
	Action       string    `gorm:"size:100;not null" json:"action"`
	ResourceType string    `gorm:"size:50" json:"resource_type"`
	ResourceID   *int64    `json:"resource_id,omitempty"`
	Details      JSONB     `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (AdminLog) TableName() string {
	return "admin_logs"
}

// SystemStatistics is the admin dashboard snapshot
type SystemStatistics struct {
	TotalUsers          int64           `json:"total_users"`
	RegisteredUsers     int64           `json:"registered_users"`
	TotalInvestments    int64           `json:"total_investments"`
	PendingInvestments  int64           `json:"pending_investments"`
	ActiveInvestments   int64           `json:"active_investments"`
	RejectedInvestments int64           `json:"rejected_investments"`
	ActivePrincipal     decimal.Decimal `json:"active_principal"`
	MonthlyEntitlement  decimal.Decimal `json:"monthly_entitlement"`
	TotalBalances       decimal.Decimal `json:"total_balances"`
	TotalReferrals      int64           `json:"total_referrals"`
	GeneratedAt         time.Time       `json:"generated_at"`
}
