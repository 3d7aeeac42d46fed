package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies what a notification is about
type Kind string

const (
	KindInvestmentSubmitted Kind = "investment_submitted"
	KindInvestmentConfirmed Kind = "investment_confirmed"
	KindInvestmentRejected  Kind = "investment_rejected"
	KindEvidenceForward     Kind = "evidence_forward"
	KindReferralJoined      Kind = "referral_joined"
)

// Admin directive prefixes. The investment or user id is appended.
const (
	ConfirmDirectivePrefix = "/confirm_invest_"
	RejectDirectivePrefix  = "/reject_invest_"
	UserDirectivePrefix    = "/user_"
)

// Payload is the structured body of a notification. Rendering to text is
// left to the transport.
type Payload struct {
	ID               string          `json:"id"`
	Kind             Kind            `json:"kind"`
	InvestmentID     uint            `json:"investment_id,omitempty"`
	UserID           int64           `json:"user_id,omitempty"`
	UserName         string          `json:"user_name,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	AnnualRate       decimal.Decimal `json:"annual_rate"`
	MonthlyRate      decimal.Decimal `json:"monthly_rate"`
	MonthlyProfit    decimal.Decimal `json:"monthly_profit"`
	WalletExcerpt    string          `json:"wallet_excerpt,omitempty"`
	EvidenceKind     string          `json:"evidence_kind,omitempty"`
	EvidenceDisplay  string          `json:"evidence_display,omitempty"`
	ForwardChatID    int64           `json:"forward_chat_id,omitempty"`
	ForwardMessageID int64           `json:"forward_message_id,omitempty"`
	Directives       []string        `json:"directives,omitempty"`
	StartDate        *time.Time      `json:"start_date,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Notifier delivers payloads without blocking the caller. Failures are
// logged by the implementation and never returned.
type Notifier interface {
	Notify(ctx context.Context, userID int64, payload Payload)
}

// Deliverer performs the actual send on a transport
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, payload Payload) error
}

// DecisionDirectives returns the admin commands attached to a submission
func DecisionDirectives(investmentID uint, userID int64) []string {
	return []string{
		fmt.Sprintf("%s%d", ConfirmDirectivePrefix, investmentID),
		fmt.Sprintf("%s%d", RejectDirectivePrefix, investmentID),
		fmt.Sprintf("%s%d", UserDirectivePrefix, userID),
	}
}

// MaskWallet keeps the first 10 characters of an address
func MaskWallet(address string) string {
	if address == "" {
		return ""
	}
	if len(address) <= 10 {
		return address + "..."
	}
	return address[:10] + "..."
}
