package telegram

import (
	"strings"
	"testing"
	"time"

	"investment-bot/internal/notify"
	"investment-bot/internal/services"
	"investment-bot/internal/workflow"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercent(t *testing.T) {
	assert.Equal(t, "60%", percent(decimal.NewFromInt(60)))
	assert.Equal(t, "5%", percent(decimal.NewFromInt(5)))
	assert.Equal(t, "4.17%", percent(decimal.NewFromInt(50).Div(decimal.NewFromInt(12))))
}

func TestRenderQuotePrompt(t *testing.T) {
	quote, err := services.NewQuote(decimal.NewFromInt(7500), services.MinimumInvestment)
	require.NoError(t, err)

	text, markup := RenderPrompt(workflow.Prompt{Kind: workflow.PromptConfirmQuote, Quote: &quote})
	assert.Contains(t, text, "$7500.00")
	assert.Contains(t, text, "Annual rate: 60%")
	assert.Contains(t, text, "Monthly rate: 5%")
	assert.Contains(t, text, "Monthly profit: $375.00")
	require.Len(t, markup.Keyboard, 1)
	assert.Equal(t, ButtonAccept, markup.Keyboard[0][0].Text)
}

func TestRenderUnexpectedRepeatsStepKeyboard(t *testing.T) {
	text, markup := RenderPrompt(workflow.Prompt{
		Kind:           workflow.PromptUnexpected,
		Step:           workflow.StepAwaitingPayment,
		PaymentAddress: "0xPAYMENT",
	})
	assert.Contains(t, text, "0xPAYMENT")
	assert.Equal(t, ButtonPaid, markup.Keyboard[0][0].Text)
}

func TestRenderSubmissionPayload(t *testing.T) {
	text := RenderPayload(notify.Payload{
		Kind:            notify.KindInvestmentSubmitted,
		InvestmentID:    12,
		UserID:          42,
		UserName:        "Ana",
		Amount:          decimal.NewFromInt(2000),
		AnnualRate:      decimal.NewFromInt(50),
		MonthlyRate:     decimal.NewFromInt(50).Div(decimal.NewFromInt(12)),
		MonthlyProfit:   decimal.RequireFromString("83.33"),
		WalletExcerpt:   "0x12345678...",
		EvidenceKind:    "text",
		EvidenceDisplay: "0xhash",
		Directives:      notify.DecisionDirectives(12, 42),
		CreatedAt:       time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	for _, want := range []string{"#12", "Ana (42)", "$2000.00", "50%", "4.17%", "$83.33", "0x12345678...", "0xhash", "/confirm_invest_12", "/reject_invest_12", "/user_42"} {
		assert.Contains(t, text, want)
	}
	assert.True(t, strings.HasSuffix(text, "/user_42"))
}

func TestRenderConfirmedPayload(t *testing.T) {
	start := time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC)
	text := RenderPayload(notify.Payload{
		Kind:          notify.KindInvestmentConfirmed,
		InvestmentID:  3,
		Amount:        decimal.NewFromInt(12000),
		MonthlyProfit: decimal.NewFromInt(700),
		StartDate:     &start,
	})
	assert.Contains(t, text, "#3")
	assert.Contains(t, text, "2024-04-02")
	assert.Contains(t, text, "$700.00")
}
