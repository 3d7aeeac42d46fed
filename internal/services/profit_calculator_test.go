package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnualRateBoundaries(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"500", 50},
		{"5000", 50},
		{"5000.01", 60},
		{"10000", 60},
		{"10000.01", 70},
		{"250000", 70},
	}

	for _, tc := range cases {
		t.Run(tc.amount, func(t *testing.T) {
			rate, err := AnnualRate(decimal.RequireFromString(tc.amount))
			require.NoError(t, err)
			assert.True(t, rate.Equal(decimal.NewFromInt(tc.want)), "expected %d, got %s", tc.want, rate)
		})
	}
}

func TestAnnualRateBelowMinimum(t *testing.T) {
	_, err := AnnualRate(decimal.NewFromInt(499))
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestQuoteExample(t *testing.T) {
	quote, err := NewQuote(decimal.NewFromInt(7500), MinimumInvestment)
	require.NoError(t, err)

	assert.True(t, quote.AnnualRate.Equal(decimal.NewFromInt(60)))
	assert.True(t, quote.MonthlyRate.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "375.00", quote.MonthlyProfit.StringFixed(2))
}

func TestQuoteRelations(t *testing.T) {
	for _, raw := range []string{"500", "1234.56", "5000", "5000.01", "9999.99", "10000", "10000.01", "77777"} {
		amount := decimal.RequireFromString(raw)
		quote, err := NewQuote(amount, MinimumInvestment)
		require.NoError(t, err)

		assert.True(t, quote.MonthlyRate.Equal(quote.AnnualRate.Div(decimal.NewFromInt(12))), raw)
		assert.True(t, quote.MonthlyProfit.Equal(amount.Mul(quote.MonthlyRate).Div(decimal.NewFromInt(100))), raw)

		again, err := NewQuote(amount, MinimumInvestment)
		require.NoError(t, err)
		assert.Equal(t, quote, again, "quotes must be deterministic")
	}
}

func TestQuoteRespectsConfiguredMinimum(t *testing.T) {
	_, err := NewQuote(decimal.NewFromInt(800), decimal.NewFromInt(1000))
	assert.True(t, IsValidation(err))

	_, err = NewQuote(decimal.NewFromInt(400), decimal.NewFromInt(100))
	assert.True(t, IsValidation(err), "global floor still applies")
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" $1,500.50 ")
	require.NoError(t, err)
	assert.Equal(t, "1500.5", amount.String())

	for _, bad := range []string{"", "abc", "-20", "0"} {
		_, err := ParseAmount(bad)
		assert.True(t, IsValidation(err), bad)
	}
}

func TestParseAmountMatchesStoredPrecision(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"5000.00", true},
		{"5000.010", true},
		{"9999999999999999.99", true},
		{"5000.004", false},
		{"10000.001", false},
		{"1e20", false},
		{"10000000000000000", false},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			amount, err := ParseAmount(tc.raw)
			if !tc.ok {
				assert.True(t, IsValidation(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, amount.Equal(amount.Round(2)))
		})
	}
}

func TestQuoteRejectsUnstorableAmount(t *testing.T) {
	_, err := NewQuote(decimal.RequireFromString("5000.004"), MinimumInvestment)
	assert.True(t, IsValidation(err))

	quote, err := NewQuote(decimal.RequireFromString("5000.01"), MinimumInvestment)
	require.NoError(t, err)
	assert.True(t, quote.AnnualRate.Equal(decimal.NewFromInt(60)))
}

func TestDailyEquivalent(t *testing.T) {
	assert.True(t, DailyEquivalent(decimal.NewFromInt(375)).Equal(decimal.NewFromFloat(12.5)))
}
