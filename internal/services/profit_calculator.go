package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tier maps an amount bracket to an annual rate in percent
type Tier struct {
	UpTo       decimal.Decimal // inclusive upper bound, zero means unbounded
	AnnualRate decimal.Decimal
}

var (
	MinimumInvestment = decimal.NewFromInt(500)

	// Tiers are ordered by UpTo. The last tier has no upper bound.
	Tiers = []Tier{
		{UpTo: decimal.NewFromInt(5000), AnnualRate: decimal.NewFromInt(50)},
		{UpTo: decimal.NewFromInt(10000), AnnualRate: decimal.NewFromInt(60)},
		{UpTo: decimal.Zero, AnnualRate: decimal.NewFromInt(70)},
	}

	// MaxAmount is the first value a decimal(18,2) column cannot hold
	MaxAmount = decimal.New(1, 16)

	monthsPerYear = decimal.NewFromInt(12)
	daysPerMonth  = decimal.NewFromInt(30)
	hundred       = decimal.NewFromInt(100)
)

// amountScale is the number of decimal places money columns keep
const amountScale = 2

// ValidateAmount rejects money values that storage would round or overflow
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(amountScale)) {
		return &ValidationError{Field: field, Reason: "at most 2 decimal places allowed"}
	}
	if amount.Abs().GreaterThanOrEqual(MaxAmount) {
		return &ValidationError{Field: field, Reason: "too large"}
	}
	return nil
}

// Quote holds the financial terms offered for an amount
type Quote struct {
	Amount        decimal.Decimal `json:"amount"`
	AnnualRate    decimal.Decimal `json:"annual_rate"`
	MonthlyRate   decimal.Decimal `json:"monthly_rate"`
	MonthlyProfit decimal.Decimal `json:"monthly_profit"`
}

// AnnualRate returns the tier rate for amount, which must be at least
// the global minimum.
func AnnualRate(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.LessThan(MinimumInvestment) {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "below minimum investment of " + MinimumInvestment.String()}
	}
	for _, tier := range Tiers {
		if tier.UpTo.IsZero() || amount.LessThanOrEqual(tier.UpTo) {
			return tier.AnnualRate, nil
		}
	}
	return Tiers[len(Tiers)-1].AnnualRate, nil
}

// MonthlyRate converts an annual percentage into a monthly percentage
func MonthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Div(monthsPerYear)
}

// MonthlyProfit is the amount earned per month at monthlyRate percent
func MonthlyProfit(amount, monthlyRate decimal.Decimal) decimal.Decimal {
	return amount.Mul(monthlyRate).Div(hundred)
}

// DailyEquivalent spreads a monthly amount over a 30 day month
func DailyEquivalent(monthly decimal.Decimal) decimal.Decimal {
	return monthly.Div(daysPerMonth)
}

// NewQuote prices amount. A minimum above the global floor raises the bar;
// a lower one never admits amounts under it.
func NewQuote(amount, minimum decimal.Decimal) (Quote, error) {
	if err := ValidateAmount("amount", amount); err != nil {
		return Quote{}, err
	}
	if amount.LessThan(minimum) {
		return Quote{}, &ValidationError{Field: "amount", Reason: "below minimum investment of " + minimum.String()}
	}
	annual, err := AnnualRate(amount)
	if err != nil {
		return Quote{}, err
	}
	monthly := MonthlyRate(annual)
	return Quote{
		Amount:        amount,
		AnnualRate:    annual,
		MonthlyRate:   monthly,
		MonthlyProfit: MonthlyProfit(amount, monthly),
	}, nil
}

// ParseAmount reads a user typed amount such as "1,500" or "$ 2000.50"
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "empty"}
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "not a number"}
	}
	if !amount.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if err := ValidateAmount("amount", amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
