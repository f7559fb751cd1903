package entity

import "github.com/shopspring/decimal"

// BudgetInfo represents a budget with actual and forecasted spend.
type BudgetInfo struct {
	Name     string          `json:"name"`
	Limit    decimal.Decimal `json:"limit"`
	Actual   decimal.Decimal `json:"actual"`
	Forecast decimal.Decimal `json:"forecast,omitempty"`
}

// Exceeded reports whether actual spend is over the limit.
func (b BudgetInfo) Exceeded() bool {
	return b.Actual.GreaterThan(b.Limit)
}

// UsedPercent returns actual/limit as a percentage; 0 when no limit is set.
func (b BudgetInfo) UsedPercent() float64 {
	if b.Limit.IsZero() {
		return 0
	}
	f, _ := b.Actual.Div(b.Limit).Mul(decimal.NewFromInt(100)).Float64()
	return f
}
