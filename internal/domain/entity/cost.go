package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BillingLine is one (service, amount, currency) row as returned by the billing API.
// Tags is set only when the billing side already filtered by tag.
type BillingLine struct {
	Service    string            `json:"service"`
	ResourceID string            `json:"resource_id,omitempty"`
	Amount     decimal.Decimal   `json:"amount"`
	Currency   string            `json:"currency"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// CostLineItem é uma observação de custo por serviço de uma conta, região e período.
type CostLineItem struct {
	Service    string            `json:"service"`
	Amount     decimal.Decimal   `json:"amount"`
	Currency   string            `json:"currency"`
	AccountID  string            `json:"account_id"`
	Profile    string            `json:"profile"`
	Region     string            `json:"region,omitempty"`
	Period     Period            `json:"period"`
	ResourceID string            `json:"resource_id,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Ref devolve a referência usada para buscar as tags do recurso de origem.
func (i CostLineItem) Ref() ResourceRef {
	return ResourceRef{Profile: i.Profile, Region: i.Region, ResourceID: i.ResourceID}
}

// PercentChange is delta/previous. NewSpend marks previous == 0 with current > 0,
// where the ratio is unbounded.
type PercentChange struct {
	Ratio    decimal.Decimal `json:"ratio"`
	NewSpend bool            `json:"new_spend,omitempty"`
}

// NewPercentChange computes the period-over-period ratio.
func NewPercentChange(current, previous decimal.Decimal) PercentChange {
	if previous.IsZero() {
		if current.IsZero() {
			return PercentChange{Ratio: decimal.Zero}
		}
		return PercentChange{NewSpend: true}
	}
	return PercentChange{Ratio: current.Sub(previous).DivRound(previous, 6)}
}

// Percent returns the ratio scaled to a percentage.
func (p PercentChange) Percent() float64 {
	f, _ := p.Ratio.Mul(decimal.NewFromInt(100)).Float64()
	return f
}

// ServiceCost holds one service's spend in both periods.
type ServiceCost struct {
	Service  string          `json:"service"`
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Delta    decimal.Decimal `json:"delta"`
	DeltaPct PercentChange   `json:"delta_pct"`
}

// AccountCostRecord é o registro lógico de uma conta (ou de um perfil, sem merge).
// ProfileNames lista todos os aliases que resolveram para esta conta.
type AccountCostRecord struct {
	AccountID     string                 `json:"account_id"`
	ProfileNames  []string               `json:"profile_names"`
	Currency      string                 `json:"currency,omitempty"`
	CurrentTotal  decimal.Decimal        `json:"current_total"`
	PreviousTotal decimal.Decimal        `json:"previous_total"`
	Delta         decimal.Decimal        `json:"delta"`
	DeltaPct      PercentChange          `json:"delta_pct"`
	ByService     map[string]ServiceCost `json:"by_service"`
}

// Services returns the service buckets ordered by current spend desc, then name.
func (r AccountCostRecord) Services() []ServiceCost {
	out := make([]ServiceCost, 0, len(r.ByService))
	for _, sc := range r.ByService {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Current.Cmp(out[j].Current); c != 0 {
			return c > 0
		}
		return out[i].Service < out[j].Service
	})
	return out
}

// NormalizedCostModel é o único artefato de saída do motor.
type NormalizedCostModel struct {
	RunID          string              `json:"run_id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	Accounts       []AccountCostRecord `json:"accounts"`
	Periods        PeriodPair          `json:"periods"`
	AppliedFilters []TagPredicate      `json:"applied_filters,omitempty"`
	Currency       string              `json:"currency,omitempty"`
	Merged         bool                `json:"merged"`
}

// CurrentTotal soma o período atual de todas as contas.
func (m NormalizedCostModel) CurrentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range m.Accounts {
		total = total.Add(a.CurrentTotal)
	}
	return total
}

// PreviousTotal soma o período anterior de todas as contas.
func (m NormalizedCostModel) PreviousTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range m.Accounts {
		total = total.Add(a.PreviousTotal)
	}
	return total
}

// MonthlyCost represents the cost for a specific month, used for trend analysis.
type MonthlyCost struct {
	Month string          `json:"month"`
	Cost  decimal.Decimal `json:"cost"`
}
