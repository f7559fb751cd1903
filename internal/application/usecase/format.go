package usecase

import (
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/shared/types"
	"github.com/diillson/aws-costlens/pkg/console"
)

func money(currency string, d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return console.Money(currency, f)
}

// changeLabel colore a variação: aumento em vermelho, queda em verde.
func changeLabel(delta decimal.Decimal, pct entity.PercentChange) string {
	switch {
	case pct.NewSpend:
		return pterm.FgRed.Sprint("new spend")
	case delta.IsPositive():
		return pterm.FgRed.Sprintf("+%.2f%%", pct.Percent())
	case delta.IsNegative():
		return pterm.FgGreen.Sprintf("%.2f%%", pct.Percent())
	default:
		return pterm.FgYellow.Sprint("0.00%")
	}
}

// toUIMonthlyCosts converte o histórico para o formato do gráfico.
func toUIMonthlyCosts(currency string, costs []entity.MonthlyCost) []types.MonthlyCost {
	out := make([]types.MonthlyCost, len(costs))
	for i, mc := range costs {
		f, _ := mc.Cost.Float64()
		out[i] = types.MonthlyCost{Month: mc.Month, Cost: f, Currency: currency}
	}
	return out
}
