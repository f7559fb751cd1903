package console

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"

	"github.com/diillson/aws-costlens/internal/shared/types"
)

func TestTrendChange(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur float64
		label     string
		color     pterm.Color
	}{
		{"both zero", 0, 0, "0%", pterm.FgYellow},
		{"new spend", 0, 10, "new", pterm.FgRed},
		{"flat", 100, 100, "0%", pterm.FgYellow},
		{"increase", 100, 120, "+20.00%", pterm.FgRed},
		{"decrease", 100, 75, "-25.00%", pterm.FgGreen},
		{"huge increase", 1, 100, ">+999%", pterm.FgRed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, c := trendChange(tt.prev, tt.cur)
			assert.Equal(t, tt.label, label)
			assert.Equal(t, tt.color, c)
		})
	}
}

func TestBarLength(t *testing.T) {
	assert.Equal(t, barWidth, barLength(50, 50))
	assert.Equal(t, barWidth/2, barLength(25, 50))
	assert.Equal(t, 0, barLength(0, 50))
	assert.Equal(t, 0, barLength(10, 0))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$12.50", Money("", 12.5))
	assert.Equal(t, "$12.50", Money("usd", 12.5))
	assert.Equal(t, "€3.00", Money("EUR", 3))
	assert.Equal(t, "7.25 BRL", Money("BRL", 7.25))
}

func TestTableRenderPadsMissingCells(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	c := NewConsoleWithWriter(&bytes.Buffer{})
	table := c.CreateTable()
	table.AddColumn("Profile")
	table.AddColumn("Total")
	table.AddRow("dev")
	table.AddRow("prod", "$10.00")

	out := table.Render()
	assert.Contains(t, out, "Profile")
	assert.Contains(t, out, "dev")
	assert.Contains(t, out, "$10.00")
}

func TestDisplayTrendBarsAllZero(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	c := NewConsoleWithWriter(&buf)
	c.DisplayTrendBars("Trend", []types.MonthlyCost{{Month: "Jan 2024"}, {Month: "Feb 2024"}})
	assert.Contains(t, buf.String(), "all costs are zero")
}

func TestDisplayTrendBars(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	c := NewConsoleWithWriter(&buf)
	c.DisplayTrendBars("Account 111", []types.MonthlyCost{
		{Month: "Jan 2024", Cost: 100},
		{Month: "Feb 2024", Cost: 120},
	})
	out := buf.String()
	assert.Contains(t, out, "Account 111")
	assert.Contains(t, out, "Jan 2024")
	assert.Contains(t, out, "$120.00")
	assert.Contains(t, out, "+20.00%")
}
