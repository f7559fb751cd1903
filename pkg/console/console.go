package console

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/diillson/aws-costlens/internal/shared/types"
)

// barWidth é a largura máxima das barras do gráfico de tendência.
const barWidth = 40

// Console é uma implementação do ConsoleInterface.
type Console struct {
	out io.Writer
}

// NewConsole cria um novo Console que escreve em stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWithWriter direciona a saída de texto e tabelas para w.
func NewConsoleWithWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Print imprime no console.
func (c *Console) Print(a ...interface{}) {
	fmt.Fprint(c.out, a...)
}

// Printf imprime uma string formatada no console.
func (c *Console) Printf(format string, a ...interface{}) {
	fmt.Fprintf(c.out, format, a...)
}

// Println imprime no console com uma nova linha.
func (c *Console) Println(a ...interface{}) {
	fmt.Fprintln(c.out, a...)
}

// LogInfo registra uma mensagem de informação.
func (c *Console) LogInfo(format string, a ...interface{}) {
	pterm.Info.WithWriter(c.out).Printfln(format, a...)
}

// LogWarning registra uma mensagem de aviso.
func (c *Console) LogWarning(format string, a ...interface{}) {
	pterm.Warning.WithWriter(c.out).Printfln(format, a...)
}

// LogError registra uma mensagem de erro.
func (c *Console) LogError(format string, a ...interface{}) {
	pterm.Error.WithWriter(c.out).Printfln(format, a...)
}

// LogSuccess registra uma mensagem de sucesso.
func (c *Console) LogSuccess(format string, a ...interface{}) {
	pterm.Success.WithWriter(c.out).Printfln(format, a...)
}

// Cores predefinidas para uso consistente
var (
	BrightMagenta = color.New(color.FgMagenta, color.Bold).SprintFunc()
	BoldRed       = color.New(color.FgRed, color.Bold).SprintFunc()
	BrightGreen   = color.New(color.FgGreen, color.Bold).SprintFunc()
	BrightYellow  = color.New(color.FgYellow, color.Bold).SprintFunc()
	BrightRed     = color.New(color.FgRed, color.Bold).SprintFunc()
	BrightCyan    = color.New(color.FgCyan, color.Bold).SprintFunc()
)

type statusHandle struct {
	spinner *pterm.SpinnerPrinter
}

// Status cria um spinner de status com a mensagem especificada.
func (c *Console) Status(message string) types.StatusHandle {
	spinner, _ := pterm.DefaultSpinner.WithWriter(c.out).Start(message)
	return &statusHandle{spinner: spinner}
}

func (h *statusHandle) Update(message string) {
	if h.spinner != nil {
		h.spinner.UpdateText(message)
	}
}

func (h *statusHandle) Stop() {
	if h.spinner != nil {
		_ = h.spinner.Stop()
	}
}

type progressHandle struct {
	bar *pterm.ProgressbarPrinter
}

// ProgressWithTotal cria uma barra de progresso com título.
func (c *Console) ProgressWithTotal(total int, title string) types.ProgressHandle {
	if total < 1 {
		total = 1
	}
	bar, _ := pterm.DefaultProgressbar.
		WithWriter(c.out).
		WithTotal(total).
		WithTitle(title).
		WithShowElapsedTime(true).
		WithShowCount(true).
		WithRemoveWhenDone(false).
		Start()
	return &progressHandle{bar: bar}
}

func (h *progressHandle) Increment() {
	if h.bar != nil {
		h.bar.Increment()
	}
}

func (h *progressHandle) Stop() {
	if h.bar != nil {
		_, _ = h.bar.Stop()
	}
}

// Table é uma implementação do TableInterface.
type Table struct {
	columns []string
	rows    [][]string
}

// CreateTable cria uma nova tabela.
func (c *Console) CreateTable() types.TableInterface {
	return &Table{}
}

// AddColumn adiciona uma coluna à tabela. Opções são ignoradas pelo renderer pterm.
func (t *Table) AddColumn(name string, options ...interface{}) {
	t.columns = append(t.columns, name)
}

// AddRow adiciona uma linha; células faltando viram vazias.
func (t *Table) AddRow(cells ...interface{}) {
	row := make([]string, len(t.columns))
	for i, cell := range cells {
		if i >= len(row) {
			row = append(row, fmt.Sprint(cell))
			continue
		}
		row[i] = fmt.Sprint(cell)
	}
	t.rows = append(t.rows, row)
}

// Render renderiza a tabela como uma string.
func (t *Table) Render() string {
	tableData := pterm.TableData{t.columns}
	tableData = append(tableData, t.rows...)

	rendered, _ := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithRowSeparator("-").
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(tableData).
		Srender()
	return rendered
}

// DisplayTrendBars exibe o gráfico de barras do histórico mensal com a variação mês a mês.
func (c *Console) DisplayTrendBars(title string, monthlyCosts []types.MonthlyCost) {
	maxCost := 0.0
	for _, mc := range monthlyCosts {
		maxCost = math.Max(maxCost, mc.Cost)
	}
	if maxCost == 0 {
		pterm.Warning.WithWriter(c.out).Printfln("%s: all costs are zero for this period", title)
		return
	}

	tableData := pterm.TableData{{"Month", "Cost", "", "MoM Change"}}
	for i, mc := range monthlyCosts {
		bar := strings.Repeat("█", barLength(mc.Cost, maxCost))
		style := pterm.FgBlue
		change := ""
		if i > 0 {
			var label string
			label, style = trendChange(monthlyCosts[i-1].Cost, mc.Cost)
			change = style.Sprint(label)
		}
		tableData = append(tableData, []string{
			mc.Month,
			Money(mc.Currency, mc.Cost),
			style.Sprint(bar),
			change,
		})
	}

	rendered, _ := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
	panel := pterm.DefaultBox.
		WithTitle(title).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).
		Sprint(rendered)
	fmt.Fprintln(c.out, "\n"+panel)
}

func barLength(cost, maxCost float64) int {
	if maxCost <= 0 || cost <= 0 {
		return 0
	}
	return int((cost / maxCost) * barWidth)
}

// trendChange rotula a variação entre dois meses. Sem gasto anterior e com
// gasto atual o mês é marcado como "new".
func trendChange(prev, cur float64) (string, pterm.Color) {
	if prev < 0.01 {
		if cur < 0.01 {
			return "0%", pterm.FgYellow
		}
		return "new", pterm.FgRed
	}
	pct := (cur - prev) / prev * 100
	switch {
	case math.Abs(pct) < 0.01:
		return "0%", pterm.FgYellow
	case pct > 999:
		return ">+999%", pterm.FgRed
	case pct < -999:
		return ">-999%", pterm.FgGreen
	case pct > 0:
		return fmt.Sprintf("+%.2f%%", pct), pterm.FgRed
	default:
		return fmt.Sprintf("%.2f%%", pct), pterm.FgGreen
	}
}

// Money formata um valor com o símbolo da moeda; moeda vazia é tratada como USD.
func Money(currency string, amount float64) string {
	switch strings.ToUpper(currency) {
	case "", "USD":
		return fmt.Sprintf("$%.2f", amount)
	case "EUR":
		return fmt.Sprintf("€%.2f", amount)
	default:
		return fmt.Sprintf("%.2f %s", amount, currency)
	}
}
