package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
)

// ExportRepositoryImpl implementa o ExportRepository.
type ExportRepositoryImpl struct {
	now func() time.Time
}

// NewExportRepository cria uma nova implementação do ExportRepository.
func NewExportRepository() repository.ExportRepository {
	return &ExportRepositoryImpl{now: time.Now}
}

// generateFilename cria um nome de arquivo único com timestamp e garante que o diretório exista.
func (r *ExportRepositoryImpl) generateFilename(base, dir, ext string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	timestamp := r.now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", base, timestamp, ext)
	return filepath.Join(dir, filename), nil
}

// writeJSON grava v indentado em path.
func writeJSON(path string, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("error encoding JSON data: %w", err)
	}
	return nil
}

// Regex para limpar formatação pterm (rich tags) e sequências ANSI de cor/estilo.
var richTagRegex = regexp.MustCompile(`\[/?([a-zA-Z]+|#[0-9a-fA-F]{6})\]`)
var ansiRegex = regexp.MustCompile(`\x1B\[[0-9;]*[A-Za-z]`)

// cleanRichTags remove tags de formatação do pterm e sequências ANSI.
func cleanRichTags(text string) string {
	text = richTagRegex.ReplaceAllString(text, "")
	return ansiRegex.ReplaceAllString(text, "")
}

// formatAmount usa o símbolo $ para USD e o código da moeda nos demais casos.
func formatAmount(currency string, d decimal.Decimal) string {
	if currency == "" || strings.EqualFold(currency, "USD") {
		return "$" + d.StringFixed(2)
	}
	return d.StringFixed(2) + " " + currency
}

// formatChange exibe a variação percentual; gasto sem período anterior vira "new".
func formatChange(p entity.PercentChange) string {
	if p.NewSpend {
		return "new"
	}
	return p.Ratio.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// pdfDocument agrupa o estilo comum dos relatórios em PDF.
type pdfDocument struct {
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	title string
	date  string
}

var (
	bodyTextColor = [3]int{50, 50, 50}
	lineColor     = [3]int{200, 200, 200}
)

func newPDFDocument(title string, generatedAt time.Time) *pdfDocument {
	pdf := gofpdf.New("P", "mm", "A4", "")
	return &pdfDocument{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		title: title,
		date:  generatedAt.Format(entity.DateLayout),
	}
}

// header abre uma página com a faixa de título e a linha de subtítulo.
func (d *pdfDocument) header(headerColor [3]int, title, subtitle string) {
	pdf := d.pdf
	pdf.AddPage()
	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 14)
	if len(title) > 80 {
		title = title[:77] + "..."
	}
	pdf.CellFormat(0, 12, d.tr("  "+title), "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	pdf.CellFormat(0, 8, d.tr("  "+subtitle), "", 1, "L", true, 0, "")
	pdf.Ln(10)
}

func (d *pdfDocument) section(title, content string) {
	content = cleanRichTags(content)
	if content == "" {
		return
	}
	pdf := d.pdf
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 8, d.tr(title))
	pdf.Ln(7)

	pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
	pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	pdf.MultiCell(190, 5, d.tr(content), "", "L", false)
	pdf.Ln(8)
}

func (d *pdfDocument) footer(page int) {
	pdf := d.pdf
	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 10, d.tr(fmt.Sprintf("%s | %s", d.title, d.date)), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 10, d.tr(fmt.Sprintf("Page %d", page)), "", 0, "R", false, 0, "")
}

func (d *pdfDocument) save(path string) (string, error) {
	if err := d.pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("error writing PDF file: %w", err)
	}
	return filepath.Abs(path)
}

// ExportTrendToJSON grava o histórico mensal de cada conta.
func (r *ExportRepositoryImpl) ExportTrendToJSON(series []repository.TrendSeries, filename, outputDir string) (string, error) {
	outputFilename, err := r.generateFilename(filename, outputDir, "json")
	if err != nil {
		return "", err
	}
	if series == nil {
		series = []repository.TrendSeries{}
	}
	doc := struct {
		GeneratedAt time.Time                `json:"generated_at"`
		Series      []repository.TrendSeries `json:"series"`
	}{GeneratedAt: r.now().UTC(), Series: series}

	if err := writeJSON(outputFilename, doc); err != nil {
		return "", err
	}
	return filepath.Abs(outputFilename)
}
