package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
)

// totalRow marca a linha de total de cada conta no CSV.
const totalRow = "TOTAL"

// ExportToCSV grava uma linha por serviço de cada conta, seguida da linha de total.
func (r *ExportRepositoryImpl) ExportToCSV(report repository.CostReport, filename, outputDir string) (string, error) {
	outputFilename, err := r.generateFilename(filename, outputDir, "csv")
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(costRecords(report.Model)); err != nil {
		return "", fmt.Errorf("error writing CSV records: %w", err)
	}
	return filepath.Abs(outputFilename)
}

func costRecords(model entity.NormalizedCostModel) [][]string {
	periods := model.Periods
	records := [][]string{{
		"AWS Account ID", "CLI Profiles", "Service",
		fmt.Sprintf("Cost for period (%s)", periods.Previous),
		fmt.Sprintf("Cost for period (%s)", periods.Current),
		"Change", "Change %",
	}}

	for _, acc := range model.Accounts {
		profiles := strings.Join(acc.ProfileNames, ", ")
		for _, sc := range acc.Services() {
			records = append(records, []string{
				acc.AccountID, profiles, sc.Service,
				formatAmount(acc.Currency, sc.Previous),
				formatAmount(acc.Currency, sc.Current),
				formatAmount(acc.Currency, sc.Delta),
				formatChange(sc.DeltaPct),
			})
		}
		records = append(records, []string{
			acc.AccountID, profiles, totalRow,
			formatAmount(acc.Currency, acc.PreviousTotal),
			formatAmount(acc.Currency, acc.CurrentTotal),
			formatAmount(acc.Currency, acc.Delta),
			formatChange(acc.DeltaPct),
		})
	}
	return records
}

// costDocument é o formato do relatório JSON.
type costDocument struct {
	entity.NormalizedCostModel
	CurrentTotal  decimal.Decimal    `json:"current_total"`
	PreviousTotal decimal.Decimal    `json:"previous_total"`
	Errors        []*entity.RunError `json:"errors"`
}

// ExportToJSON grava o modelo completo, os totais e os erros não fatais.
func (r *ExportRepositoryImpl) ExportToJSON(report repository.CostReport, filename, outputDir string) (string, error) {
	outputFilename, err := r.generateFilename(filename, outputDir, "json")
	if err != nil {
		return "", err
	}

	doc := costDocument{
		NormalizedCostModel: report.Model,
		CurrentTotal:        report.Model.CurrentTotal(),
		PreviousTotal:       report.Model.PreviousTotal(),
		Errors:              report.Errors,
	}
	if doc.Errors == nil {
		doc.Errors = []*entity.RunError{}
	}
	if doc.Accounts == nil {
		doc.Accounts = []entity.AccountCostRecord{}
	}

	if err := writeJSON(outputFilename, doc); err != nil {
		return "", err
	}
	return filepath.Abs(outputFilename)
}

// ExportToPDF gera uma página por conta e, se houver, uma página de erros.
func (r *ExportRepositoryImpl) ExportToPDF(report repository.CostReport, filename, outputDir string) (string, error) {
	outputFilename, err := r.generateFilename(filename, outputDir, "pdf")
	if err != nil {
		return "", err
	}

	doc := newPDFDocument("Generated by AWS CostLens", r.now())
	pdf := doc.pdf
	periods := report.Model.Periods
	page := 0

	for _, acc := range report.Model.Accounts {
		page++
		doc.header([3]int{40, 40, 40}, strings.Join(acc.ProfileNames, ", "), "Account ID: "+acc.AccountID)

		const colWidth = 95.0
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(colWidth, 7, doc.tr(periods.PreviousName), "B", 0, "L", false, 0, "")
		pdf.CellFormat(colWidth, 7, doc.tr(periods.CurrentName), "B", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(colWidth, 5, periods.Previous.String(), "", 0, "L", false, 0, "")
		pdf.CellFormat(colWidth, 5, periods.Current.String(), "", 1, "L", false, 0, "")

		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(colWidth, 12, doc.tr(formatAmount(acc.Currency, acc.PreviousTotal)), "", 0, "L", false, 0, "")

		current := formatAmount(acc.Currency, acc.CurrentTotal)
		pdf.Cell(pdf.GetStringWidth(current), 12, doc.tr(current))

		switch {
		case acc.DeltaPct.NewSpend || acc.Delta.IsPositive():
			pdf.SetTextColor(192, 0, 0)
		case acc.Delta.IsNegative():
			pdf.SetTextColor(0, 128, 0)
		}
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(colWidth-pdf.GetStringWidth(current), 12, "  ("+formatChange(acc.DeltaPct)+")", "", 1, "L", false, 0, "")
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.Ln(10)

		var services strings.Builder
		for _, sc := range acc.Services() {
			fmt.Fprintf(&services, "%s: %s (previous %s, %s)\n", sc.Service,
				formatAmount(acc.Currency, sc.Current),
				formatAmount(acc.Currency, sc.Previous),
				formatChange(sc.DeltaPct))
		}
		doc.section("Cost By Service", strings.TrimSpace(services.String()))
		if len(report.Model.AppliedFilters) > 0 {
			doc.section("Tag Filters", filtersText(report.Model.AppliedFilters))
		}
		doc.footer(page)
	}

	if len(report.Errors) > 0 || page == 0 {
		page++
		doc.header([3]int{192, 0, 0}, "Run Errors", "Run ID: "+report.Model.RunID)
		var lines strings.Builder
		for _, e := range report.Errors {
			lines.WriteString(e.Error() + "\n")
		}
		doc.section("Errors", strings.TrimSpace(lines.String()))
		doc.footer(page)
	}

	return doc.save(outputFilename)
}

func filtersText(preds []entity.TagPredicate) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = p.String()
	}
	return strings.Join(parts, " AND ")
}
