package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

// ExportScanReportToCSV grava uma linha por perfil, categoria e região com achados.
func (r *ExportRepositoryImpl) ExportScanReportToCSV(reports []*entity.ScanReport, filename, outputDir string) (string, error) {
	outputFilename, err := r.generateFilename(filename, outputDir, "csv")
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating scan CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(scanRecords(reports)); err != nil {
		return "", fmt.Errorf("error writing scan CSV records: %w", err)
	}
	return filepath.Abs(outputFilename)
}

func scanRecords(reports []*entity.ScanReport) [][]string {
	records := [][]string{{"Profile", "Account ID", "Category", "Region", "Count", "Resources"}}
	for _, rep := range reports {
		for _, cat := range entity.ScanCategories {
			findings := rep.Findings[cat]
			for _, region := range findings.Regions() {
				ids := findings[region]
				records = append(records, []string{
					rep.Profile, rep.AccountID, string(cat), region,
					fmt.Sprint(len(ids)), strings.Join(ids, " "),
				})
			}
		}
	}
	return records
}

// ExportScanReportToJSON grava os relatórios como estão, incluindo erros por região.
func (r *ExportRepositoryImpl) ExportScanReportToJSON(reports []*entity.ScanReport, filename, outputDir string) (string, error) {
	outputFilename, err := r.generateFilename(filename, outputDir, "json")
	if err != nil {
		return "", err
	}
	if reports == nil {
		reports = []*entity.ScanReport{}
	}
	if err := writeJSON(outputFilename, reports); err != nil {
		return "", err
	}
	return filepath.Abs(outputFilename)
}

// ExportScanReportToPDF gera uma página por perfil, com uma seção por categoria.
func (r *ExportRepositoryImpl) ExportScanReportToPDF(reports []*entity.ScanReport, filename, outputDir string) (string, error) {
	outputFilename, err := r.generateFilename(filename, outputDir, "pdf")
	if err != nil {
		return "", err
	}

	doc := newPDFDocument("Resource Scan Report", r.now())
	for i, rep := range reports {
		doc.header([3]int{192, 0, 0}, "Resource Scan: "+rep.Profile, "Account ID: "+rep.AccountID)

		clean := true
		for _, cat := range entity.ScanCategories {
			findings := rep.Findings[cat]
			if findings.Count() == 0 {
				continue
			}
			clean = false
			var b strings.Builder
			for _, region := range findings.Regions() {
				fmt.Fprintf(&b, "%s: %s\n", region, strings.Join(findings[region], ", "))
			}
			doc.section(fmt.Sprintf("%s (%d)", cat, findings.Count()), strings.TrimSpace(b.String()))
		}
		if clean {
			doc.section("Findings", "No issues found.")
		}

		if len(rep.Errors) > 0 {
			var b strings.Builder
			for _, e := range rep.Errors {
				b.WriteString(e.Error() + "\n")
			}
			doc.section("Errors", strings.TrimSpace(b.String()))
		}
		doc.footer(i + 1)
	}
	if len(reports) == 0 {
		doc.header([3]int{192, 0, 0}, "Resource Scan", "No profiles scanned")
		doc.footer(1)
	}

	return doc.save(outputFilename)
}
