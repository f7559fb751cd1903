package repository

import (
	"context"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

// CostReport é o que os exportadores recebem: o modelo e os erros não fatais da execução.
type CostReport struct {
	Model  entity.NormalizedCostModel
	Errors []*entity.RunError
}

// TrendSeries is the monthly history of one profile or merged account.
type TrendSeries struct {
	AccountID string               `json:"account_id"`
	Profiles  []string             `json:"profiles"`
	Months    []entity.MonthlyCost `json:"monthly_costs"`
}

type ExportRepository interface {
	ExportToCSV(report CostReport, filename string, outputDir string) (string, error)
	ExportToJSON(report CostReport, filename string, outputDir string) (string, error)
	ExportToPDF(report CostReport, filename string, outputDir string) (string, error)

	ExportScanReportToCSV(reports []*entity.ScanReport, filename string, outputDir string) (string, error)
	ExportScanReportToJSON(reports []*entity.ScanReport, filename string, outputDir string) (string, error)
	ExportScanReportToPDF(reports []*entity.ScanReport, filename string, outputDir string) (string, error)

	ExportTrendToJSON(series []TrendSeries, filename string, outputDir string) (string, error)
}

// Uploader envia relatórios gerados para um armazenamento remoto.
type Uploader interface {
	Upload(ctx context.Context, localPath, bucket, key string) (string, error)
}
