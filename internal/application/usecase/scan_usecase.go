package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/shared/types"
)

// maxListedResources limita quantos ids aparecem por célula da tabela.
const maxListedResources = 5

// RunScan procura recursos ociosos ou sem tags em cada perfil resolvido.
func (uc *DashboardUseCase) RunScan(ctx context.Context, args *types.CLIArgs) error {
	if err := validateReportTypes(args); err != nil {
		return err
	}
	profiles, err := uc.InitializeProfiles(args)
	if err != nil {
		return err
	}

	uc.console.LogInfo("Preparing your resource scan...")
	sessions, err := uc.resolveSessions(ctx, profiles, args)
	if err != nil {
		return err
	}

	var resolved []*entity.ProfileSession
	for _, s := range sessions {
		if s.Resolved() {
			resolved = append(resolved, s)
		}
	}

	progress := uc.console.ProgressWithTotal(len(resolved), "Scanning resources")
	reports := make([]*entity.ScanReport, 0, len(resolved))
	for _, s := range resolved {
		reports = append(reports, uc.scanProfile(ctx, s, args))
		progress.Increment()
		if ctx.Err() != nil {
			progress.Stop()
			return ctx.Err()
		}
	}
	progress.Stop()

	uc.console.Print(uc.scanTable(reports).Render())
	for _, rep := range reports {
		uc.reportRunErrors(rep.Errors)
	}

	if args.ReportName != "" && len(args.ReportType) > 0 {
		uc.exportScan(ctx, reports, uploadProfile(sessions), args)
	}
	return nil
}

func (uc *DashboardUseCase) scanProfile(ctx context.Context, session *entity.ProfileSession, args *types.CLIArgs) *entity.ScanReport {
	profile := session.ProfileName
	regions := args.Regions
	if len(regions) == 0 {
		var err error
		regions, err = uc.awsRepo.AccessibleRegions(ctx, profile)
		if err != nil {
			uc.logger.Warn("listing regions failed", zap.String("profile", profile), zap.Error(err))
		}
	}

	report := entity.NewScanReport(profile, session.AccountID(), regions)
	findings, errs := uc.awsRepo.ScanResources(ctx, profile, regions)
	for cat, byRegion := range findings {
		for region, ids := range byRegion {
			report.Add(cat, region, ids)
		}
	}
	report.Errors = errs
	return report
}

func (uc *DashboardUseCase) scanTable(reports []*entity.ScanReport) types.TableInterface {
	table := uc.console.CreateTable()
	table.AddColumn("Profile")
	table.AddColumn("Account ID")
	for _, cat := range entity.ScanCategories {
		table.AddColumn(string(cat))
	}

	for _, rep := range reports {
		row := []interface{}{rep.Profile, rep.AccountID}
		for _, cat := range entity.ScanCategories {
			row = append(row, findingsCell(rep.Findings[cat]))
		}
		table.AddRow(row...)
	}
	return table
}

// findingsCell mostra os ids por região, truncando listas longas.
func findingsCell(findings entity.RegionFindings) string {
	if findings.Count() == 0 {
		return pterm.FgGreen.Sprint("None")
	}
	var lines []string
	for _, region := range findings.Regions() {
		ids := findings[region]
		shown := ids
		if len(shown) > maxListedResources {
			shown = shown[:maxListedResources]
		}
		line := fmt.Sprintf("%s:\n%s", region, strings.Join(shown, "\n"))
		if extra := len(ids) - len(shown); extra > 0 {
			line += fmt.Sprintf("\n... and %d more", extra)
		}
		lines = append(lines, pterm.FgYellow.Sprint(line))
	}
	return strings.Join(lines, "\n\n")
}

func (uc *DashboardUseCase) exportScan(ctx context.Context, reports []*entity.ScanReport, profile string, args *types.CLIArgs) {
	for _, reportType := range args.ReportType {
		var path string
		var err error
		switch reportType {
		case "csv":
			path, err = uc.exportRepo.ExportScanReportToCSV(reports, args.ReportName, args.Dir)
		case "json":
			path, err = uc.exportRepo.ExportScanReportToJSON(reports, args.ReportName, args.Dir)
		case "pdf":
			path, err = uc.exportRepo.ExportScanReportToPDF(reports, args.ReportName, args.Dir)
		}
		if err != nil {
			uc.console.LogError("Failed to export scan report to %s: %s", strings.ToUpper(reportType), err)
			continue
		}
		uc.console.LogSuccess("Successfully exported scan report to %s: %s", strings.ToUpper(reportType), path)
		if err := uc.upload(ctx, profile, path, args); err != nil {
			uc.console.LogError("Failed to upload %s: %s", path, err)
		}
	}
}
