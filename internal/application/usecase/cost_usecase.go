package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/application/aggregation"
	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
	"github.com/diillson/aws-costlens/internal/shared/types"
)

// defaultReportName é usado pelo export quando nenhum nome é informado.
const defaultReportName = "aws-costlens-report"

// RunCost agrega os custos, exibe o dashboard e exporta os relatórios pedidos.
// Retorna ErrNoProfilesResolved quando nenhum perfil resolveu identidade.
func (uc *DashboardUseCase) RunCost(ctx context.Context, args *types.CLIArgs) error {
	result, err := uc.aggregate(ctx, args)
	if err != nil {
		return err
	}

	if len(result.Model.Accounts) > 0 {
		table := uc.costTable(ctx, result, args)
		uc.console.Print(table.Render())
		uc.printTotals(result.Model)
	} else if !result.Failed() {
		uc.console.LogWarning("No cost data found for the selected profiles and filters")
	}
	uc.reportRunErrors(result.Errors)

	if args.ReportName != "" && len(args.ReportType) > 0 {
		if err := uc.exportCost(ctx, result, args); err != nil {
			uc.logger.Warn("cost export failed", zap.Error(err))
		}
	}

	if result.Failed() {
		return types.ErrNoProfilesResolved
	}
	return nil
}

// RunExport agrega e grava os relatórios sem exibir o dashboard.
// Falhas de exportação fazem o comando falhar.
func (uc *DashboardUseCase) RunExport(ctx context.Context, args *types.CLIArgs) error {
	if args.ReportName == "" {
		args.ReportName = defaultReportName
	}
	if len(args.ReportType) == 0 {
		args.ReportType = []string{"json"}
	}

	result, err := uc.aggregate(ctx, args)
	if err != nil {
		return err
	}
	uc.reportRunErrors(result.Errors)

	if err := uc.exportCost(ctx, result, args); err != nil {
		return err
	}
	if result.Failed() {
		return types.ErrNoProfilesResolved
	}
	return nil
}

// aggregate valida a entrada e executa o motor de agregação.
func (uc *DashboardUseCase) aggregate(ctx context.Context, args *types.CLIArgs) (*aggregation.Result, error) {
	if err := validateReportTypes(args); err != nil {
		return nil, err
	}
	tags, err := parseTags(args)
	if err != nil {
		return nil, err
	}
	profiles, err := uc.InitializeProfiles(args)
	if err != nil {
		return nil, err
	}

	status := uc.console.Status(fmt.Sprintf("Aggregating costs for %d profile(s)...", len(profiles)))
	result, err := uc.newEngine(args).Run(ctx, aggregation.Request{
		Profiles: profiles,
		Regions:  args.Regions,
		TimeSpec: args.TimeRange,
		Merge:    args.Merge,
		Tags:     tags,
	})
	status.Stop()
	if err != nil {
		return nil, err
	}

	uc.console.LogInfo("Results for %d of %d profiles", result.ResolvedProfiles, result.Profiles)
	return result, nil
}

// costTable cria a tabela do dashboard com nomes de colunas dinâmicos.
func (uc *DashboardUseCase) costTable(ctx context.Context, result *aggregation.Result, args *types.CLIArgs) types.TableInterface {
	periods := result.Model.Periods
	table := uc.console.CreateTable()
	table.AddColumn("AWS Account")
	table.AddColumn("Profiles")
	table.AddColumn(fmt.Sprintf("%s\n(%s)", periods.PreviousName, periods.Previous))
	table.AddColumn(fmt.Sprintf("%s\n(%s)", periods.CurrentName, periods.Current))
	table.AddColumn("Change")
	table.AddColumn("Cost By Service")
	table.AddColumn("Budget Status")

	for _, acc := range result.Model.Accounts {
		table.AddRow(
			acc.AccountID,
			strings.Join(acc.ProfileNames, "\n"),
			money(acc.Currency, acc.PreviousTotal),
			money(acc.Currency, acc.CurrentTotal),
			changeLabel(acc.Delta, acc.DeltaPct),
			strings.Join(serviceLines(acc), "\n"),
			strings.Join(uc.budgetLines(ctx, acc, args), "\n"),
		)
	}
	return table
}

func (uc *DashboardUseCase) printTotals(model entity.NormalizedCostModel) {
	current, previous := model.CurrentTotal(), model.PreviousTotal()
	uc.console.Printf("\n%s %s (%s: %s)\n",
		pterm.FgCyan.Sprint("Total:"),
		money(model.Currency, current),
		model.Periods.PreviousName,
		money(model.Currency, previous))
}

// serviceLines lista os serviços por custo atual, do maior para o menor.
func serviceLines(acc entity.AccountCostRecord) []string {
	services := acc.Services()
	if len(services) == 0 {
		return []string{"No costs associated with this account"}
	}
	lines := make([]string, 0, len(services))
	for _, sc := range services {
		line := fmt.Sprintf("%s: %s", sc.Service, money(acc.Currency, sc.Current))
		if sc.DeltaPct.NewSpend {
			line += " " + pterm.FgRed.Sprint("(new)")
		}
		lines = append(lines, line)
	}
	return lines
}

// budgetLines consulta os orçamentos da conta pelo primeiro perfil do registro.
func (uc *DashboardUseCase) budgetLines(ctx context.Context, acc entity.AccountCostRecord, args *types.CLIArgs) []string {
	if len(acc.ProfileNames) == 0 {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout(args))
	defer cancel()

	budgets, err := uc.awsRepo.Budgets(callCtx, acc.ProfileNames[0], acc.AccountID)
	if err != nil {
		uc.logger.Debug("budgets unavailable", zap.String("account_id", acc.AccountID), zap.Error(err))
		return []string{"Budgets unavailable"}
	}
	return formatBudgetInfo(acc.Currency, budgets)
}

// formatBudgetInfo formata as informações do orçamento para exibição.
func formatBudgetInfo(currency string, budgets []entity.BudgetInfo) []string {
	if len(budgets) == 0 {
		return []string{"No budgets found;\nCreate a budget for this account"}
	}

	var lines []string
	for _, b := range budgets {
		actual := fmt.Sprintf("%s actual: %s", b.Name, money(currency, b.Actual))
		if b.Exceeded() {
			actual = pterm.FgRed.Sprint(actual)
		}
		lines = append(lines, fmt.Sprintf("%s limit: %s", b.Name, money(currency, b.Limit)), actual)
		if b.Forecast.IsPositive() {
			lines = append(lines, fmt.Sprintf("%s forecast: %s", b.Name, money(currency, b.Forecast)))
		}
	}
	return lines
}

// exportCost grava cada formato pedido e, com bucket configurado, envia ao S3.
func (uc *DashboardUseCase) exportCost(ctx context.Context, result *aggregation.Result, args *types.CLIArgs) error {
	report := repository.CostReport{Model: result.Model, Errors: result.Errors}

	var failed []string
	for _, reportType := range args.ReportType {
		var path string
		var err error
		switch reportType {
		case "csv":
			path, err = uc.exportRepo.ExportToCSV(report, args.ReportName, args.Dir)
		case "json":
			path, err = uc.exportRepo.ExportToJSON(report, args.ReportName, args.Dir)
		case "pdf":
			path, err = uc.exportRepo.ExportToPDF(report, args.ReportName, args.Dir)
		}
		if err != nil {
			uc.console.LogError("Failed to export to %s: %s", strings.ToUpper(reportType), err)
			failed = append(failed, reportType)
			continue
		}
		uc.console.LogSuccess("Successfully exported to %s: %s", strings.ToUpper(reportType), path)

		if err := uc.upload(ctx, uploadProfile(result.Sessions), path, args); err != nil {
			uc.console.LogError("Failed to upload %s: %s", path, err)
			failed = append(failed, reportType+" upload")
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("export failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

// uploadProfile escolhe o primeiro perfil resolvido para autenticar o upload.
func uploadProfile(sessions []*entity.ProfileSession) string {
	for _, s := range sessions {
		if s.Resolved() {
			return s.ProfileName
		}
	}
	return ""
}
