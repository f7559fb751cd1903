package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
	"github.com/diillson/aws-costlens/internal/shared/types"
)

// DefaultHistoryMonths é a janela do histórico mensal, mês corrente incluso.
const DefaultHistoryMonths = 6

// RunHistory exibe o custo mensal de cada perfil ou, com merge, de cada conta.
// Contas com vários perfis são consultadas pelo primeiro perfil do grupo.
func (uc *DashboardUseCase) RunHistory(ctx context.Context, args *types.CLIArgs) error {
	if err := validateReportTypes(args); err != nil {
		return err
	}
	tags, err := parseTags(args)
	if err != nil {
		return err
	}
	profiles, err := uc.InitializeProfiles(args)
	if err != nil {
		return err
	}
	months := args.Months
	if months <= 0 {
		months = DefaultHistoryMonths
	}

	uc.console.LogInfo("Analysing cost trends for the last %d months...", months)
	sessions, err := uc.resolveSessions(ctx, profiles, args)
	if err != nil {
		return err
	}

	groups := entity.GroupSessions(sessions, args.Merge)
	progress := uc.console.ProgressWithTotal(len(groups), "Fetching monthly costs")

	var series []repository.TrendSeries
	for _, group := range groups {
		costs, err := uc.monthlyCosts(ctx, group, months, tags, args)
		progress.Increment()
		if err != nil {
			uc.console.LogError("Error getting trend for account %s: %s", group.AccountID, err)
			continue
		}
		series = append(series, repository.TrendSeries{
			AccountID: group.AccountID,
			Profiles:  group.Profiles,
			Months:    costs,
		})
	}
	progress.Stop()

	for _, s := range series {
		if len(s.Months) == 0 {
			uc.console.LogWarning("No trend data available for account %s", s.AccountID)
			continue
		}
		label := "Profile"
		if len(s.Profiles) > 1 {
			label = "Profiles"
		}
		uc.console.Printf("\n%s\n", pterm.FgYellow.Sprintf("Account: %s (%s: %s)", s.AccountID, label, strings.Join(s.Profiles, ", ")))
		uc.console.DisplayTrendBars("AWS Cost Trend Analysis", toUIMonthlyCosts("", s.Months))
	}

	if args.ReportName != "" && hasReportType(args.ReportType, "json") {
		path, err := uc.exportRepo.ExportTrendToJSON(series, args.ReportName, args.Dir)
		if err != nil {
			uc.console.LogError("Failed to export trend to JSON: %s", err)
		} else {
			uc.console.LogSuccess("Successfully exported trend to JSON: %s", path)
			if err := uc.upload(ctx, uploadProfile(sessions), path, args); err != nil {
				uc.console.LogError("Failed to upload %s: %s", path, err)
			}
		}
	}
	return nil
}

func (uc *DashboardUseCase) monthlyCosts(
	ctx context.Context,
	group entity.ProfileGroup,
	months int,
	tags []entity.TagPredicate,
	args *types.CLIArgs,
) ([]entity.MonthlyCost, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout(args))
	defer cancel()

	costs, err := uc.awsRepo.MonthlyCosts(callCtx, group.Primary(), months, tags)
	if err != nil {
		uc.logger.Warn("monthly costs failed",
			zap.String("account_id", group.AccountID),
			zap.String("profile", group.Primary()),
			zap.Error(err))
		return nil, fmt.Errorf("profile %s: %w", group.Primary(), err)
	}
	return costs, nil
}

func hasReportType(reportTypes []string, want string) bool {
	for _, t := range reportTypes {
		if t == want {
			return true
		}
	}
	return false
}
