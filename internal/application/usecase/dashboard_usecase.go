package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/application/aggregation"
	"github.com/diillson/aws-costlens/internal/domain/entity"
	"github.com/diillson/aws-costlens/internal/domain/repository"
	"github.com/diillson/aws-costlens/internal/shared/types"
)

// UploaderFactory devolve o uploader autenticado com o perfil informado.
type UploaderFactory func(profile string) repository.Uploader

// DashboardUseCase handles the cost, history, scan and export commands.
type DashboardUseCase struct {
	awsRepo    repository.AWSRepository
	exportRepo repository.ExportRepository
	uploaders  UploaderFactory
	console    types.ConsoleInterface
	logger     *zap.Logger
	now        func() time.Time
}

// NewDashboardUseCase creates a new dashboard use case. uploaders may be nil
// when S3 upload is not available.
func NewDashboardUseCase(
	awsRepo repository.AWSRepository,
	exportRepo repository.ExportRepository,
	uploaders UploaderFactory,
	console types.ConsoleInterface,
	logger *zap.Logger,
) *DashboardUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardUseCase{
		awsRepo:    awsRepo,
		exportRepo: exportRepo,
		uploaders:  uploaders,
		console:    console,
		logger:     logger,
		now:        time.Now,
	}
}

// InitializeProfiles determines which AWS profiles to use based on CLI args.
func (uc *DashboardUseCase) InitializeProfiles(args *types.CLIArgs) ([]string, error) {
	availableProfiles := uc.awsRepo.ListProfiles()
	if len(availableProfiles) == 0 {
		return nil, types.ErrNoProfilesFound
	}
	available := make(map[string]bool, len(availableProfiles))
	for _, p := range availableProfiles {
		available[p] = true
	}

	var profilesToUse []string
	switch {
	case len(args.Profiles) > 0:
		for _, profile := range args.Profiles {
			profile = strings.TrimSpace(profile)
			if profile == "" {
				continue
			}
			if !available[profile] {
				uc.console.LogWarning("Profile '%s' not found in AWS configuration", profile)
				continue
			}
			profilesToUse = append(profilesToUse, profile)
		}
		if len(profilesToUse) == 0 {
			return nil, types.ErrNoValidProfilesFound
		}
	case args.All:
		profilesToUse = availableProfiles
	case available["default"]:
		profilesToUse = []string{"default"}
	default:
		profilesToUse = availableProfiles
		uc.console.LogWarning("No default profile found. Using all available profiles.")
	}

	return profilesToUse, nil
}

func (uc *DashboardUseCase) callTimeout(args *types.CLIArgs) time.Duration {
	if args.Timeout > 0 {
		return args.Timeout
	}
	return aggregation.DefaultCallTimeout
}

func (uc *DashboardUseCase) workers(args *types.CLIArgs) int {
	if args.Workers > 0 {
		return args.Workers
	}
	return aggregation.DefaultWorkers
}

func (uc *DashboardUseCase) newEngine(args *types.CLIArgs) *aggregation.Engine {
	return aggregation.NewEngine(uc.awsRepo, uc.awsRepo, uc.awsRepo, aggregation.Config{
		Workers:     uc.workers(args),
		CallTimeout: uc.callTimeout(args),
		Now:         uc.now,
	}, uc.logger)
}

// resolveSessions resolve as identidades fora do motor (history e scan) e
// mostra os perfis que ficaram de fora.
func (uc *DashboardUseCase) resolveSessions(ctx context.Context, profiles []string, args *types.CLIArgs) ([]*entity.ProfileSession, error) {
	resolver := aggregation.NewSessionResolver(uc.awsRepo, uc.callTimeout(args), uc.logger)
	sessions, runErrs, err := resolver.ResolveAll(ctx, profiles, args.Regions, uc.workers(args))
	if err != nil {
		return nil, err
	}
	uc.reportRunErrors(runErrs)

	resolved := 0
	for _, s := range sessions {
		if s.Resolved() {
			resolved++
		}
	}
	uc.console.LogInfo("Resolved %d of %d profiles", resolved, len(profiles))
	if resolved == 0 {
		return sessions, types.ErrNoProfilesResolved
	}
	return sessions, nil
}

// reportRunErrors mostra os erros não fatais agrupados por gravidade.
func (uc *DashboardUseCase) reportRunErrors(errs []*entity.RunError) {
	for _, e := range errs {
		switch e.Kind {
		case entity.KindIdentityUnresolved:
			uc.console.LogError("Profile %s skipped: could not resolve account identity (%s)", e.Profile, e.Reason())
		case entity.KindNoProfilesResolved:
			uc.console.LogError("No profile could be resolved: %s", e.Reason())
		case entity.KindCurrencyMismatch:
			uc.console.LogWarning("Profile %s excluded: %s", e.Profile, e.Reason())
		case entity.KindCreditExcluded:
			uc.console.LogWarning("Credit not netted for %s", describeScope(e))
		default:
			uc.console.LogWarning("Partial data for %s", describeScope(e))
		}
	}
}

func describeScope(e *entity.RunError) string {
	var parts []string
	if e.Profile != "" {
		parts = append(parts, "profile "+e.Profile)
	}
	if e.Region != "" {
		parts = append(parts, "region "+e.Region)
	}
	if e.Period != "" {
		parts = append(parts, e.Period+" period")
	}
	scope := strings.Join(parts, ", ")
	if reason := e.Reason(); reason != "" {
		scope = fmt.Sprintf("%s: %s", scope, reason)
	}
	return scope
}

func parseTags(args *types.CLIArgs) ([]entity.TagPredicate, error) {
	if len(args.Tag) == 0 {
		return nil, nil
	}
	return entity.ParseTagPredicates(args.Tag)
}

// validateReportTypes normaliza e rejeita formatos desconhecidos antes de qualquer chamada.
func validateReportTypes(args *types.CLIArgs) error {
	for i, rt := range args.ReportType {
		rt = strings.ToLower(strings.TrimSpace(rt))
		switch rt {
		case "csv", "json", "pdf":
			args.ReportType[i] = rt
		default:
			return fmt.Errorf("%w: %q (use csv, json or pdf)", types.ErrUnsupportedReport, rt)
		}
	}
	return nil
}
