package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/application/usecase"
	"github.com/diillson/aws-costlens/internal/domain/repository"
	"github.com/diillson/aws-costlens/internal/logging"
	"github.com/diillson/aws-costlens/internal/shared/types"
	"github.com/diillson/aws-costlens/pkg/version"
)

// UseCaseFactory monta o caso de uso depois que flags, config e logger estão prontos.
type UseCaseFactory func(args *types.CLIArgs, logger *zap.Logger) *usecase.DashboardUseCase

// runner é a ação de um subcomando sobre o caso de uso.
type runner func(ctx context.Context, uc *usecase.DashboardUseCase, args *types.CLIArgs) error

// CLIApp represents the command-line interface application.
type CLIApp struct {
	rootCmd    *cobra.Command
	configRepo repository.ConfigRepository
	factory    UseCaseFactory
	version    string
}

// NewCLIApp cria uma nova aplicação CLI.
func NewCLIApp(versionStr string, configRepo repository.ConfigRepository, factory UseCaseFactory) *CLIApp {
	app := &CLIApp{
		version:    versionStr,
		configRepo: configRepo,
		factory:    factory,
	}

	rootCmd := &cobra.Command{
		Use:           "aws-costlens",
		Short:         "AWS CostLens: multi-profile AWS cost dashboard",
		Long:          "Aggregates AWS Cost Explorer data across CLI profiles, merges profiles of the same account and compares periods.",
		Version:       version.FormatVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          app.command(func(ctx context.Context, uc *usecase.DashboardUseCase, args *types.CLIArgs) error { return uc.RunCost(ctx, args) }),
	}
	rootCmd.SetVersionTemplate(`{{printf "AWS CostLens version: %s\n" .Version}}`)

	pf := rootCmd.PersistentFlags()
	pf.StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	pf.StringSliceP("profiles", "p", nil, "Specific AWS profiles to use (comma-separated)")
	pf.StringSliceP("regions", "r", nil, "AWS regions to query (comma-separated, default: all regions)")
	pf.BoolP("all", "a", false, "Use all available AWS profiles")
	pf.BoolP("merge", "m", false, "Merge profiles that resolve to the same AWS account")
	pf.StringP("report-name", "n", "", "Specify the base name for the report file (without extension)")
	pf.StringSliceP("report-type", "y", []string{"csv"}, "Specify report types: csv, json, pdf")
	pf.StringP("dir", "d", "", "Directory to save the report files (default: current directory)")
	pf.StringP("time-range", "t", "", `Time range: number of days, "last-month" or YYYY-MM-DD:YYYY-MM-DD (default: current month)`)
	pf.StringSliceP("tag", "g", nil, "Cost allocation tag to filter resources, e.g., --tag Team=DevOps")
	pf.String("s3-bucket", "", "Upload generated reports to this S3 bucket")
	pf.String("s3-prefix", "", "Key prefix for uploaded reports")
	pf.Int("workers", 0, "Maximum concurrent AWS calls (default 8)")
	pf.Duration("timeout", 0, "Timeout for each AWS call (default 30s)")
	pf.String("log-level", "", "Diagnostic log level: debug, info, warn, error (default warn)")
	pf.String("log-format", "", "Diagnostic log format: console or json")
	pf.String("log-file", "", "Write diagnostic logs to this file instead of stderr")
	pf.BoolP("quiet", "q", false, "Skip the banner and the new-version check")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "cost",
			Short: "Show current vs previous period cost per account and service",
			RunE:  app.command(func(ctx context.Context, uc *usecase.DashboardUseCase, args *types.CLIArgs) error { return uc.RunCost(ctx, args) }),
		},
		app.historyCommand(),
		&cobra.Command{
			Use:   "scan",
			Short: "Scan for stopped, unused, untagged and idle resources",
			RunE:  app.command(func(ctx context.Context, uc *usecase.DashboardUseCase, args *types.CLIArgs) error { return uc.RunScan(ctx, args) }),
		},
		&cobra.Command{
			Use:   "export",
			Short: "Aggregate costs and write the reports without the dashboard",
			RunE:  app.command(func(ctx context.Context, uc *usecase.DashboardUseCase, args *types.CLIArgs) error { return uc.RunExport(ctx, args) }),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Printf("AWS CostLens version: %s\n", version.FormatVersion())
			},
		},
	)

	app.rootCmd = rootCmd
	return app
}

func (app *CLIApp) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Display monthly cost trend bars",
		RunE:  app.command(func(ctx context.Context, uc *usecase.DashboardUseCase, args *types.CLIArgs) error { return uc.RunHistory(ctx, args) }),
	}
	cmd.Flags().Int("months", usecase.DefaultHistoryMonths, "Number of months to include, current month included")
	return cmd
}

// Execute runs the CLI application.
func (app *CLIApp) Execute(ctx context.Context) error {
	return app.rootCmd.ExecuteContext(ctx)
}

// command adapta um runner para cobra: lê flags e config, monta o logger e o caso de uso.
func (app *CLIApp) command(run runner) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		args, err := app.parseArgs(cmd.Flags())
		if err != nil {
			return err
		}

		logger, err := logging.New(logging.Config{Level: args.LogLevel, Format: args.LogFormat, Output: args.LogFile})
		if err != nil {
			return err
		}
		defer logging.Sync(logger)

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			displayWelcomeBanner(cmd.OutOrStdout())
			go version.CheckLatestVersion(cmd.Context(), app.version)
		}

		return run(cmd.Context(), app.factory(args, logger), args)
	}
}

// parseArgs lê as flags e aplica o arquivo de configuração; flags informadas explicitamente vencem.
func (app *CLIApp) parseArgs(flags *pflag.FlagSet) (*types.CLIArgs, error) {
	args := &types.CLIArgs{}
	args.ConfigFile, _ = flags.GetString("config-file")
	args.Profiles, _ = flags.GetStringSlice("profiles")
	args.Regions, _ = flags.GetStringSlice("regions")
	args.All, _ = flags.GetBool("all")
	args.Merge, _ = flags.GetBool("merge")
	args.ReportName, _ = flags.GetString("report-name")
	args.ReportType, _ = flags.GetStringSlice("report-type")
	args.Dir, _ = flags.GetString("dir")
	args.TimeRange, _ = flags.GetString("time-range")
	args.Tag, _ = flags.GetStringSlice("tag")
	args.S3Bucket, _ = flags.GetString("s3-bucket")
	args.S3Prefix, _ = flags.GetString("s3-prefix")
	args.Workers, _ = flags.GetInt("workers")
	args.Timeout, _ = flags.GetDuration("timeout")
	args.LogLevel, _ = flags.GetString("log-level")
	args.LogFormat, _ = flags.GetString("log-format")
	args.LogFile, _ = flags.GetString("log-file")
	if flags.Lookup("months") != nil {
		args.Months, _ = flags.GetInt("months")
	}

	if args.ConfigFile != "" {
		cfg, err := app.configRepo.LoadConfigFile(args.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err := applyConfig(flags, args, cfg); err != nil {
			return nil, err
		}
	}

	if args.Workers < 0 {
		return nil, fmt.Errorf("--workers must not be negative, got %d", args.Workers)
	}
	if args.Timeout < 0 {
		return nil, fmt.Errorf("--timeout must not be negative, got %s", args.Timeout)
	}

	if args.Dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		args.Dir = cwd
	} else {
		absDir, err := filepath.Abs(args.Dir)
		if err != nil {
			return nil, err
		}
		args.Dir = absDir
	}
	return args, nil
}

// applyConfig copia os valores do arquivo para os campos cuja flag não foi informada.
func applyConfig(flags *pflag.FlagSet, args *types.CLIArgs, cfg *types.Config) error {
	unset := func(name string) bool {
		f := flags.Lookup(name)
		return f == nil || !f.Changed
	}

	if unset("profiles") && len(cfg.Profiles) > 0 {
		args.Profiles = cfg.Profiles
	}
	if unset("regions") && len(cfg.Regions) > 0 {
		args.Regions = cfg.Regions
	}
	if unset("all") && cfg.All {
		args.All = true
	}
	if unset("merge") && cfg.Merge {
		args.Merge = true
	}
	if unset("report-name") && cfg.ReportName != "" {
		args.ReportName = cfg.ReportName
	}
	if unset("report-type") && len(cfg.ReportType) > 0 {
		args.ReportType = cfg.ReportType
	}
	if unset("dir") && cfg.Dir != "" {
		args.Dir = cfg.Dir
	}
	if unset("time-range") && cfg.TimeRange != "" {
		args.TimeRange = cfg.TimeRange
	}
	if unset("tag") && len(cfg.Tag) > 0 {
		args.Tag = cfg.Tag
	}
	if unset("months") && cfg.Months > 0 {
		args.Months = cfg.Months
	}
	if unset("s3-bucket") && cfg.S3Bucket != "" {
		args.S3Bucket = cfg.S3Bucket
	}
	if unset("s3-prefix") && cfg.S3Prefix != "" {
		args.S3Prefix = cfg.S3Prefix
	}
	if unset("workers") && cfg.Workers > 0 {
		args.Workers = cfg.Workers
	}
	if unset("timeout") && cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in config file: %w", err)
		}
		args.Timeout = d
	}
	if unset("log-level") && cfg.LogLevel != "" {
		args.LogLevel = cfg.LogLevel
	}
	if unset("log-format") && cfg.LogFormat != "" {
		args.LogFormat = cfg.LogFormat
	}
	if unset("log-file") && cfg.LogFile != "" {
		args.LogFile = cfg.LogFile
	}
	return nil
}
