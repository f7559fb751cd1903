package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/adapter/driven/aws"
	"github.com/diillson/aws-costlens/internal/adapter/driven/config"
	"github.com/diillson/aws-costlens/internal/adapter/driven/export"
	"github.com/diillson/aws-costlens/internal/adapter/driving/cli"
	"github.com/diillson/aws-costlens/internal/application/usecase"
	"github.com/diillson/aws-costlens/internal/domain/repository"
	"github.com/diillson/aws-costlens/internal/shared/types"
	"github.com/diillson/aws-costlens/pkg/console"
	"github.com/diillson/aws-costlens/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewCLIApp(version.Version, config.NewConfigRepository(), newUseCase)

	if err := app.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// newUseCase liga os adaptadores AWS, de exportação e de console ao caso de uso.
func newUseCase(_ *types.CLIArgs, logger *zap.Logger) *usecase.DashboardUseCase {
	opts := aws.DefaultOptions()
	opts.Logger = logger
	awsRepo := aws.NewAWSRepository(opts)

	return usecase.NewDashboardUseCase(
		awsRepo,
		export.NewExportRepository(),
		func(profile string) repository.Uploader { return aws.NewS3Uploader(awsRepo, profile) },
		console.NewConsole(),
		logger,
	)
}
