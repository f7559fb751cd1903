package usecase

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/diillson/aws-costlens/internal/shared/types"
)

var errNoUploader = errors.New("S3 upload is not available")

// upload envia o relatório ao bucket configurado; sem bucket não faz nada.
func (uc *DashboardUseCase) upload(ctx context.Context, profile, localPath string, args *types.CLIArgs) error {
	if args.S3Bucket == "" {
		return nil
	}
	if uc.uploaders == nil || profile == "" {
		return errNoUploader
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout(args))
	defer cancel()

	uri, err := uc.uploaders(profile).Upload(callCtx, localPath, args.S3Bucket, objectKey(args.S3Prefix, localPath))
	if err != nil {
		return err
	}
	uc.console.LogSuccess("Uploaded to %s", uri)
	return nil
}

// objectKey junta prefixo e nome do arquivo no formato de chave do S3.
func objectKey(prefix, localPath string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return filepath.Base(localPath)
	}
	return path.Join(prefix, filepath.Base(localPath))
}
