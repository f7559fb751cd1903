package aws

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/repository"
)

// S3Uploader envia relatórios exportados para um bucket usando as credenciais de um perfil.
type S3Uploader struct {
	repo    *AWSRepositoryImpl
	profile string
}

var _ repository.Uploader = (*S3Uploader)(nil)

// NewS3Uploader creates an uploader that authenticates with profile.
func NewS3Uploader(repo *AWSRepositoryImpl, profile string) *S3Uploader {
	return &S3Uploader{repo: repo, profile: profile}
}

// Upload stores localPath at s3://bucket/key and returns that URI.
func (u *S3Uploader) Upload(ctx context.Context, localPath, bucket, key string) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("bucket name is required")
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open report %s: %w", localPath, err)
	}
	defer file.Close()

	client, err := u.repo.getServiceClient(ctx, u.profile, "", "s3")
	if err != nil {
		return "", err
	}

	_, err = client.(*s3.Client).PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3://%s/%s: %w", filepath.Base(localPath), bucket, key, err)
	}

	uri := fmt.Sprintf("s3://%s/%s", bucket, key)
	u.repo.logger.Info("report uploaded", zap.String("uri", uri))
	return uri, nil
}

func contentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
