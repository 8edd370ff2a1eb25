package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gitlab.com/resultrelay.net/internal/config"
	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
)

var _ secondary.Presigner = (*Presigner)(nil)

// Presigner generates time-limited GET URLs for result objects
type Presigner struct {
	presignClient *s3.PresignClient
	bucket        string
	expiry        time.Duration
	logger        primary.Logger
}

// NewPresigner creates a new S3 presigner
func NewPresigner(ctx context.Context, cfg *config.S3Config, logger primary.Logger) (*Presigner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)

	return &Presigner{
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		expiry:        cfg.PresignExpiry,
		logger:        logger,
	}, nil
}

// Sign returns a presigned GET URL for the given object key
func (p *Presigner) Sign(ctx context.Context, key string) (string, error) {
	req, err := p.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		p.logger.Error("Failed to presign result object", "key", key, "error", err)
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}

	return req.URL, nil
}
