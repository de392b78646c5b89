package publish

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/stillreel/internal/config"
)

// S3 uploads videos to a bucket
type S3 struct {
	logger zerolog.Logger
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 uses the default AWS credential chain with overrides from cfg.
// Extra load options are applied last.
func NewS3(ctx context.Context, logger zerolog.Logger, cfg config.S3Config, optFns ...func(*awsconfig.LoadOptions) error) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	loadOpts = append(loadOpts, optFns...)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3{
		logger: logger.With().Str("component", "s3").Logger(),
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *S3) Name() string { return "s3" }

// Publish uploads the artifact and returns its s3:// URI
func (s *S3) Publish(ctx context.Context, a Artifact) (string, error) {
	file, err := os.Open(a.Path)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat video: %w", err)
	}

	key := ObjectKey(s.prefix, a.RunID)
	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Int64("bytes", info.Size()).
		Msg("uploading video")

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
