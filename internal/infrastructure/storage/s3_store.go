package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

// S3Config holds bucket settings. PublicBaseURL, when set, is a CDN origin
// that serves the bucket's keys.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// S3Store implements outbound.ObjectStore on Amazon S3 or an S3-compatible service
type S3Store struct {
	cfg      S3Config
	client   *s3.S3
	uploader *s3manager.Uploader
	logger   *zap.Logger
}

// NewS3Store creates an S3 backed object store
func NewS3Store(cfg S3Config, logger *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		cfg:      cfg,
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		logger:   logger.Named("s3-store"),
	}, nil
}

// Upload stores data as a publicly readable object
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String(s3.ObjectCannedACLPublicRead),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	s.logger.Debug("Object uploaded", zap.String("key", key), zap.String("location", out.Location))
	return nil
}

// PublicURL returns the CDN URL for key, or the bucket's own object URL
func (s *S3Store) PublicURL(ctx context.Context, key string) (string, error) {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key, nil
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)
	if err := req.Build(); err != nil {
		return "", fmt.Errorf("s3 object url: %w", err)
	}
	return req.HTTPRequest.URL.String(), nil
}
