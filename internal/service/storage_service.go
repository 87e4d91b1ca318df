package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	config "github.com/maheshrc27/insights-pipeline/configs"
)

var ErrStorageNotConfigured = errors.New("object storage is not configured")

// ObjectUploader is the part of the S3 client the storage service uses.
type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type StorageService interface {
	Upload(ctx context.Context, key string, file []byte, contentType string) (string, error)
}

type storageService struct {
	cfg    config.Storage
	client ObjectUploader
	log    zerolog.Logger
}

// NewStorageService builds an S3 client from cfg. A non-empty Endpoint points
// the client at an S3 compatible store such as Cloudflare R2.
func NewStorageService(ctx context.Context, cfg config.Storage, log zerolog.Logger) (StorageService, error) {
	if cfg.BucketName == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrStorageNotConfigured
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewStorageServiceWithClient(cfg, client, log), nil
}

func NewStorageServiceWithClient(cfg config.Storage, client ObjectUploader, log zerolog.Logger) StorageService {
	return &storageService{cfg: cfg, client: client, log: log}
}

// Upload stores file under key with public read access and returns its URL.
func (s *storageService) Upload(ctx context.Context, key string, file []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file),
		ContentType: aws.String(contentType),
	}
	if s.cfg.Endpoint == "" {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("object upload failed")
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	publicURL := s.PublicURL(key)
	s.log.Info().Str("key", key).Str("url", publicURL).Int("bytes", len(file)).Msg("object uploaded")
	return publicURL, nil
}

// PublicURL uses PublicBaseURL when set, otherwise the AWS virtual-hosted form.
func (s *storageService) PublicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + escaped
	}
	if s.cfg.Region == "" || s.cfg.Region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.BucketName, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.BucketName, s.cfg.Region, escaped)
}
