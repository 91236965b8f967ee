// Package storage archives run reports to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/config"
	"go.uber.org/zap"
)

// PutObjectAPI is the subset of the S3 client the archive uses
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ReportArchive writes migration run and rollover reports as JSON objects.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3ReportArchive struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3ReportArchive creates an archive from configuration. Without static
// keys the default AWS credential chain is used.
func NewS3ReportArchive(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*S3ReportArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return NewS3ReportArchiveWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3ReportArchiveWithClient creates an archive over an existing client
func NewS3ReportArchiveWithClient(client PutObjectAPI, bucket, prefix string, logger *zap.Logger) *S3ReportArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3ReportArchive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// ArchiveRun stores a run report under migration-runs/YYYY/MM/DD/<run_id>.json
func (a *S3ReportArchive) ArchiveRun(ctx context.Context, report *tenant.RunReport) (string, error) {
	key := path.Join(a.prefix, "migration-runs", report.StartedAt.UTC().Format("2006/01/02"), report.RunID+".json")
	payload := struct {
		*tenant.RunReport
		Summary tenant.RunSummary `json:"summary"`
	}{report, report.Summary()}
	return key, a.put(ctx, key, payload)
}

// ArchiveRollover stores a rollover report under rollovers/<target>/<timestamp>.json
func (a *S3ReportArchive) ArchiveRollover(ctx context.Context, report *tenant.RolloverReport) (string, error) {
	key := path.Join(a.prefix, "rollovers", report.Target, time.Now().UTC().Format("20060102T150405Z")+".json")
	return key, a.put(ctx, key, report)
}

func (a *S3ReportArchive) put(ctx context.Context, key string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	a.logger.Debug("Report archived", zap.String("bucket", a.bucket), zap.String("key", key))
	return nil
}

// NopReportArchive discards reports; used when storage is disabled
type NopReportArchive struct{}

// ArchiveRun implements the archive with no effect
func (NopReportArchive) ArchiveRun(context.Context, *tenant.RunReport) (string, error) {
	return "", nil
}

// ArchiveRollover implements the archive with no effect
func (NopReportArchive) ArchiveRollover(context.Context, *tenant.RolloverReport) (string, error) {
	return "", nil
}
