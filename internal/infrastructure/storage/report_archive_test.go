package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestNewS3ReportArchive_Validation(t *testing.T) {
	_, err := NewS3ReportArchive(context.Background(), nil, nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3ReportArchive(context.Background(), &config.StorageConfig{Region: "us-east-1"}, nil)
	assert.ErrorContains(t, err, "bucket is required")

	archive, err := NewS3ReportArchive(context.Background(), &config.StorageConfig{
		Bucket: "reports", Region: "us-east-1", Endpoint: "localhost:9000",
		AccessKey: "k", SecretKey: "s", UsePathStyle: true, Prefix: "/tenantdb/",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "tenantdb", archive.prefix)
}

func TestS3ReportArchive_ArchiveRun(t *testing.T) {
	fake := &fakeS3{}
	archive := NewS3ReportArchiveWithClient(fake, "reports", "tenantdb/reports", zaptest.NewLogger(t))

	report := &tenant.RunReport{
		RunID:     "run-42",
		StartedAt: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		Results: []tenant.MigrationResult{
			{Schema: "2025_bu01", Version: "001", Success: true},
			{Schema: "2025_bu02", Version: "001", Error: "syntax error"},
		},
	}

	key, err := archive.ArchiveRun(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, "tenantdb/reports/migration-runs/2026/01/05/run-42.json", key)

	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "reports", aws.ToString(fake.inputs[0].Bucket))
	assert.Equal(t, "application/json", aws.ToString(fake.inputs[0].ContentType))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.bodies[0]), &decoded))
	assert.Equal(t, "run-42", decoded["run_id"])
	summary := decoded["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["failed"])
}

func TestS3ReportArchive_ArchiveRollover(t *testing.T) {
	fake := &fakeS3{}
	archive := NewS3ReportArchiveWithClient(fake, "reports", "", nil)

	key, err := archive.ArchiveRollover(context.Background(), &tenant.RolloverReport{Source: "2025_bu01", Target: "2026_bu01"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "rollovers/2026_bu01/"))
	assert.Contains(t, fake.bodies[0], `"target": "2026_bu01"`)
}

func TestS3ReportArchive_PutError(t *testing.T) {
	archive := NewS3ReportArchiveWithClient(&fakeS3{err: errors.New("access denied")}, "reports", "", nil)
	_, err := archive.ArchiveRun(context.Background(), &tenant.RunReport{RunID: "r"})
	assert.ErrorContains(t, err, "access denied")
}

func TestNopReportArchive(t *testing.T) {
	key, err := NopReportArchive{}.ArchiveRun(context.Background(), &tenant.RunReport{})
	assert.NoError(t, err)
	assert.Empty(t, key)
}
