package dto

import (
	"net/http"
	"testing"
	"time"

	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{"ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_INPUT"))
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeConflict, NormalizeErrorCode(ErrCodeConflict))
}

func TestNewApplyResponse(t *testing.T) {
	report := &tenant.RunReport{
		RunID:     "r1",
		StartedAt: time.Now(),
		Results: []tenant.MigrationResult{
			{Schema: "2025_bu01", Version: "001", Success: true},
			{Schema: "2025_bu01", Version: "002", Success: true, SkippedReason: tenant.SkipAlreadyApplied},
			{Schema: "2025_bu02", Version: "001", Error: "boom"},
			{Schema: "2025_bu02", Version: "002", SkippedReason: tenant.SkipAborted},
		},
	}

	resp := NewApplyResponse(report)
	assert.False(t, resp.Success)
	assert.Equal(t, ApplyStats{
		Total: 4, Success: 1, Skipped: 1, Failed: 1, Aborted: 1,
		Errors: []tenant.ResultError{{Schema: "2025_bu02", Version: "001", Error: "boom"}},
	}, resp.Stats)

	empty := NewApplyResponse(&tenant.RunReport{RunID: "r2"})
	assert.True(t, empty.Success)
	assert.NotNil(t, empty.Results)
}
