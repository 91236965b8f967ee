package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/tenantdb/internal/application/schema"
	"github.com/erp/tenantdb/internal/domain/shared"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/persistence"
	"github.com/erp/tenantdb/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	opts    schema.ApplyOptions
	report  *tenant.RunReport
	status  []schema.TenantStatus
	plans   []schema.TenantPlan
	err     error
	planned bool
	applied bool
}

func (f *fakeRunner) ApplyAll(ctx context.Context, opts schema.ApplyOptions) (*tenant.RunReport, error) {
	f.opts = opts
	f.applied = true
	return f.report, f.err
}

func (f *fakeRunner) Status(ctx context.Context, target string) ([]schema.TenantStatus, error) {
	return f.status, f.err
}

func (f *fakeRunner) Plan(ctx context.Context, target string) ([]schema.TenantPlan, error) {
	f.planned = true
	return f.plans, f.err
}

type fakeRegistry struct {
	names []string
	err   error
}

func (f fakeRegistry) ListTenants(ctx context.Context) ([]string, error) { return f.names, f.err }

type fakeProvisioner struct {
	report *tenant.ProvisionReport
	err    error
}

func (f fakeProvisioner) Provision(ctx context.Context, s string, p tenant.ErrorPolicy) (*tenant.ProvisionReport, error) {
	return f.report, f.err
}

type fakeExercises struct {
	got    schema.RolloverRequest
	report *tenant.RolloverReport
	err    error
}

func (f *fakeExercises) Rollover(ctx context.Context, req schema.RolloverRequest) (*tenant.RolloverReport, error) {
	f.got = req
	return f.report, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(ctx context.Context) error { return f.err }
func (f fakeHealth) Stats() (persistence.ConnectionStats, error) {
	return persistence.ConnectionStats{MaxOpenConnections: 25, OpenConnections: 2}, nil
}

func serve(t *testing.T, h gin.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body != "" {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	c.Set("request_id", "req-42")
	h(c)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestMigrationHandler_Apply(t *testing.T) {
	t.Run("reports failures in the body", func(t *testing.T) {
		runner := &fakeRunner{report: &tenant.RunReport{RunID: "run-1", Results: []tenant.MigrationResult{
			{Schema: "2025_bu01", Version: "001", Success: true},
			{Schema: "2025_bu02", Version: "001", Error: "syntax error"},
		}}}
		h := NewMigrationHandler(runner, fakeRegistry{})

		w, resp := serve(t, h.Apply, http.MethodPost, "/migrations/apply", `{"database":"2025_bu02","policy":"continue-on-error"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, "2025_bu02", runner.opts.Target)
		assert.Equal(t, tenant.ContinueOnError, runner.opts.Policy)

		data := resp.Data.(map[string]any)
		assert.Equal(t, "run-1", data["run_id"])
		stats := data["stats"].(map[string]any)
		assert.EqualValues(t, 1, stats["failed"])
		assert.EqualValues(t, 1, stats["success"])
	})

	t.Run("empty body applies everything", func(t *testing.T) {
		runner := &fakeRunner{report: &tenant.RunReport{RunID: "run-2"}}
		h := NewMigrationHandler(runner, fakeRegistry{})

		w, resp := serve(t, h.Apply, http.MethodPost, "/migrations/apply", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
		assert.Empty(t, runner.opts.Target)
	})

	t.Run("dry run plans without applying", func(t *testing.T) {
		runner := &fakeRunner{plans: []schema.TenantPlan{
			{Database: "2025_bu01", Pending: []tenant.Migration{{Version: "002", Description: "add index"}}},
		}}
		h := NewMigrationHandler(runner, fakeRegistry{})

		_, resp := serve(t, h.Apply, http.MethodPost, "/migrations/apply", `{"dry_run":true}`)
		assert.True(t, resp.Success)
		assert.True(t, runner.planned)
		assert.False(t, runner.applied)
		data := resp.Data.(map[string]any)
		assert.Equal(t, true, data["dry_run"])
	})

	t.Run("rejects an unknown policy", func(t *testing.T) {
		h := NewMigrationHandler(&fakeRunner{}, fakeRegistry{})
		w, resp := serve(t, h.Apply, http.MethodPost, "/migrations/apply", `{"policy":"sometimes"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-42", resp.Error.RequestID)
	})
}

func TestMigrationHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid name", shared.NewDomainError("INVALID_INPUT", "bad schema"), http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"unknown tenant", shared.NewDomainError("NOT_FOUND", "no such tenant"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"locked", fmt.Errorf("2025_bu01: %w", tenant.ErrTenantLocked), http.StatusConflict, dto.ErrCodeConflict},
		{"catalog", &tenant.CatalogError{Path: "migrations", Err: errors.New("permission denied")}, http.StatusInternalServerError, dto.ErrCodeCatalog},
		{"unreachable", &tenant.ConnectivityError{Err: errors.New("refused")}, http.StatusServiceUnavailable, dto.ErrCodeUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMigrationHandler(&fakeRunner{err: tt.err}, fakeRegistry{})
			w, resp := serve(t, h.GetStatus, http.MethodGet, "/migrations/status", "")
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestMigrationHandler_ListDatabases(t *testing.T) {
	h := NewMigrationHandler(&fakeRunner{}, fakeRegistry{names: []string{"2024_bu01", "2025_bu01"}})

	w, resp := serve(t, h.ListDatabases, http.MethodGet, "/migrations/databases", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, 2, data["count"])
}

func TestTenantHandler_Provision(t *testing.T) {
	h := NewTenantHandler(fakeProvisioner{report: &tenant.ProvisionReport{Schema: "2026_bu01"}}, nil)

	w, resp := serve(t, h.Provision, http.MethodPost, "/tenants/provision", `{"schema":"2026_bu01"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)

	w, _ = serve(t, h.Provision, http.MethodPost, "/tenants/provision", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantHandler_CreateExercise(t *testing.T) {
	t.Run("passes the request through", func(t *testing.T) {
		ex := &fakeExercises{report: &tenant.RolloverReport{Source: "2025_bu01", Target: "2026_bu01"}}
		h := NewTenantHandler(nil, ex)

		w, resp := serve(t, h.CreateExercise, http.MethodPost, "/exercises",
			`{"business_unit":"bu01","current_year":2025,"new_year":2026}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, resp.Success)
		assert.Equal(t, schema.RolloverRequest{BusinessUnit: "bu01", CurrentYear: 2025, NewYear: 2026}, ex.got)
	})

	t.Run("missing source is not found", func(t *testing.T) {
		h := NewTenantHandler(nil, &fakeExercises{err: &tenant.SourceNotFoundError{Schema: "2025_bu01"}})
		w, resp := serve(t, h.CreateExercise, http.MethodPost, "/exercises",
			`{"business_unit":"bu01","current_year":2025,"new_year":2026}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, resp.Error.Message, "2025_bu01")
	})
}

func TestSystemHandler(t *testing.T) {
	h := NewSystemHandler("tenantdb", "1.2.0", "postgres", fakeHealth{})

	_, resp := serve(t, h.Ping, http.MethodGet, "/system/ping", "")
	assert.Equal(t, "pong", resp.Data.(map[string]any)["message"])

	_, resp = serve(t, h.GetSystemInfo, http.MethodGet, "/system/info", "")
	data := resp.Data.(map[string]any)
	assert.Equal(t, "tenantdb", data["name"])
	assert.Equal(t, "postgres", data["driver"])
	assert.Equal(t, "up", data["database"])
	assert.NotNil(t, data["pool"])

	down := NewSystemHandler("tenantdb", "1.2.0", "postgres", fakeHealth{err: errors.New("refused")})
	_, resp = serve(t, down.GetSystemInfo, http.MethodGet, "/system/info", "")
	assert.Contains(t, resp.Data.(map[string]any)["database"], "refused")
}
