package dto

import "github.com/erp/tenantdb/internal/domain/tenant"

// ApplyRequest is the body of POST /migrations/apply
type ApplyRequest struct {
	Database string `json:"database"`
	DryRun   bool   `json:"dry_run"`
	Policy   string `json:"policy" binding:"omitempty,oneof=fail-fast continue-on-error"`
}

// ApplyStats summarizes a run for API clients
type ApplyStats struct {
	Total   int                  `json:"total"`
	Success int                  `json:"success"`
	Skipped int                  `json:"skipped"`
	Failed  int                  `json:"failed"`
	Aborted int                  `json:"aborted"`
	Errors  []tenant.ResultError `json:"errors"`
}

// ApplyResponse is the result of a non dry-run apply
type ApplyResponse struct {
	RunID   string                   `json:"run_id"`
	Success bool                     `json:"success"`
	Results []tenant.MigrationResult `json:"results"`
	Stats   ApplyStats               `json:"stats"`
}

// NewApplyResponse builds the response of a finished run
func NewApplyResponse(report *tenant.RunReport) ApplyResponse {
	s := report.Summary()
	results := report.Results
	if results == nil {
		results = []tenant.MigrationResult{}
	}
	return ApplyResponse{
		RunID:   report.RunID,
		Success: report.Succeeded(),
		Results: results,
		Stats: ApplyStats{
			Total:   s.Total,
			Success: s.Success,
			Skipped: s.Skipped,
			Failed:  s.Failed,
			Aborted: s.Aborted,
			Errors:  s.Errors,
		},
	}
}

// ProvisionRequest is the body of POST /tenants/provision
type ProvisionRequest struct {
	Schema string `json:"schema" binding:"required"`
	Policy string `json:"policy" binding:"omitempty,oneof=fail-fast continue-on-error"`
}
