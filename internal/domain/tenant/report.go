package tenant

import (
	"sort"
	"time"
)

// RunReport aggregates every MigrationResult of one orchestration run
type RunReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Results    []MigrationResult `json:"results"`
}

// ResultError identifies one failed (tenant, version)
type ResultError struct {
	Schema  string `json:"database"`
	Version string `json:"version"`
	Error   string `json:"error"`
}

// TenantCounts is the per-tenant breakdown of a run
type TenantCounts struct {
	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Aborted int `json:"aborted"`
}

// RunSummary holds run statistics
type RunSummary struct {
	Total    int                     `json:"total"`
	Success  int                     `json:"success"`
	Skipped  int                     `json:"skipped"`
	Failed   int                     `json:"failed"`
	Aborted  int                     `json:"aborted"`
	Errors   []ResultError           `json:"errors"`
	ByTenant map[string]TenantCounts `json:"by_database"`
}

// Summary computes run statistics
func (r *RunReport) Summary() RunSummary {
	s := RunSummary{
		Total:    len(r.Results),
		Errors:   make([]ResultError, 0),
		ByTenant: make(map[string]TenantCounts),
	}
	for _, res := range r.Results {
		c := s.ByTenant[res.Schema]
		switch {
		case res.Applied():
			s.Success++
			c.Success++
		case res.SkippedReason == SkipAlreadyApplied:
			s.Skipped++
			c.Skipped++
		case res.SkippedReason == SkipAborted:
			s.Aborted++
			c.Aborted++
		default:
			s.Failed++
			c.Failed++
			s.Errors = append(s.Errors, ResultError{Schema: res.Schema, Version: res.Version, Error: res.Error})
		}
		s.ByTenant[res.Schema] = c
	}
	return s
}

// Succeeded is true only if no migration failed on any tenant
func (r *RunReport) Succeeded() bool {
	for _, res := range r.Results {
		if res.Failed() {
			return false
		}
	}
	return true
}

// FailedTenants lists the tenants worth retrying, sorted
func (r *RunReport) FailedTenants() []string {
	seen := make(map[string]bool)
	for _, res := range r.Results {
		if res.Failed() {
			seen[res.Schema] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Step names and skip reasons carried by StepResult
const (
	StepCreateTable         = "create_table"
	StepCopyRows            = "copy_rows"
	SkipDestinationNotEmpty = "destination-not-empty"
)

// StepResult is the outcome of one provisioning or copy step
type StepResult struct {
	Step          string `json:"step"`
	Table         string `json:"table"`
	Success       bool   `json:"success"`
	Rows          int64  `json:"rows,omitempty"`
	Error         string `json:"error,omitempty"`
	SkippedReason string `json:"skipped_reason,omitempty"`
}

// ProvisionReport lists the table creation steps for one namespace
type ProvisionReport struct {
	Schema string       `json:"schema"`
	Steps  []StepResult `json:"steps"`
}

// FailedSteps counts the steps that were attempted and failed
func (r *ProvisionReport) FailedSteps() int {
	return countFailed(r.Steps)
}

// RolloverReport describes a fiscal-year rollover
type RolloverReport struct {
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Provision ProvisionReport `json:"provision"`
	Copies    []StepResult    `json:"copies"`
}

// FailedSteps counts failed provisioning and copy steps together
func (r *RolloverReport) FailedSteps() int {
	return r.Provision.FailedSteps() + countFailed(r.Copies)
}

func countFailed(steps []StepResult) int {
	n := 0
	for _, s := range steps {
		if !s.Success && s.SkippedReason == "" {
			n++
		}
	}
	return n
}
