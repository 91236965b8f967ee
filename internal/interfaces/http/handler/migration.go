package handler

import (
	"context"
	"net/http"

	"github.com/erp/tenantdb/internal/application/schema"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// MigrationService is the part of schema.Runner the API exposes
type MigrationService interface {
	ApplyAll(ctx context.Context, opts schema.ApplyOptions) (*tenant.RunReport, error)
	Status(ctx context.Context, target string) ([]schema.TenantStatus, error)
	Plan(ctx context.Context, target string) ([]schema.TenantPlan, error)
}

// MigrationHandler serves migration status, tenant listing and runs
type MigrationHandler struct {
	BaseHandler
	runner   MigrationService
	registry schema.TenantLister
}

// NewMigrationHandler creates a new MigrationHandler
func NewMigrationHandler(runner MigrationService, registry schema.TenantLister) *MigrationHandler {
	return &MigrationHandler{runner: runner, registry: registry}
}

// DatabasesResponse lists tenant namespaces
type DatabasesResponse struct {
	Databases []string `json:"databases"`
	Count     int      `json:"count"`
}

// DryRunResponse lists what an apply would do
type DryRunResponse struct {
	DryRun  bool                `json:"dry_run"`
	Pending []schema.TenantPlan `json:"pending"`
}

// GetStatus godoc
// @ID           getMigrationStatus
// @Summary      Migration status per tenant
// @Description  Returns total, applied and pending migration counts for every tenant, or for one
// @Tags         migrations
// @Produce      json
// @Param        database query    string false "Only this tenant" example(2025_bu01)
// @Success      200      {object} APIResponse[[]schema.TenantStatus]
// @Failure      400      {object} ErrorResponse
// @Failure      404      {object} ErrorResponse
// @Router       /migrations/status [get]
func (h *MigrationHandler) GetStatus(c *gin.Context) {
	statuses, err := h.runner.Status(c.Request.Context(), c.Query("database"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statuses)
}

// ListDatabases godoc
// @ID           listMigrationDatabases
// @Summary      List tenant namespaces
// @Tags         migrations
// @Produce      json
// @Success      200 {object} APIResponse[DatabasesResponse]
// @Failure      503 {object} ErrorResponse
// @Router       /migrations/databases [get]
func (h *MigrationHandler) ListDatabases(c *gin.Context) {
	names, err := h.registry.ListTenants(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DatabasesResponse{Databases: names, Count: len(names)})
}

// Apply godoc
// @ID           applyMigrations
// @Summary      Apply pending migrations
// @Description  Applies pending migrations to every tenant or to one. The envelope's success flag is false when any migration failed; per-migration errors are in the body. With dry_run nothing is applied.
// @Tags         migrations
// @Accept       json
// @Produce      json
// @Param        request body     dto.ApplyRequest false "Run options"
// @Success      200     {object} APIResponse[dto.ApplyResponse]
// @Failure      400     {object} ErrorResponse
// @Failure      404     {object} ErrorResponse
// @Failure      409     {object} ErrorResponse
// @Router       /migrations/apply [post]
func (h *MigrationHandler) Apply(c *gin.Context) {
	var req dto.ApplyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.ValidationError(c, err)
			return
		}
	}

	if req.DryRun {
		plans, err := h.runner.Plan(c.Request.Context(), req.Database)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, DryRunResponse{DryRun: true, Pending: plans})
		return
	}

	report, err := h.runner.ApplyAll(c.Request.Context(), schema.ApplyOptions{
		Target: req.Database,
		Policy: tenant.ErrorPolicy(req.Policy),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Response{Success: report.Succeeded(), Data: dto.NewApplyResponse(report)})
}
