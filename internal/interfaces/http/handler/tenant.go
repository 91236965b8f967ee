package handler

import (
	"context"

	"github.com/erp/tenantdb/internal/application/schema"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Provisioner creates tenant namespaces
type Provisioner interface {
	Provision(ctx context.Context, schema string, policy tenant.ErrorPolicy) (*tenant.ProvisionReport, error)
}

// ExerciseService opens a new fiscal year
type ExerciseService interface {
	Rollover(ctx context.Context, req schema.RolloverRequest) (*tenant.RolloverReport, error)
}

// TenantHandler serves provisioning and exercise rollover
type TenantHandler struct {
	BaseHandler
	provisioner Provisioner
	exercises   ExerciseService
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(provisioner Provisioner, exercises ExerciseService) *TenantHandler {
	return &TenantHandler{provisioner: provisioner, exercises: exercises}
}

// Provision godoc
// @ID           provisionTenant
// @Summary      Provision a tenant namespace
// @Description  Creates the namespace and every tenant table, reporting one step per table
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        request body     dto.ProvisionRequest true "Tenant to create"
// @Success      201     {object} APIResponse[tenant.ProvisionReport]
// @Failure      400     {object} ErrorResponse
// @Failure      409     {object} ErrorResponse
// @Router       /tenants/provision [post]
func (h *TenantHandler) Provision(c *gin.Context) {
	var req dto.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	report, err := h.provisioner.Provision(c.Request.Context(), req.Schema, tenant.ErrorPolicy(req.Policy))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, report)
}

// CreateExercise godoc
// @ID           createExercise
// @Summary      Open the next fiscal year
// @Description  Provisions the next exercise of a business unit and copies its reference tables
// @Tags         exercises
// @Accept       json
// @Produce      json
// @Param        request body     schema.RolloverRequest true "Rollover request"
// @Success      201     {object} APIResponse[tenant.RolloverReport]
// @Failure      400     {object} ErrorResponse
// @Failure      404     {object} ErrorResponse
// @Failure      409     {object} ErrorResponse
// @Router       /exercises [post]
func (h *TenantHandler) CreateExercise(c *gin.Context) {
	var req schema.RolloverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	report, err := h.exercises.Rollover(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, report)
}
