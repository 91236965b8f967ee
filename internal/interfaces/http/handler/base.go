package handler

import (
	"errors"
	"net/http"

	"github.com/erp/tenantdb/internal/domain/shared"
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/erp/tenantdb/internal/infrastructure/logger"
	"github.com/erp/tenantdb/internal/interfaces/http/dto"
	"github.com/erp/tenantdb/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestIDKey is the header carrying the request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(RequestIDKey)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ValidationError sends a 400 response for a body that failed binding
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(err, getRequestID(c)))
}

// HandleError converts domain and orchestration errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var (
		domainErr  *shared.DomainError
		catalogErr *tenant.CatalogError
		connErr    *tenant.ConnectivityError
		sourceErr  *tenant.SourceNotFoundError
	)
	switch {
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
	case errors.Is(err, tenant.ErrTenantLocked):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, err.Error())
	case errors.As(err, &sourceErr):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, sourceErr.Error())
	case errors.As(err, &catalogErr):
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeCatalog, catalogErr.Error())
	case errors.As(err, &connErr):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, connErr.Error())
	default:
		logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}
