package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/tenantdb/internal/infrastructure/persistence"
	"github.com/erp/tenantdb/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DatabaseHealth reports backend reachability and pool usage
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Stats() (persistence.ConnectionStats, error)
}

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	driver    string
	health    DatabaseHealth
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version, driver string, health DatabaseHealth) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		driver:    driver,
		health:    health,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string                       `json:"name"`
	Version   string                       `json:"version"`
	GoVersion string                       `json:"go_version"`
	Uptime    string                       `json:"uptime"`
	Driver    string                       `json:"driver"`
	Database  string                       `json:"database"`
	Pool      *persistence.ConnectionStats `json:"pool,omitempty"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Description  Returns version, uptime, database reachability and pool usage
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Driver:    h.driver,
		Database:  "up",
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.health.Ping(ctx); err != nil {
		info.Database = "down: " + err.Error()
	} else if stats, err := h.health.Stats(); err == nil {
		info.Pool = &stats
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}
