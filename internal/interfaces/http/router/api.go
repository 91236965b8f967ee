package router

import (
	"github.com/erp/tenantdb/internal/infrastructure/logger"
	"github.com/erp/tenantdb/internal/interfaces/http/handler"
	"github.com/erp/tenantdb/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; every body is a small JSON object
const maxBodyBytes = 1 << 20

// Handlers are the operator API handlers
type Handlers struct {
	Migration *handler.MigrationHandler
	Tenant    *handler.TenantHandler
	System    *handler.SystemHandler
}

// NewEngine builds the gin engine with the middleware stack and every route
func NewEngine(h Handlers, tracing middleware.TracingConfig, log *zap.Logger) *gin.Engine {
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(tracing)...)
	engine.Use(logger.GinMiddleware(log), logger.Recovery(log), middleware.BodyLimit(maxBodyBytes))

	// Serves whichever document the docs package registered
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := NewRouter(engine)
	r.Register(NewDomainGroup("migrations", "/migrations").
		GET("/status", h.Migration.GetStatus).
		GET("/databases", h.Migration.ListDatabases).
		POST("/apply", h.Migration.Apply))
	r.Register(NewDomainGroup("tenants", "/tenants").
		POST("/provision", h.Tenant.Provision))
	r.Register(NewDomainGroup("exercises", "/exercises").
		POST("", h.Tenant.CreateExercise))
	r.Register(NewDomainGroup("system", "/system").
		GET("/ping", h.System.Ping).
		GET("/info", h.System.GetSystemInfo))
	r.Setup()

	return engine
}
