package middleware

import (
	"github.com/erp/tenantdb/internal/domain/tenant"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig returns otelgin followed by a handler that adds request_id
// and, when the request names a tenant, the schema attribute to the server span.
// The enrichment runs inside the otelgin span, before it ends.
func TracingWithConfig(cfg TracingConfig) gin.HandlersChain {
	if !cfg.Enabled {
		return gin.HandlersChain{func(c *gin.Context) { c.Next() }}
	}
	return gin.HandlersChain{otelgin.Middleware(cfg.ServiceName), enrichSpan}
}

func enrichSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if span.IsRecording() {
		if id := c.GetString("request_id"); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if db := c.Query("database"); tenant.IsSchemaName(db) {
			span.SetAttributes(attribute.String("schema", db))
		}
	}
	c.Next()
}
