package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PluginHost is anything gorm plugins can be installed on
type PluginHost interface {
	Use(plugin gorm.Plugin) error
}

// RegisterDBTracing installs otelgorm so every tenant statement becomes a
// child span of the migration span. Query variables are never attached.
func RegisterDBTracing(host PluginHost, dbSystem string, logger *zap.Logger) error {
	if err := host.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}
	logger.Info("Database tracing enabled", zap.String("db_system", dbSystem))
	return nil
}
