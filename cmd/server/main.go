package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/tenantdb/internal/bootstrap"
	"github.com/erp/tenantdb/internal/infrastructure/config"
	"github.com/erp/tenantdb/internal/infrastructure/logger"
	"github.com/erp/tenantdb/internal/interfaces/http/handler"
	"github.com/erp/tenantdb/internal/interfaces/http/middleware"
	"github.com/erp/tenantdb/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/erp/tenantdb/docs"
)

//	@title			tenantdb API
//	@version		1.0
//	@description	Tenant schema lifecycle and migration orchestration

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting tenantdb",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("driver", cfg.Database.Driver),
	)

	app, err := bootstrap.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(ctx); err != nil {
			log.Error("Error during shutdown", zap.Error(err))
		}
	}()
	log = app.Logger

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewEngine(router.Handlers{
		Migration: handler.NewMigrationHandler(app.Runner, app.Registry),
		Tenant:    handler.NewTenantHandler(app.Provisioner, app.Rollover),
		System:    handler.NewSystemHandler(cfg.App.Name, bootstrap.Version, cfg.Database.Driver, app.Store),
	}, middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     app.TracingEnabled(),
	}, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	// In-flight apply runs get the write timeout to finish
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
