package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ru-digital/product-estimator/internal/api"
	"github.com/ru-digital/product-estimator/internal/config"
	"github.com/ru-digital/product-estimator/internal/db"
	"github.com/ru-digital/product-estimator/internal/estimates"
	"github.com/ru-digital/product-estimator/internal/fragments"
	"github.com/ru-digital/product-estimator/internal/logging"
	"github.com/ru-digital/product-estimator/internal/models"
	"github.com/ru-digital/product-estimator/internal/notify"
	"github.com/ru-digital/product-estimator/internal/storage"
)

var (
	_ estimates.Repository = (*db.Database)(nil)
	_ api.Catalog          = (*db.Database)(nil)
	_ api.HealthChecker    = (*db.Database)(nil)
)

func main() {
	cfg := config.Load()

	// Ensure all log output goes to stdout so the platform captures it
	log.SetOutput(os.Stdout)
	// Rebuild now that .env may have set LOG_LEVEL
	if l, err := logging.NewLogger(); err == nil {
		logging.SetLogger(l)
	}
	logger := logging.L()
	defer func() { _ = logger.Sync() }()

	logger.Info("estimator service starting",
		zap.String("git_sha", os.Getenv("GIT_SHA")),
		zap.String("build_time", os.Getenv("BUILD_TIME")))

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.GinMode)
	}

	ctx := context.Background()

	var (
		repo    estimates.Repository
		catalog api.Catalog
		health  api.HealthChecker
	)
	if cfg.DatabaseEnabled {
		database, err := db.NewDatabase()
		if err != nil {
			logger.Fatal("database initialization failed", zap.Error(err))
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			logger.Fatal("schema setup failed", zap.Error(err))
		}
		repo, catalog, health = database, database, database
	} else {
		logger.Warn("no database configured, estimates are kept in memory")
		mem := api.NewMemoryCatalog()
		if path := os.Getenv("CATALOG_SEED_FILE"); path != "" {
			if err := seedCatalog(mem, path); err != nil {
				logger.Fatal("catalog seed failed", zap.String("path", path), zap.Error(err))
			}
		}
		repo, catalog = estimates.NewMemoryRepository(), mem
	}

	var opts []estimates.Option
	if cfg.ArchiveEnabled() {
		archive, err := storage.NewEstimateArchive(ctx, cfg.ArchiveBucket, cfg.ArchivePrefix, cfg.AWSRegion)
		if err != nil {
			logger.Warn("estimate archive disabled", zap.Error(err))
		} else {
			opts = append(opts, estimates.WithArchiver(archive))
		}
	}
	if cfg.NotifyEnabled() {
		mailer, err := notify.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.NotifyEmail)
		if err != nil {
			logger.Warn("estimate notifications disabled", zap.Error(err))
		} else {
			opts = append(opts, estimates.WithNotifier(mailer))
		}
	}

	handler := api.NewHandler(catalog, estimates.NewService(repo, opts...), fragments.NewRenderer(), health, cfg.RequestTimeout)
	router := api.SetupRouter(handler, api.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		ModulesDir:  cfg.ModulesDir,
		JWTSecret:   cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Set up graceful shutdown
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

// seedCatalog loads products and variations for running without a database.
func seedCatalog(c *api.MemoryCatalog, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var seed struct {
		Products   []models.CatalogProduct `json:"products"`
		Variations []models.Variation      `json:"variations"`
	}
	if err := json.Unmarshal(raw, &seed); err != nil {
		return err
	}
	for _, p := range seed.Products {
		c.PutProduct(p)
	}
	for _, v := range seed.Variations {
		c.PutVariation(v)
	}
	return nil
}
