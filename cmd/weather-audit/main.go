package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-audit/internal/api/http"
	"github.com/i474232898/weather-audit/internal/config"
	"github.com/i474232898/weather-audit/internal/logging"
	"github.com/i474232898/weather-audit/internal/pipeline"
	"github.com/i474232898/weather-audit/internal/query"
	"github.com/i474232898/weather-audit/internal/scheduler"
	"github.com/i474232898/weather-audit/internal/storage"
	"github.com/i474232898/weather-audit/internal/storage/azure"
	"github.com/i474232898/weather-audit/internal/storage/memory"
	"github.com/i474232898/weather-audit/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	blobs, logs, err := buildStores(cfg)
	if err != nil {
		zlog.Fatal("failed to build storage clients", zap.Error(err))
	}

	// Weather client with retry, backoff, and fallback around the raw call.
	client := weather.NewClient(weather.Config{
		BaseURL: cfg.WeatherAPIURL,
		APIKey:  cfg.WeatherAPIKey,
		City:    cfg.WeatherCity,
		Client:  &http.Client{Timeout: cfg.HTTPTimeout},
	})

	provisioner := pipeline.NewProvisioner(logs, blobs, zlog)
	pipe := pipeline.New(client, blobs, logs, provisioner, pipeline.UTCClock{}, zlog)

	sched := scheduler.New(pipe, zlog)
	if err := sched.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-audit",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-audit",
		})
	})

	httpapi.RegisterRoutes(app, query.NewService(logs, blobs))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}

// buildStores selects the Azure-backed stores when a connection string is
// configured and falls back to the in-memory backend otherwise.
func buildStores(cfg *config.AppConfig) (storage.ObjectStore, storage.LogStore, error) {
	if cfg.StorageConnectionString == "" {
		return memory.NewObjectStore(), memory.NewLogStore(), nil
	}

	blobs, err := azure.NewBlobStore(cfg.StorageConnectionString, cfg.ContainerName)
	if err != nil {
		return nil, nil, err
	}
	logs, err := azure.NewTableLogStore(cfg.StorageConnectionString, cfg.TableName)
	if err != nil {
		return nil, nil, err
	}
	return blobs, logs, nil
}
