package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrops-br/catalog-api/internal/app/service"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/auth"
	"github.com/mrops-br/catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/catalog-api/internal/infrastructure/repository/memory"
	mongorepo "github.com/mrops-br/catalog-api/internal/infrastructure/repository/mongo"
	"github.com/mrops-br/catalog-api/internal/infrastructure/storage/local"
	"github.com/mrops-br/catalog-api/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.NewLogger(os.Stdout, &cfg.OTLP, telemetry.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	var telem *telemetry.Telemetry
	if cfg.OTLP.ExportEnabled {
		telem, err = telemetry.NewTelemetry(ctx, &cfg.OTLP, logger)
	} else {
		telem, err = telemetry.NewNoOpTelemetry(ctx, &cfg.OTLP, logger)
	}
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Ensure telemetry is shutdown on exit
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	tracer := telem.TracerProvider.Tracer(telemetry.InstrumentationName)
	meter := telem.MeterProvider.Meter(telemetry.InstrumentationName)

	logger.Info("Starting Catalog API",
		slog.String("repository_driver", cfg.Repository.Driver),
		slog.String("upload_dir", cfg.Upload.Dir),
	)

	repo, closeRepo, err := newRepository(ctx, cfg, tracer, logger)
	if err != nil {
		logger.Error("Failed to initialize repository", slog.String("error", err.Error()))
		return
	}
	defer closeRepo()

	images, err := local.NewImageStore(&cfg.Upload, tracer, meter, logger)
	if err != nil {
		logger.Error("Failed to initialize image store", slog.String("error", err.Error()))
		return
	}

	productService := service.NewProductService(repo, images, tracer, meter, logger)

	productHandler := handler.NewProductHandler(productService, logger, handler.Options{
		BaseURL:            cfg.Server.PublicBaseURL,
		MaxImageBytes:      images.MaxBytes(),
		HideInternalErrors: cfg.Server.HideInternalErrors,
	})

	if cfg.Auth.JWTKey == "" {
		logger.Warn("JWT_KEY is empty, every mutating request will be denied")
	}
	gate := auth.NewJWTGate(cfg.Auth.JWTKey)

	server := http.NewServer(cfg, productHandler, gate, logger, telem)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
}

// newRepository builds the configured product store. The returned func
// releases its connection.
func newRepository(
	ctx context.Context,
	cfg *config.Config,
	tracer trace.Tracer,
	logger *slog.Logger,
) (domain.ProductRepository, func(), error) {
	if cfg.Repository.Driver == config.DriverMemory {
		return memory.NewProductRepository(tracer, logger), func() {}, nil
	}

	client, err := mongorepo.Connect(ctx, &cfg.Mongo)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Connected to MongoDB",
		slog.String("database", cfg.Mongo.Database),
		slog.String("collection", cfg.Mongo.Collection),
	)

	collection := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Error("Failed to disconnect from MongoDB", slog.String("error", err.Error()))
		}
	}

	return mongorepo.NewProductRepository(collection, tracer, logger), closeFn, nil
}
