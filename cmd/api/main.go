// Command api serves the business planner HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/business-planner/backend/config"
	"github.com/business-planner/backend/internal/infra/db"
	"github.com/business-planner/backend/internal/infra/dependency"
	"github.com/business-planner/backend/internal/infra/observability"
	"github.com/business-planner/backend/internal/infra/server/router"
)

func main() {
	_ = godotenv.Load()

	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	cfg := config.Load()
	slog.Info("Starting Business Planner API",
		"environment", cfg.Server.Environment,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server exited properly")
}

// run serves until ctx is cancelled, then stops traffic before flushing
// open plans and traces.
func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracing := observability.InitTracing(ctx, cfg.Telemetry, cfg.Server.Environment)

	database, err := db.NewPostgresConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()
	if err := database.Migrate(); err != nil {
		return err
	}
	slog.Info("Database migrations completed successfully")

	injector, err := dependency.NewInjector(cfg, database.DB(), dependency.Overrides{})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: injector.Router.Setup(router.Options{
			Environment:    cfg.Server.Environment,
			ServiceName:    cfg.Telemetry.ServiceName,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			TracingEnabled: cfg.Telemetry.OTelEnabled,
			MetricsEnabled: cfg.Telemetry.MetricsEnabled,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	if injector.EmailWorker != nil {
		group.Go(func() error {
			injector.EmailWorker.Start(groupCtx)
			return nil
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(
			srv.Shutdown(shutdownCtx),
			injector.Shutdown(shutdownCtx),
			shutdownTracing(shutdownCtx),
		)
	})

	return group.Wait()
}
