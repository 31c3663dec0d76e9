package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/taskpilot/internal/api/handlers"
	"github.com/cloo-solutions/taskpilot/internal/database"
	"github.com/cloo-solutions/taskpilot/internal/jobs"
	"github.com/cloo-solutions/taskpilot/internal/repository"
	"github.com/cloo-solutions/taskpilot/internal/retrieval"
	"github.com/cloo-solutions/taskpilot/internal/server"
	"github.com/cloo-solutions/taskpilot/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the taskpilot API server and the documentation embedding worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (defaults to TASKPILOT_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "migrations", "Directory containing the migration files")
	addFixtureFlag(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fixture, _ := cmd.Flags().GetString("fixture")
	rt, err := openRuntime(ctx, fixture)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg, logger := rt.cfg, rt.logger

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate(),
			Debug:            cfg.Debug,
		}, logger)
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			defer shutdownTelemetry()
		}
	}

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	if rt.pool != nil {
		logger.Info("connected to database")
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			dir, _ := cmd.Flags().GetString("migrations")
			if err := database.Migrate(cfg.DatabaseURL, dir, logger); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	}

	if rt.bodies != nil {
		if err := rt.bodies.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		logger.Info("S3 bucket ready", zap.String("bucket", cfg.S3Bucket))
	}

	embeddingWorker := startEmbeddingWorker(ctx, rt)

	router := server.NewRouter(server.RouterConfig{
		APIToken:         cfg.APIToken,
		Logger:           logger,
		AssistantHandler: handlers.NewAssistantHandler(rt.service()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// startEmbeddingWorker runs the page embedding worker when both PostgreSQL and
// OpenAI are configured. It returns nil otherwise.
func startEmbeddingWorker(ctx context.Context, rt *runtime) *jobs.Worker {
	if rt.repo == nil || rt.openai == nil {
		rt.logger.Info("embedding worker disabled", zap.Bool("database", rt.repo != nil), zap.Bool("openai", rt.openai != nil))
		return nil
	}

	var bodies retrieval.BodyLoader
	if rt.bodies != nil {
		bodies = rt.bodies
	}

	jobRepo := repository.NewEmbeddingJobRepository(rt.pool)
	processor := jobs.NewEmbeddingWorker(jobRepo,
		jobs.NewPageEmbedder(rt.repo, rt.openai, bodies),
		jobs.WithEnqueuer(jobRepo, uuid.NewString),
		jobs.WithWorkerLogger(rt.logger),
	)
	worker := jobs.NewWorker(processor, rt.cfg.EmbedPollInterval, rt.logger)
	go worker.Start(ctx)
	rt.logger.Info("embedding worker started")
	return worker
}
