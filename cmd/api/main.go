package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cashflow-ai/cashflow-backend/internal/api"
	"github.com/cashflow-ai/cashflow-backend/internal/app"
	"github.com/cashflow-ai/cashflow-backend/internal/jobs"
	"github.com/cashflow-ai/cashflow-backend/internal/jobs/inmemory"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CASHFLOW_CONFIG"), "path to a YAML config file (or set CASHFLOW_CONFIG env)")
	flag.Parse()

	cfg, log, err := app.Load(*configPath, "cashflow-api")
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build sync service")
	}
	defer svc.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.QueueConfig{
		BufferSize: cfg.Sync.QueueBuffer,
		Workers:    cfg.Sync.Workers,
		MaxRetries: cfg.Sync.MaxRetries,
	}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.SyncMailboxJob) error {
		log.Info().
			Str("job_id", job.JobID).
			Str("mailbox", job.Mailbox).
			Msg("Processing sync job")

		result, err := svc.Syncer.Sync(ctx, job.Credentials)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", job.JobID).
				Str("mailbox", job.Mailbox).
				Msg("Sync job failed")
			return err
		}

		job.Count = result.Count
		job.Fetched = result.Fetched

		log.Info().
			Str("job_id", job.JobID).
			Int("count", result.Count).
			Int("fetched", result.Fetched).
			Msg("Sync job completed")
		return nil
	}

	if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Request credentials replace the configured address and password;
	// only server, port and folder carry over.
	defaults := app.DefaultCredentials(cfg)
	defaults.EmailAddress = ""
	defaults.AppPassword = ""

	handler := api.NewRouter(api.Dependencies{
		Syncer:    svc.Syncer,
		Engine:    svc.Engine,
		Store:     jobStore,
		Publisher: jobQueue,
		Metrics:   svc.Metrics,
		Defaults:  defaults,
		Log:       log,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
