package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cashflow-ai/cashflow-backend/internal/app"
	"github.com/cashflow-ai/cashflow-backend/internal/ingest"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
)

// The worker polls the configured mailbox on sync.poll_interval until
// interrupted. Each tick runs one full sync.
func main() {
	configPath := flag.String("config", os.Getenv("CASHFLOW_CONFIG"), "path to a YAML config file (or set CASHFLOW_CONFIG env)")
	once := flag.Bool("once", false, "run a single sync and exit")
	flag.Parse()

	cfg, log, err := app.Load(*configPath, "cashflow-worker")
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if !cfg.IMAP.HasMailbox() {
		log.Fatal().Msg("imap.email_address and imap.app_password are required for the worker")
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	svc, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build sync service")
	}
	defer svc.Close()

	creds := app.DefaultCredentials(cfg)

	if *once {
		if err := runOnce(ctx, svc.Syncer, creds, log); err != nil {
			os.Exit(1)
		}
		return
	}

	log.Info().
		Str("mailbox", creds.EmailAddress).
		Dur("poll_interval", cfg.Sync.PollInterval).
		Msg("Starting worker service")

	done := make(chan struct{})
	go func() {
		defer close(done)
		poll(ctx, svc.Syncer, creds, cfg.Sync.PollInterval, log)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")
	cancel()

	// An in-flight sync sees the cancelled context and returns.
	select {
	case <-done:
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn().Msg("Timed out waiting for in-flight sync")
	}

	log.Info().Msg("Worker service exited")
}

// poll syncs immediately and then on every tick until ctx is done.
func poll(ctx context.Context, syncer *ingest.Syncer, creds mailbox.Credentials, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = runOnce(ctx, syncer, creds, log)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, syncer *ingest.Syncer, creds mailbox.Credentials, log zerolog.Logger) error {
	start := time.Now()
	result, err := syncer.Sync(ctx, creds)
	if err != nil {
		log.Error().Err(err).Str("mailbox", creds.EmailAddress).Msg("Sync failed")
		return err
	}

	log.Debug().
		Int("marked_read", result.MarkedRead).
		Dur("duration", time.Since(start)).
		Msg("Poll finished")
	return nil
}
