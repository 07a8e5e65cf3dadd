// Package app assembles the sync service from configuration. The API,
// worker and CLI binaries share it so a mailbox is synced the same way
// whichever entry point runs it.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cashflow-ai/cashflow-backend/internal/config"
	"github.com/cashflow-ai/cashflow-backend/internal/gcsuploader"
	infraBQ "github.com/cashflow-ai/cashflow-backend/internal/infra/bigquery"
	"github.com/cashflow-ai/cashflow-backend/internal/ingest"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
	"github.com/cashflow-ai/cashflow-backend/internal/metrics"
	"github.com/cashflow-ai/cashflow-backend/internal/notionsync"
	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

// App holds the long-lived collaborators built from a Config.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Engine  *parser.Engine
	Metrics *metrics.Metrics
	Syncer  *ingest.Syncer

	closers []func() error
}

// Load reads the configuration at path and builds the logger for service.
func Load(path, service string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	log, err := logger.NewWithOptions(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: service,
	})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

// New builds the engine, the enabled sinks and archive, and the Syncer.
// Call Close when done to release cloud clients.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Log:     log,
		Engine:  parser.New(nil),
		Metrics: metrics.New(),
	}

	var sinks []ingest.Sink

	if cfg.BigQuery.Enabled {
		repo, err := infraBQ.NewBigQueryTransactionRepository(ctx, infraBQ.TableRef{
			ProjectID: cfg.BigQuery.ProjectID,
			DatasetID: cfg.BigQuery.Dataset,
			TableID:   cfg.BigQuery.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("bigquery sink: %w", err)
		}
		sink := infraBQ.NewSink(repo)
		a.closers = append(a.closers, sink.Close)
		sinks = append(sinks, sink)
		log.Info().Str("table", cfg.BigQuery.ProjectID+"."+cfg.BigQuery.Dataset+"."+cfg.BigQuery.Table).Msg("BigQuery export enabled")
	}

	if cfg.Notion.Enabled {
		client := notionsync.NewNotionClient(cfg.Notion.Token)
		sinks = append(sinks, notionsync.NewExporter(client, cfg.Notion.DatabaseID, cfg.Notion.DryRun))
		log.Info().Str("database_id", cfg.Notion.DatabaseID).Bool("dry_run", cfg.Notion.DryRun).Msg("Notion export enabled")
	}

	var archiver ingest.Archiver
	if cfg.GCS.Enabled {
		archiver = gcsuploader.NewArchiver(gcsuploader.NewGCSStorageService(), cfg.GCS.Bucket, cfg.GCS.Prefix)
		log.Info().Str("bucket", cfg.GCS.Bucket).Str("prefix", cfg.GCS.Prefix).Msg("Raw message archive enabled")
	}

	a.Syncer = &ingest.Syncer{
		Dialer:        mailbox.NewIMAPDialer(cfg.IMAP.DialTimeout),
		Engine:        a.Engine,
		Sinks:         sinks,
		Archiver:      archiver,
		Metrics:       a.Metrics,
		Workers:       cfg.Sync.Workers,
		MarkRead:      cfg.Sync.MarkRead,
		RequireExport: cfg.Sync.RequireExport,
	}

	return a, nil
}

// DefaultCredentials returns the configured mailbox. Request handlers
// overlay the address and password on it.
func DefaultCredentials(cfg *config.Config) mailbox.Credentials {
	return mailbox.Credentials{
		Server:       cfg.IMAP.Server,
		Port:         cfg.IMAP.Port,
		Folder:       cfg.IMAP.Folder,
		EmailAddress: cfg.IMAP.EmailAddress,
		AppPassword:  cfg.IMAP.AppPassword,
	}
}

// Close releases every client New opened.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
