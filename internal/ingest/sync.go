// Package ingest pulls unread bank notifications from a mailbox, parses
// them and hands the transactions to the configured sinks.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
	"github.com/cashflow-ai/cashflow-backend/internal/metrics"
	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

// Sink accepts parsed transactions. Sinks are export-only.
type Sink interface {
	Name() string
	Export(ctx context.Context, txs []*domain.ParsedTransaction) error
}

// Archiver keeps the raw source of a message and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, msg domain.RawMessage) (string, error)
}

// Result summarises one sync.
type Result struct {
	Transactions []*domain.ParsedTransaction `json:"transactions"`
	Count        int                         `json:"count"`
	Fetched      int                         `json:"fetched"`
	Skipped      int                         `json:"skipped"`
	MarkedRead   int                         `json:"marked_read"`
}

// Syncer runs mailbox syncs. The zero value of the optional fields
// (Sinks, Archiver, Metrics) disables them.
type Syncer struct {
	Dialer   mailbox.Dialer
	Engine   *parser.Engine
	Sinks    []Sink
	Archiver Archiver
	Metrics  *metrics.Metrics

	Workers       int
	MarkRead      bool
	RequireExport bool
}

// Pipeline returns the six-step sync pipeline for this Syncer.
func (s *Syncer) Pipeline() *Pipeline {
	return NewPipeline(
		&ConnectStep{Dialer: s.Dialer},
		&FetchStep{Metrics: s.Metrics},
		&ParseStep{Engine: s.Engine, Workers: s.Workers, Metrics: s.Metrics},
		&ArchiveStep{Archiver: s.Archiver},
		&ExportStep{Sinks: s.Sinks, Metrics: s.Metrics},
		&MarkReadStep{Enabled: s.MarkRead, RequireExport: s.RequireExport, Metrics: s.Metrics},
	)
}

// Sync processes the unread messages of the mailbox behind creds.
// The returned transactions keep mailbox order.
func (s *Syncer) Sync(ctx context.Context, creds mailbox.Credentials) (*Result, error) {
	if !creds.Valid() {
		return nil, mailbox.ErrMissingCredentials
	}

	ctx = logger.WithContext(ctx, logger.FromContext(ctx).With().Str("mailbox", creds.EmailAddress).Logger())
	log := logger.FromContext(ctx)

	start := time.Now()
	state := &PipelineState{Credentials: creds}

	defer func() {
		if state.Source == nil {
			return
		}
		if err := state.Source.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close mailbox")
		}
	}()

	if err := s.Pipeline().Execute(ctx, state); err != nil {
		return nil, err
	}

	if s.Metrics != nil {
		s.Metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}

	txs := state.Transactions
	if txs == nil {
		txs = []*domain.ParsedTransaction{}
	}
	result := &Result{
		Transactions: txs,
		Count:        len(txs),
		Fetched:      len(state.Messages),
		Skipped:      len(state.Messages) - len(txs),
		MarkedRead:   state.MarkedRead,
	}

	log.Info().
		Int("count", result.Count).
		Int("fetched", result.Fetched).
		Int("skipped", result.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Sync completed")

	return result, nil
}

// TestConnection logs in to the mailbox and disconnects.
func TestConnection(ctx context.Context, dialer mailbox.Dialer, creds mailbox.Credentials) error {
	if !creds.Valid() {
		return mailbox.ErrMissingCredentials
	}
	source, err := dialer.Dial(ctx, creds)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := source.Close(); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to close mailbox after connection test")
	}
	return nil
}
