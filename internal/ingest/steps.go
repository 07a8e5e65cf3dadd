package ingest

import (
	"context"
	"fmt"

	"github.com/cashflow-ai/cashflow-backend/internal/domain"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
	"github.com/cashflow-ai/cashflow-backend/internal/metrics"
	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

// PipelineStep represents a single step of a mailbox sync.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Credentials  mailbox.Credentials
	Source       mailbox.Source
	Messages     []domain.RawMessage
	Results      []parser.Result // Results[i] belongs to Messages[i]
	Transactions []*domain.ParsedTransaction
	ExportFailed bool
	MarkedRead   int
}

// Step 1: ConnectStep opens the mailbox. A failed dial is logged and
// leaves state.Source nil, so the sync yields an empty batch.
type ConnectStep struct {
	Dialer mailbox.Dialer
}

func (s *ConnectStep) Execute(ctx context.Context, state *PipelineState) error {
	source, err := s.Dialer.Dial(ctx, state.Credentials)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("connect: %w", ctxErr)
		}
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("server", state.Credentials.Server).Msg("Failed to connect to mailbox")
		return nil
	}
	state.Source = source
	return nil
}

// Step 2: FetchStep lists the unread messages.
type FetchStep struct {
	Metrics *metrics.Metrics
}

func (s *FetchStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Source == nil {
		state.Messages = nil
		return nil
	}
	state.Messages = state.Source.FetchUnread(ctx)
	if s.Metrics != nil {
		s.Metrics.MessagesFetched.Add(float64(len(state.Messages)))
	}
	log := logger.FromContext(ctx)
	log.Info().Int("count", len(state.Messages)).Msg("Fetched unread messages")
	return nil
}

// Step 3: ParseStep runs every message through the engine.
type ParseStep struct {
	Engine  *parser.Engine
	Workers int
	Metrics *metrics.Metrics
}

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)

	state.Results = s.Engine.EvaluateBatch(state.Messages, s.Workers)
	state.Transactions = state.Transactions[:0]

	for i, r := range state.Results {
		if r.Transaction == nil {
			log.Debug().
				Str("email_id", state.Messages[i].ID).
				Str("template", r.Template).
				Str("reason", string(r.Skip)).
				Msg("Message skipped")
			if s.Metrics != nil {
				s.Metrics.MessagesSkipped.WithLabelValues(string(r.Skip)).Inc()
			}
			continue
		}
		state.Transactions = append(state.Transactions, r.Transaction)
		if s.Metrics != nil {
			s.Metrics.MessagesParsed.WithLabelValues(r.Template).Inc()
		}
	}
	return nil
}

// Step 4: ArchiveStep stores the raw source of every parsed message.
// Archive failures are logged and do not stop the sync.
type ArchiveStep struct {
	Archiver Archiver
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	for i, r := range state.Results {
		if r.Transaction == nil {
			continue
		}
		uri, err := s.Archiver.Archive(ctx, state.Messages[i])
		if err != nil {
			log.Warn().Err(err).Str("email_id", state.Messages[i].ID).Msg("Failed to archive raw message")
			continue
		}
		log.Debug().Str("email_id", state.Messages[i].ID).Str("uri", uri).Msg("Archived raw message")
	}
	return nil
}

// Step 5: ExportStep hands the transactions to every sink.
// A failing sink is logged and recorded in state.ExportFailed.
type ExportStep struct {
	Sinks   []Sink
	Metrics *metrics.Metrics
}

func (s *ExportStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Transactions) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	for _, sink := range s.Sinks {
		if err := sink.Export(ctx, state.Transactions); err != nil {
			state.ExportFailed = true
			if s.Metrics != nil {
				s.Metrics.ExportFailures.WithLabelValues(sink.Name()).Inc()
			}
			log.Error().Err(err).Str("sink", sink.Name()).Int("count", len(state.Transactions)).Msg("Export failed")
			continue
		}
		log.Info().Str("sink", sink.Name()).Int("count", len(state.Transactions)).Msg("Exported transactions")
	}
	return nil
}

// Step 6: MarkReadStep flags every message that produced a transaction.
type MarkReadStep struct {
	Enabled       bool
	RequireExport bool
	Metrics       *metrics.Metrics
}

func (s *MarkReadStep) Execute(ctx context.Context, state *PipelineState) error {
	if !s.Enabled || state.Source == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	if s.RequireExport && state.ExportFailed {
		log.Warn().Msg("Export failed, leaving messages unread")
		return nil
	}

	for i, r := range state.Results {
		if r.Transaction == nil {
			continue
		}
		id := state.Messages[i].ID
		if err := state.Source.MarkRead(ctx, id); err != nil {
			log.Error().Err(err).Str("email_id", id).Msg("Error marking message as read")
			continue
		}
		state.MarkedRead++
		if s.Metrics != nil {
			s.Metrics.MessagesMarkedRead.Inc()
		}
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
