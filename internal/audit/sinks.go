package audit

import (
	"context"
	"fmt"
	"log/slog"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name implements the optional sink name.
func (s *LogSink) Name() string { return "log" }

// Publish implements Sink.
func (s *LogSink) Publish(ctx context.Context, events []*domain.AuditEvent) error {
	for _, e := range events {
		level := slog.LevelInfo
		if e.Outcome != OutcomeOK {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "audit",
			"id", e.ID,
			"op", e.Operation,
			"mint", e.Mint,
			"scope", e.Scope,
			"caller", e.Caller,
			"outcome", e.Outcome,
			"code", e.Code,
		)
	}
	return nil
}

// StoreSink persists events in an audit event store.
type StoreSink struct {
	store storage.AuditEventStore
}

// NewStoreSink creates a store sink.
func NewStoreSink(store storage.AuditEventStore) *StoreSink {
	return &StoreSink{store: store}
}

// Name implements the optional sink name.
func (s *StoreSink) Name() string { return "store" }

// Publish implements Sink.
func (s *StoreSink) Publish(ctx context.Context, events []*domain.AuditEvent) error {
	if err := s.store.InsertBulk(ctx, events); err != nil {
		return fmt.Errorf("insert audit events: %w", err)
	}
	return nil
}

var (
	_ Sink = (*LogSink)(nil)
	_ Sink = (*StoreSink)(nil)
)
