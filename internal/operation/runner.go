// Package operation runs one top-level mutation as an atomic unit and reports
// its outcome (metrics, logs, audit events) once the unit has settled.
package operation

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"solana-security-token/internal/audit"
	"solana-security-token/internal/domain"
	"solana-security-token/internal/observability"
	"solana-security-token/internal/storage"
)

// Meta identifies an operation for logs and audit events.
type Meta struct {
	Name   string
	Mint   string
	Scope  string
	Caller string
	Attrs  map[string]string
}

// Func is the body of an operation. It must only touch state through tx.
type Func func(ctx context.Context, tx storage.Tx, rec *audit.Recorder) error

// Runner executes operations against a store.
type Runner struct {
	store     storage.Store
	publisher *audit.Publisher
	logger    *slog.Logger
}

// NewRunner creates a runner. publisher may be nil.
func NewRunner(store storage.Store, publisher *audit.Publisher, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, publisher: publisher, logger: logger}
}

// Run executes fn in one transaction. Business rejections roll back every
// mutation and are returned unchanged; infrastructure failures are wrapped.
func (r *Runner) Run(ctx context.Context, meta Meta, fn Func) error {
	start := time.Now()
	var rec audit.Recorder

	err := r.store.RunInTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		rec.Reset()
		return fn(ctx, tx, &rec)
	})

	if m := rec.Mint(); m != "" {
		meta.Mint = m
	}

	code := domain.CodeOf(err)
	status := "ok"
	switch {
	case err == nil:
	case code != "":
		status = "rejected"
	default:
		status = "error"
	}
	observability.RecordOperation(meta.Name, status, string(code), time.Since(start).Seconds())

	log := r.logger.With("op", meta.Name, "mint", meta.Mint, "caller", meta.Caller)
	switch status {
	case "ok":
		log.Info("operation committed", "scope", meta.Scope)
	case "rejected":
		log.Debug("operation rejected", "code", code)
	default:
		log.Error("operation failed", "error", err)
		return fmt.Errorf("%s: %w", meta.Name, err)
	}

	r.publish(ctx, meta, &rec, err)
	return err
}

// Read executes fn in a transaction that is expected not to mutate.
func (r *Runner) Read(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return r.store.RunInTx(ctx, fn)
}

func (r *Runner) publish(ctx context.Context, meta Meta, rec *audit.Recorder, err error) {
	if r.publisher == nil {
		return
	}

	attrs := maps.Clone(meta.Attrs)
	if a := rec.Attributes(); len(a) > 0 {
		if attrs == nil {
			attrs = make(map[string]string, len(a))
		}
		maps.Copy(attrs, a)
	}

	events := []*domain.AuditEvent{audit.NewEvent(meta.Mint, meta.Scope, meta.Name, meta.Caller, err, attrs)}
	if err == nil {
		events = append(events, rec.Events()...)
	}
	for _, e := range events {
		observability.RecordAuditPublished(e.Outcome, 1)
	}
	// Sink errors are logged by the publisher; the operation already settled.
	_ = r.publisher.Publish(ctx, events...)
}
