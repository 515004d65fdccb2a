// Package audit records committed operations and enforcement decisions.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"solana-security-token/internal/domain"
)

// Outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeDenied   = "denied"
	OutcomeRejected = "rejected"
)

// Sink receives published events.
type Sink interface {
	Publish(ctx context.Context, events []*domain.AuditEvent) error
}

// Publisher fans events out to every sink. Events are published after the
// operation that produced them has committed, so sink failures are logged and
// returned but never undo the operation.
type Publisher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewPublisher creates a publisher over sinks.
func NewPublisher(logger *slog.Logger, sinks ...Sink) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{sinks: sinks, logger: logger}
}

// AddSink registers another sink. Not safe for use after publishing started.
func (p *Publisher) AddSink(s Sink) {
	p.sinks = append(p.sinks, s)
}

// Publish sends events to every sink.
func (p *Publisher) Publish(ctx context.Context, events ...*domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, s := range p.sinks {
		if err := s.Publish(ctx, events); err != nil {
			p.logger.Error("publish audit events", "sink", sinkName(s), "count", len(events), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewEvent builds an event. A nil err yields OutcomeOK; a business rejection
// yields its code.
func NewEvent(mint, scope, op, caller string, err error, attrs map[string]string) *domain.AuditEvent {
	e := &domain.AuditEvent{
		ID:         uuid.NewString(),
		Mint:       mint,
		Scope:      scope,
		Operation:  op,
		Caller:     caller,
		Outcome:    OutcomeOK,
		Attributes: attrs,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err != nil {
		e.Outcome = OutcomeRejected
		e.Code = string(domain.CodeOf(err))
	}
	return e
}

// NewDecisionEvent builds the event of one enforcement verdict.
func NewDecisionEvent(req domain.MovementRequest, d domain.Decision, caller string) *domain.AuditEvent {
	e := NewEvent(req.Mint, "enforcement", string(req.Kind), caller, nil, map[string]string{
		"from":   req.From,
		"to":     req.To,
		"amount": strconv.FormatUint(req.Amount, 10),
	})
	if !d.Allowed {
		e.Outcome = OutcomeDenied
		e.Code = string(domain.CodeOf(d.Reason))
	}
	return e
}

// Recorder buffers what one atomic operation produced: extra events and
// attributes for the operation's own event.
type Recorder struct {
	events []*domain.AuditEvent
	attrs  map[string]string
	mint   string
}

// Record appends e.
func (r *Recorder) Record(e *domain.AuditEvent) {
	r.events = append(r.events, e)
}

// Annotate sets an attribute on the operation event.
func (r *Recorder) Annotate(key, value string) {
	if r.attrs == nil {
		r.attrs = make(map[string]string)
	}
	r.attrs[key] = value
}

// SetMint names the mint of an operation that only learns it inside the
// transaction.
func (r *Recorder) SetMint(mint string) {
	r.mint = mint
}

// Mint returns the mint set by SetMint.
func (r *Recorder) Mint() string {
	return r.mint
}

// Events returns the buffered events.
func (r *Recorder) Events() []*domain.AuditEvent {
	return r.events
}

// Attributes returns the annotations.
func (r *Recorder) Attributes() map[string]string {
	return r.attrs
}

// Reset drops everything buffered.
func (r *Recorder) Reset() {
	r.events = nil
	r.attrs = nil
	r.mint = ""
}

func sinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}
