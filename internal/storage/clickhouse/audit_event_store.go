package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/observability"
	"solana-security-token/internal/storage"
)

// AuditEventStore implements storage.AuditEventStore using ClickHouse.
type AuditEventStore struct {
	conn *Conn
}

// NewAuditEventStore creates a new AuditEventStore.
func NewAuditEventStore(conn *Conn) *AuditEventStore {
	return &AuditEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditEventStore = (*AuditEventStore)(nil)

// InsertBulk appends events. Fails entire batch on a duplicate id.
func (s *AuditEventStore) InsertBulk(ctx context.Context, events []*domain.AuditEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "audit_insert", time.Since(start).Seconds(), err) }()

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if _, exists := seen[e.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}

	// Check for duplicates against existing rows
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM audit_events WHERE id IN (?)`, ids).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO audit_events (
			id, mint, scope, operation, caller, outcome, code, attributes, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		attrs := e.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		err = batch.Append(
			e.ID, e.Mint, e.Scope, e.Operation, e.Caller,
			e.Outcome, e.Code, attrs, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// ListByMint retrieves the most recent events of a mint, newest first.
// A non-positive limit returns every event.
func (s *AuditEventStore) ListByMint(ctx context.Context, mint string, limit int) ([]*domain.AuditEvent, error) {
	query := `
		SELECT id, mint, scope, operation, caller, outcome, code, attributes, timestamp_ms
		FROM audit_events
		WHERE mint = ?
		ORDER BY timestamp_ms DESC, id DESC
	`
	args := []any{mint}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(
			&e.ID, &e.Mint, &e.Scope, &e.Operation, &e.Caller,
			&e.Outcome, &e.Code, &e.Attributes, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit event row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit event rows: %w", err)
	}

	return events, nil
}
