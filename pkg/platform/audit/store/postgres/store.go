package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	audit "regdesk/pkg/platform/audit"
	txcontext "regdesk/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the
// relay. Kafka is the source of truth for downstream consumers; the outbox
// row is the durable record until the relay marks it published.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka.
// Field names match audit.Event for proper deserialization by consumers.
type outboxPayload struct {
	ID             string `json:"ID"`
	Category       string `json:"Category"`
	Timestamp      string `json:"Timestamp"`
	RegistrationID string `json:"RegistrationID,omitempty"`
	Action         string `json:"Action"`
	ActorID        string `json:"ActorID,omitempty"`
	ActorRole      string `json:"ActorRole,omitempty"`
	Slot           string `json:"Slot,omitempty"`
	Gate           string `json:"Gate,omitempty"`
	Detail         string `json:"Detail,omitempty"`
	RequestID      string `json:"RequestID,omitempty"`
	Email          string `json:"Email,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
// When the context carries a transaction the outbox row commits atomically
// with the business write.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Category is always derived from the action; the map in the audit
	// package is the source of truth.
	category := audit.AuditEvent(event.Action).Category()

	payload := outboxPayload{
		ID:             eventID.String(),
		Category:       string(category),
		Timestamp:      event.Timestamp.Format(time.RFC3339Nano),
		RegistrationID: string(event.RegistrationID),
		Action:         event.Action,
		ActorRole:      event.ActorRole,
		Slot:           event.Slot,
		Gate:           event.Gate,
		Detail:         event.Detail,
		RequestID:      event.RequestID,
		Email:          event.Email,
	}
	if !event.ActorID.IsNil() {
		payload.ActorID = event.ActorID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if event.RegistrationID != "" {
		aggregateType = "registration"
		aggregateID = string(event.RegistrationID)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID, // row id matches the payload ID consumers dedupe on
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// OutboxEntry is one unpublished outbox row, ready for the Kafka relay.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
}

// FetchUnpublished returns up to limit unpublished entries in commit order.
// Delivery is at-least-once: a relay crash between produce and MarkPublished
// re-sends the batch, and consumers deduplicate on the event ID.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		if err := rows.Scan(&entry.ID, &entry.AggregateID, &entry.EventType, &entry.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the given entries as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	raw := make([]string, len(ids))
	for i, entryID := range ids {
		raw[i] = entryID.String()
	}
	if _, err := s.db.ExecContext(ctx, query, publishedAt, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
