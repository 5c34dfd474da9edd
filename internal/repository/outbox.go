package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmoiron/sqlx"
)

// ErrNoTx is returned when an outbox row is written outside a transaction.
var ErrNoTx = errors.New("outbox insert requires a transaction")

// OutboxRepository defines persistence methods for the outbox table.
type OutboxRepository interface {
	// Insert writes a single change event inside tx, so the event commits or
	// rolls back together with the row change it describes.
	Insert(ctx context.Context, tx *sqlx.Tx, topic string, ev model.ChangeEvent) error
}

// OutboxRepositoryImpl is a sqlx-backed implementation.
type OutboxRepositoryImpl struct{}

// NewOutboxRepository constructs an OutboxRepositoryImpl.
func NewOutboxRepository() *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{}
}

// Insert adds an event row to outbox. Debezium Outbox SMT will pick it up and
// publish to Kafka based on the `topic` column, keyed by aggregate_id.
func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, topic string, ev model.ChangeEvent) error {
	if tx == nil {
		return ErrNoTx
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}

	const q = `
		INSERT INTO outbox (id, aggregate, aggregate_id, topic, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, q, ev.EventID, ev.Table, ev.RecordID, topic, payload, ev.OccurredAt)

	return err
}
