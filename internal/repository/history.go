package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmehdipour/supplier-risk/internal/model"
	"github.com/jmoiron/sqlx"
)

// HistoryRepository stores and lists supplier change events in ClickHouse.
type HistoryRepository interface {
	InsertBatch(ctx context.Context, events []model.ChangeEvent) error
	ListBySupplier(ctx context.Context, supplierID string, limit, offset int) ([]model.HistoryEntry, error)
}

type historyRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewHistoryRepository(ch *sqlx.DB) HistoryRepository {
	return &historyRepository{ch: ch}
}

type historyRow struct {
	EventID    string    `db:"event_id"`
	SupplierID string    `db:"supplier_id"`
	Changes    string    `db:"changes"`
	OccurredAt time.Time `db:"occurred_at"`
}

// InsertBatch sends all events as one ClickHouse block. The table is a
// ReplacingMergeTree on event_id, so redelivered events collapse on merge.
func (r *historyRepository) InsertBatch(ctx context.Context, events []model.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO supplier_changes (event_id, supplier_id, changes, occurred_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		changes, err := json.Marshal(ev.Changes)
		if err != nil {
			return fmt.Errorf("marshal changes of %s: %w", ev.EventID, err)
		}
		if _, err := stmt.ExecContext(ctx, ev.EventID, ev.RecordID, string(changes), ev.OccurredAt.UTC()); err != nil {
			return fmt.Errorf("append %s: %w", ev.EventID, err)
		}
	}

	return tx.Commit()
}

func (r *historyRepository) ListBySupplier(ctx context.Context, supplierID string, limit, offset int) ([]model.HistoryEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT event_id, supplier_id, changes, occurred_at
		FROM supplier_changes FINAL
		WHERE supplier_id = ?
		ORDER BY occurred_at DESC, event_id DESC
		LIMIT ? OFFSET ?
	`

	var rows []historyRow
	if err := r.ch.SelectContext(ctx, &rows, q, supplierID, limit, offset); err != nil {
		return nil, err
	}

	out := make([]model.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.HistoryEntry{
			EventID:    row.EventID,
			SupplierID: row.SupplierID,
			Changes:    json.RawMessage(row.Changes),
			OccurredAt: row.OccurredAt.UTC(),
		})
	}
	return out, nil
}
