package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/supplier-risk/internal/model"
)

const outboxSQL = "INSERT INTO outbox (id, aggregate, aggregate_id, topic, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)"

func testEvent() model.ChangeEvent {
	return model.ChangeEvent{
		EventID:    "01JEVT",
		Table:      "suppliers",
		RecordID:   "sup-42",
		Changes:    model.Fields{"riskScore": model.Int(7)},
		OccurredAt: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}
}

func TestOutboxInsertUsesCallerTx(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer raw.Close()
	dbx := sqlx.NewDb(raw, "mysql")

	ev := testEvent()
	mock.ExpectBegin()
	mock.ExpectExec(outboxSQL).
		WithArgs(ev.EventID, "suppliers", "sup-42", "suppliers.changes", sqlmock.AnyArg(), ev.OccurredAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := dbx.Beginx()
	require.NoError(t, err)

	repo := NewOutboxRepository()
	require.NoError(t, repo.Insert(context.Background(), tx, "suppliers.changes", ev))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxInsertWithoutTx(t *testing.T) {
	repo := NewOutboxRepository()

	err := repo.Insert(context.Background(), nil, "suppliers.changes", testEvent())
	assert.ErrorIs(t, err, ErrNoTx)
}
