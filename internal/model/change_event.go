package model

import (
	"encoding/json"
	"time"
)

// ChangeEvent is written to the outbox with every accepted supplier update and
// published to Kafka by the CDC connector.
type ChangeEvent struct {
	EventID    string    `json:"event_id"` // ULID
	Table      string    `json:"table"`
	RecordID   string    `json:"record_id"`
	Changes    Fields    `json:"changes"`
	OccurredAt time.Time `json:"occurred_at"`
}

// HistoryEntry is one projected change row of the ClickHouse read model.
type HistoryEntry struct {
	EventID    string          `json:"event_id"`
	SupplierID string          `json:"supplier_id"`
	Changes    json.RawMessage `json:"changes"`
	OccurredAt time.Time       `json:"occurred_at"`
}
