package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmehdipour/supplier-risk/internal/kafka"
	"github.com/jmehdipour/supplier-risk/internal/logger"
	"github.com/jmehdipour/supplier-risk/internal/metrics"
	"github.com/jmehdipour/supplier-risk/internal/model"
	"go.uber.org/zap"
)

// Source is the part of *kafka.Consumer the projector needs.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// Sink stores projected change events.
type Sink interface {
	InsertBatch(ctx context.Context, events []model.ChangeEvent) error
}

// HistoryProjector:
// - fetches supplier change events from Kafka,
// - batches them by size/time into ClickHouse,
// - commits offsets only after the batch is stored (at-least-once).
type HistoryProjector struct {
	Source Source
	Sink   Sink

	BatchSize    int           // max buffered events per flush
	BatchWait    time.Duration // max time to wait before flush
	RetryBackoff time.Duration // first delay after a failed flush, doubles up to MaxBackoff
	MaxBackoff   time.Duration
}

// NewHistoryProjector builds a projector with sane defaults.
func NewHistoryProjector(src Source, sink Sink) *HistoryProjector {
	return &HistoryProjector{
		Source:       src,
		Sink:         sink,
		BatchSize:    500,
		BatchWait:    500 * time.Millisecond,
		RetryBackoff: 200 * time.Millisecond,
		MaxBackoff:   5 * time.Second,
	}
}

// Run blocks until ctx is cancelled, then flushes what it holds.
func (w *HistoryProjector) Run(ctx context.Context) error {
	if w.Source == nil || w.Sink == nil {
		return errors.New("history projector: missing source or sink")
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 500
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 500 * time.Millisecond
	}
	if w.RetryBackoff <= 0 {
		w.RetryBackoff = 200 * time.Millisecond
	}
	if w.MaxBackoff < w.RetryBackoff {
		w.MaxBackoff = w.RetryBackoff
	}

	msgCh := make(chan kafka.Message, w.BatchSize)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			m, err := w.Source.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Log.Warn("history: kafka fetch failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	var (
		events  []model.ChangeEvent
		pending []kafka.Message // every fetched message, poison included, in fetch order
	)

	flush := func(ctx context.Context) bool {
		if len(pending) == 0 {
			return true
		}
		if !w.store(ctx, events) {
			return false
		}
		if err := w.Source.Commit(ctx, pending...); err != nil {
			// rows are stored; a redelivery collapses on event_id
			logger.Log.Warn("history: kafka commit failed", zap.Error(err))
		}
		metrics.HistoryEventsTotal.WithLabelValues("stored").Add(float64(len(events)))
		logger.Log.Debug("history: flushed", zap.Int("events", len(events)), zap.Int("messages", len(pending)))
		events = events[:0]
		pending = pending[:0]
		return true
	}

	shutdown := func() error {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		flush(sctx)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown()

		case m, ok := <-msgCh:
			if !ok {
				return shutdown()
			}
			metrics.HistoryEventsTotal.WithLabelValues("consumed").Inc()
			pending = append(pending, m)

			ev, err := DecodeChangeEvent(m.Value)
			if err != nil {
				metrics.HistoryEventsTotal.WithLabelValues("skipped").Inc()
				logger.Log.Warn("history: skipping poison message",
					zap.String("topic", m.Topic), zap.Int("partition", m.Partition),
					zap.Int64("offset", m.Offset), zap.Error(err))
			} else {
				events = append(events, ev)
			}

			if len(pending) >= w.BatchSize && !flush(ctx) {
				return shutdown()
			}

		case <-tick.C:
			if !flush(ctx) {
				return shutdown()
			}
		}
	}
}

// store retries InsertBatch until it succeeds or ctx ends.
func (w *HistoryProjector) store(ctx context.Context, events []model.ChangeEvent) bool {
	if len(events) == 0 {
		return true
	}
	backoff := w.RetryBackoff
	for {
		err := w.Sink.InsertBatch(ctx, events)
		if err == nil {
			return true
		}
		metrics.HistoryEventsTotal.WithLabelValues("failed").Add(float64(len(events)))
		logger.Log.Error("history: clickhouse insert failed",
			zap.Int("events", len(events)), zap.Duration("retry_in", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > w.MaxBackoff {
			backoff = w.MaxBackoff
		}
	}
}

// DecodeChangeEvent accepts the event JSON as written to the outbox, also when
// the CDC connector delivers it as a JSON string or inside a schema envelope.
func DecodeChangeEvent(raw []byte) (model.ChangeEvent, error) {
	var ev model.ChangeEvent

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ev, err
		}
		raw = []byte(s)
	}

	var env struct {
		Schema  json.RawMessage `json:"schema"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Schema != nil && env.Payload != nil {
		return DecodeChangeEvent(env.Payload)
	}

	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, err
	}
	if ev.EventID == "" || ev.RecordID == "" {
		return ev, errors.New("change event missing event_id or record_id")
	}
	if ev.OccurredAt.IsZero() {
		return ev, errors.New("change event missing occurred_at")
	}
	return ev, nil
}
