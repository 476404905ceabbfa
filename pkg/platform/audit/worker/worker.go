package worker

import (
	"context"
	"log/slog"
	"time"

	"ecovalue/pkg/platform/audit/store/postgres"

	"github.com/google/uuid"
)

// OutboxStore is the relay's view of the outbox table.
type OutboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers one outbox payload.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Worker relays outbox entries to the publisher in insertion order. An entry
// is marked published only after delivery; a failed delivery stops the batch
// so ordering is kept and the entry is retried on the next tick.
type Worker struct {
	store     OutboxStore
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batchSize = n }
}

func NewWorker(store OutboxStore, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:     store,
		publisher: publisher,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.RelayOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "outbox relay failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were delivered.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	entries, err := w.store.FetchPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := make([]uuid.UUID, 0, len(entries))
	var publishErr error
	for _, e := range entries {
		if err := w.publisher.Publish(ctx, []byte(e.AggregateID), e.Payload); err != nil {
			publishErr = err
			break
		}
		delivered = append(delivered, e.ID)
	}

	if err := w.store.MarkPublished(ctx, delivered, time.Now()); err != nil {
		return 0, err
	}
	if len(delivered) > 0 {
		w.logger.DebugContext(ctx, "outbox entries relayed", "count", len(delivered))
	}
	return len(delivered), publishErr
}
