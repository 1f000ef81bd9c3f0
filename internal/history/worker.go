package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/caterdispatch/tally/internal/domain"
)

// Worker consumes history records from the EventBus and persists them.
type Worker struct {
	bus   domain.EventBus
	store domain.HistoryStore

	maxRetryElapsed time.Duration

	subscription domain.Subscription
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorker creates a new history worker.
func NewWorker(bus domain.EventBus, store domain.HistoryStore) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:             bus,
		store:           store,
		maxRetryElapsed: 30 * time.Second,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Start subscribes to the history topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicHistoryRecord, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscription = sub

	slog.Info("history worker started",
		"topic", domain.TopicHistoryRecord,
	)
	return nil
}

// Stop unsubscribes and cancels in-flight retries.
func (w *Worker) Stop() {
	w.cancel()
	if w.subscription != nil {
		_ = w.subscription.Unsubscribe()
	}
	slog.Info("history worker stopped")
}

// handleMessage persists a single history record. Transient store errors are
// retried with exponential backoff; a record that still cannot be written is
// logged and dropped so it never blocks the topic.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	var rec domain.CalculationHistory
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		slog.Error("failed to parse history record",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(w.maxRetryElapsed),
	), ctx)

	err := backoff.Retry(func() error {
		return w.store.SaveHistory(ctx, &rec)
	}, policy)
	if err != nil {
		slog.Error("failed to save history record, dropping",
			"record_id", rec.ID,
			"template_id", rec.TemplateID,
			"error", err,
		)
		return err
	}

	slog.Debug("history record saved",
		"record_id", rec.ID,
		"template_id", rec.TemplateID,
	)
	return nil
}
