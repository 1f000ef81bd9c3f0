// Package history persists calculation audit records off the request path.
// The recorder publishes records onto the event bus; a worker consumes the
// topic and writes to the repository with retries. A calculation never fails
// because its audit record could not be written.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/caterdispatch/tally/internal/domain"
)

// BusRecorder publishes records to the history topic. The actual write
// happens in the Worker.
type BusRecorder struct {
	bus domain.EventBus
}

// NewBusRecorder creates a recorder backed by the event bus.
func NewBusRecorder(bus domain.EventBus) *BusRecorder {
	return &BusRecorder{bus: bus}
}

// Record publishes the audit record to the history topic.
func (r *BusRecorder) Record(ctx context.Context, rec *domain.CalculationHistory) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal history record: %w", err)
	}
	return r.bus.Publish(ctx, domain.TopicHistoryRecord, payload)
}

// StoreRecorder writes records straight to the repository. Used when no bus
// is wired, e.g. in the seed tool.
type StoreRecorder struct {
	store domain.HistoryStore
}

// NewStoreRecorder creates a recorder that writes directly to the store.
func NewStoreRecorder(store domain.HistoryStore) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// Record persists the audit record synchronously.
func (r *StoreRecorder) Record(ctx context.Context, rec *domain.CalculationHistory) error {
	if err := r.store.SaveHistory(ctx, rec); err != nil {
		return fmt.Errorf("failed to save history record: %w", err)
	}
	slog.Debug("history record saved",
		"record_id", rec.ID,
		"template_id", rec.TemplateID,
	)
	return nil
}
