package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caterdispatch/tally/internal/bus"
	"github.com/caterdispatch/tally/internal/domain"
)

// memoryStore collects saved records, optionally failing the first n saves.
type memoryStore struct {
	mu       sync.Mutex
	records  []*domain.CalculationHistory
	failures int
	saved    chan struct{}
}

func newMemoryStore(failures int) *memoryStore {
	return &memoryStore{failures: failures, saved: make(chan struct{}, 16)}
}

func (s *memoryStore) SaveHistory(ctx context.Context, rec *domain.CalculationHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("store unavailable")
	}
	s.records = append(s.records, rec)
	s.saved <- struct{}{}
	return nil
}

func (s *memoryStore) GetHistory(ctx context.Context, id string) (*domain.CalculationHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *memoryStore) ListHistory(ctx context.Context, templateID string, limit int) ([]*domain.CalculationHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func testRecord(id string) *domain.CalculationHistory {
	return &domain.CalculationHistory{
		ID:         id,
		TemplateID: "standard-catering",
		Input: domain.CalculationInput{
			Headcount: 35, FoodCost: decimal.RequireFromString("450"), NumberOfStops: 1,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestWorkerPersistsPublishedRecords(t *testing.T) {
	eventBus := bus.NewChannelBus(16)
	defer eventBus.Close()

	store := newMemoryStore(0)
	worker := NewWorker(eventBus, store)
	if err := worker.Start(); err != nil {
		t.Fatalf("worker start failed: %v", err)
	}
	defer worker.Stop()

	recorder := NewBusRecorder(eventBus)
	if err := recorder.Record(context.Background(), testRecord("rec-1")); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	select {
	case <-store.saved:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for record to persist")
	}

	got, err := store.GetHistory(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("record not found: %v", err)
	}
	if got.TemplateID != "standard-catering" || got.Input.Headcount != 35 {
		t.Errorf("record corrupted in transit: %+v", got)
	}
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	eventBus := bus.NewChannelBus(16)
	defer eventBus.Close()

	store := newMemoryStore(2) // first two saves fail
	worker := NewWorker(eventBus, store)
	worker.maxRetryElapsed = 5 * time.Second
	if err := worker.Start(); err != nil {
		t.Fatalf("worker start failed: %v", err)
	}
	defer worker.Stop()

	recorder := NewBusRecorder(eventBus)
	if err := recorder.Record(context.Background(), testRecord("rec-2")); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	select {
	case <-store.saved:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for retried save")
	}

	if store.count() != 1 {
		t.Errorf("records = %d, want 1", store.count())
	}
}

func TestStoreRecorderWritesDirectly(t *testing.T) {
	store := newMemoryStore(0)
	recorder := NewStoreRecorder(store)

	if err := recorder.Record(context.Background(), testRecord("rec-3")); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if store.count() != 1 {
		t.Errorf("records = %d, want 1", store.count())
	}

	failing := newMemoryStore(1)
	if err := NewStoreRecorder(failing).Record(context.Background(), testRecord("rec-4")); err == nil {
		t.Error("expected error from failing store")
	}
}
