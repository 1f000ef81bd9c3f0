package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/caterdispatch/tally/internal/domain"
)

type stubTemplateStore struct {
	tpl *domain.PricingTemplate
}

func (s *stubTemplateStore) SaveTemplate(ctx context.Context, tpl *domain.PricingTemplate) error {
	return nil
}

func (s *stubTemplateStore) GetTemplate(ctx context.Context, id string) (*domain.PricingTemplate, error) {
	if s.tpl != nil && s.tpl.ID == id {
		return s.tpl, nil
	}
	return nil, domain.ErrTemplateNotFound
}

func (s *stubTemplateStore) ListTemplates(ctx context.Context) ([]*domain.PricingTemplate, error) {
	if s.tpl == nil {
		return nil, nil
	}
	return []*domain.PricingTemplate{s.tpl}, nil
}

func (s *stubTemplateStore) DeleteTemplate(ctx context.Context, id string) error {
	return nil
}

type stubClientStore struct {
	cfg *domain.ClientConfiguration
}

func (s *stubClientStore) SaveClientConfig(ctx context.Context, cfg *domain.ClientConfiguration) error {
	return nil
}

func (s *stubClientStore) GetClientConfig(ctx context.Context, id string) (*domain.ClientConfiguration, error) {
	if s.cfg != nil && s.cfg.ID == id {
		return s.cfg, nil
	}
	return nil, domain.ErrClientConfigNotFound
}

func (s *stubClientStore) ListClientConfigs(ctx context.Context) ([]*domain.ClientConfiguration, error) {
	if s.cfg == nil {
		return nil, nil
	}
	return []*domain.ClientConfiguration{s.cfg}, nil
}

func newTestLoader(tpl *domain.PricingTemplate) (*Loader, *SnapshotStore) {
	snapshots := NewSnapshotStore(nil)
	loader := NewLoader(snapshots, &stubTemplateStore{tpl: tpl}, &stubClientStore{}, nil, 0)
	return loader, snapshots
}

func TestLoaderInstallsOnMiss(t *testing.T) {
	loader, snapshots := newTestLoader(standardTemplate())
	ctx := context.Background()

	snap, err := loader.GetSnapshot(ctx, "standard-catering")
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snap == nil || snap.Template.ID != "standard-catering" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// The miss path installs into the store for the next calculation
	if snapshots.Get("standard-catering") == nil {
		t.Error("snapshot not installed after store load")
	}
}

func TestLoaderTemplateNotFound(t *testing.T) {
	loader, _ := newTestLoader(nil)

	_, err := loader.GetSnapshot(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestLoaderInactiveTemplate(t *testing.T) {
	tpl := standardTemplate()
	tpl.Active = false
	loader, _ := newTestLoader(tpl)

	_, err := loader.GetSnapshot(context.Background(), tpl.ID)
	if !errors.Is(err, domain.ErrTemplateInactive) {
		t.Errorf("expected ErrTemplateInactive, got %v", err)
	}
}

// A reload or template deletion racing the load path must never leave a
// caller with neither a snapshot nor an error.
func TestLoaderGetSnapshotDuringRemove(t *testing.T) {
	loader, snapshots := newTestLoader(standardTemplate())
	ctx := context.Background()

	stop := make(chan struct{})
	var removers sync.WaitGroup
	removers.Add(1)
	go func() {
		defer removers.Done()
		for {
			select {
			case <-stop:
				return
			default:
				snapshots.Remove("standard-catering")
			}
		}
	}()

	var readers sync.WaitGroup
	errCh := make(chan error, 8)
	deadline := time.Now().Add(200 * time.Millisecond)
	for i := 0; i < 8; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for time.Now().Before(deadline) {
				snap, err := loader.GetSnapshot(ctx, "standard-catering")
				if err != nil {
					errCh <- err
					return
				}
				if snap == nil {
					errCh <- errors.New("nil snapshot with nil error")
					return
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	removers.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("GetSnapshot under concurrent Remove: %v", err)
	}
}
