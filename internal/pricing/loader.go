package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/caterdispatch/tally/internal/domain"
)

const (
	templateCachePrefix = "template:"
	clientCachePrefix   = "client:"
)

// Loader resolves templates and client configurations for the calculation
// path. Lookup order: snapshot store, cache, backing store. Store hits are
// installed into the snapshot store and cache so the next calculation stays
// off the database.
type Loader struct {
	snapshots *SnapshotStore
	templates domain.TemplateStore
	clients   domain.ClientConfigStore
	cache     domain.Cache
	cacheTTL  time.Duration
}

// NewLoader creates a loader. cache may be nil to disable the middle layer.
func NewLoader(snapshots *SnapshotStore, templates domain.TemplateStore, clients domain.ClientConfigStore, cache domain.Cache, cacheTTL time.Duration) *Loader {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Loader{
		snapshots: snapshots,
		templates: templates,
		clients:   clients,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

// GetSnapshot returns the evaluation-ready snapshot for a template.
func (l *Loader) GetSnapshot(ctx context.Context, templateID string) (*TemplateSnapshot, error) {
	if snap := l.snapshots.Get(templateID); snap != nil {
		return snap, nil
	}

	tpl, err := l.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.Active {
		return nil, domain.ErrTemplateInactive
	}

	return l.snapshots.install(tpl)
}

// GetClientConfig returns a client configuration, cache-first.
func (l *Loader) GetClientConfig(ctx context.Context, id string) (*domain.ClientConfiguration, error) {
	if l.cache != nil {
		if data, err := l.cache.Get(ctx, clientCachePrefix+id); err == nil && data != nil {
			var cfg domain.ClientConfiguration
			if err := json.Unmarshal(data, &cfg); err == nil {
				return &cfg, nil
			}
		}
	}

	cfg, err := l.clients.GetClientConfig(ctx, id)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if data, err := json.Marshal(cfg); err == nil {
			if err := l.cache.Set(ctx, clientCachePrefix+id, data, l.cacheTTL); err != nil {
				slog.Warn("failed to cache client config", "id", id, "error", err)
			}
		}
	}
	return cfg, nil
}

// Invalidate drops a template from the snapshot store and cache, forcing the
// next calculation to reload it.
func (l *Loader) Invalidate(ctx context.Context, templateID string) {
	l.snapshots.Remove(templateID)
	if l.cache != nil {
		if err := l.cache.Delete(ctx, templateCachePrefix+templateID); err != nil {
			slog.Warn("failed to invalidate cached template", "id", templateID, "error", err)
		}
	}
}

// InvalidateClient drops a client configuration from the cache.
func (l *Loader) InvalidateClient(ctx context.Context, clientID string) {
	if l.cache != nil {
		if err := l.cache.Delete(ctx, clientCachePrefix+clientID); err != nil {
			slog.Warn("failed to invalidate cached client config", "id", clientID, "error", err)
		}
	}
}

func (l *Loader) loadTemplate(ctx context.Context, id string) (*domain.PricingTemplate, error) {
	if l.cache != nil {
		if data, err := l.cache.Get(ctx, templateCachePrefix+id); err == nil && data != nil {
			var tpl domain.PricingTemplate
			if err := json.Unmarshal(data, &tpl); err == nil {
				return &tpl, nil
			}
		}
	}

	tpl, err := l.templates.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, err
	}

	if l.cache != nil {
		if data, err := json.Marshal(tpl); err == nil {
			if err := l.cache.Set(ctx, templateCachePrefix+id, data, l.cacheTTL); err != nil {
				slog.Warn("failed to cache template", "id", id, "error", err)
			}
		}
	}
	return tpl, nil
}
