package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/caterdispatch/tally/internal/domain"
	"github.com/caterdispatch/tally/internal/pricing"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	loader     *pricing.Loader
	snapshots  *pricing.SnapshotStore
	calculator *pricing.Calculator
	conditions *pricing.Conditions
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, loader *pricing.Loader, snapshots *pricing.SnapshotStore, calculator *pricing.Calculator, conditions *pricing.Conditions, version string) *Handler {
	return &Handler{
		repo:       repo,
		cache:      cache,
		loader:     loader,
		snapshots:  snapshots,
		calculator: calculator,
		conditions: conditions,
		version:    version,
	}
}

// CalculateRequest is the request body for POST /calculate.
type CalculateRequest struct {
	TemplateID     string                  `json:"templateId"`
	ClientConfigID string                  `json:"clientConfigId,omitempty"`
	Input          domain.CalculationInput `json:"input"`
}

// CalculateResponse is the response for POST /calculate.
type CalculateResponse struct {
	Result   *domain.CalculationResult `json:"result"`
	Metadata struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// Calculate handles POST /calculate requests.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.TemplateID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "templateId is required",
		})
		return
	}

	result, err := h.calculator.Calculate(ctx, req.TemplateID, req.Input, pricing.Options{
		ClientConfigID: req.ClientConfigID,
	})
	if err != nil {
		writeCalculationError(w, err)
		return
	}

	// Per-template daily volume counter; failures are logged only.
	if h.cache != nil {
		if count, err := h.cache.IncrementCounter(ctx, "calc:"+req.TemplateID, 24*time.Hour); err == nil {
			slog.Debug("calculation counted",
				"template_id", req.TemplateID,
				"daily_count", count,
			)
		} else {
			slog.Warn("failed to increment calculation counter", "error", err)
		}
	}

	resp := CalculateResponse{Result: result}
	resp.Metadata.TraceID = traceID
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// writeCalculationError maps calculation failures to HTTP statuses.
func writeCalculationError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrClientConfigNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrTemplateInactive),
		errors.Is(err, domain.ErrClientConfigInactive),
		errors.Is(err, domain.ErrClientConfigMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error("calculation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "calculation failed",
		})
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GetCalculation retrieves a calculation audit record by ID.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recID := chi.URLParam(r, "id")

	if recID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "calculation id is required",
		})
		return
	}

	rec, err := h.repo.GetHistory(ctx, recID)
	if err != nil {
		slog.Error("failed to get calculation", "id", recID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "calculation not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListCalculations returns recent audit records, optionally filtered by
// template via ?templateId=.
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := r.URL.Query().Get("templateId")

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be an integer between 1 and 500",
			})
			return
		}
		limit = n
	}

	records, err := h.repo.ListHistory(ctx, templateID, limit)
	if err != nil {
		slog.Error("failed to list calculations", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list calculations",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"calculations": records,
		"count":        len(records),
	})
}

// ListTemplates returns all templates currently loaded in the snapshot store.
// Templates are loaded from the database at startup and can be reloaded via
// POST /templates/reload.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := h.snapshots.Templates()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
		"source":    "database",
	})
}

// GetTemplate retrieves a template by ID, loading it on demand if it is not
// yet in the snapshot store.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "id")

	if templateID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "template id is required",
		})
		return
	}

	snap, err := h.loader.GetSnapshot(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "template not found",
			})
			return
		}
		if errors.Is(err, domain.ErrTemplateInactive) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": "template is inactive",
			})
			return
		}
		slog.Error("failed to get template", "id", templateID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get template",
		})
		return
	}

	writeJSON(w, http.StatusOK, snap.Template)
}

// CreateTemplate persists a template and hot-loads it into the snapshot
// store.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var tpl domain.PricingTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	if tpl.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name is required",
		})
		return
	}

	if err := tpl.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	// Validate gate expressions before anything is persisted
	for _, rule := range tpl.Rules {
		if rule.Condition == "" {
			continue
		}
		if err := h.conditions.Validate(rule.Condition); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid condition on rule " + rule.ID + ": " + err.Error(),
			})
			return
		}
	}

	if err := h.repo.SaveTemplate(ctx, &tpl); err != nil {
		slog.Error("failed to save template", "id", tpl.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save template",
		})
		return
	}

	// Hot-load into the snapshot store so the new version serves immediately
	if tpl.Active {
		if err := h.snapshots.Load(&tpl); err != nil {
			slog.Error("failed to load template snapshot", "id", tpl.ID, "error", err)
		}
	}
	h.loader.Invalidate(ctx, tpl.ID)

	slog.Info("template saved", "id", tpl.ID, "name", tpl.Name, "version", tpl.Version)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"template": tpl,
	})
}

// DeleteTemplate removes a template from the database and the snapshot
// store.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	templateID := chi.URLParam(r, "id")

	if templateID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "template id is required",
		})
		return
	}

	if err := h.repo.DeleteTemplate(ctx, templateID); err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "template not found",
			})
			return
		}
		slog.Error("failed to delete template", "id", templateID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete template",
		})
		return
	}

	h.snapshots.Remove(templateID)
	h.loader.Invalidate(ctx, templateID)

	slog.Info("template deleted", "id", templateID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "template deleted",
	})
}

// ReloadTemplates reloads all active templates from the database into the
// snapshot store. This enables hot-reloading without server restart.
func (h *Handler) ReloadTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	templates, err := h.repo.ListTemplates(ctx)
	if err != nil {
		slog.Error("failed to list templates from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load templates from database",
		})
		return
	}

	if err := h.snapshots.ReloadAll(templates); err != nil {
		slog.Error("failed to reload templates", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload templates: " + err.Error(),
		})
		return
	}

	slog.Info("templates reloaded from database", "count", h.snapshots.Count())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "templates reloaded successfully",
		"count":   h.snapshots.Count(),
	})
}

// ListClientConfigs returns all client configurations.
func (h *Handler) ListClientConfigs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	configs, err := h.repo.ListClientConfigs(ctx)
	if err != nil {
		slog.Error("failed to list client configs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list client configurations",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"clients": configs,
		"count":   len(configs),
	})
}

// GetClientConfig retrieves a client configuration by ID.
func (h *Handler) GetClientConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "id")

	if clientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "client id is required",
		})
		return
	}

	cfg, err := h.repo.GetClientConfig(ctx, clientID)
	if err != nil {
		if errors.Is(err, domain.ErrClientConfigNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "client configuration not found",
			})
			return
		}
		slog.Error("failed to get client config", "id", clientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get client configuration",
		})
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// CreateClientConfig persists a client configuration. The referenced
// template must exist.
func (h *Handler) CreateClientConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cfg domain.ClientConfiguration
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.Name == "" || cfg.TemplateID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "name and templateId are required",
		})
		return
	}

	// The configuration must layer over a template that exists
	if _, err := h.repo.GetTemplate(ctx, cfg.TemplateID); err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "templateId references an unknown template",
			})
			return
		}
		slog.Error("failed to check template", "id", cfg.TemplateID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save client configuration",
		})
		return
	}

	if err := h.repo.SaveClientConfig(ctx, &cfg); err != nil {
		slog.Error("failed to save client config", "id", cfg.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save client configuration",
		})
		return
	}

	h.loader.InvalidateClient(ctx, cfg.ID)

	slog.Info("client config saved", "id", cfg.ID, "name", cfg.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"client": cfg,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
