package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/fraudguard/internal/cache"
	"github.com/opensource-finance/fraudguard/internal/classifier"
	"github.com/opensource-finance/fraudguard/internal/decision"
	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/metrics"
	"github.com/opensource-finance/fraudguard/internal/rules"
)

const defaultDecisionTTL = 10 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	pipeline    *decision.Service
	repo        domain.Repository
	cache       domain.Cache
	advisory    *rules.Engine
	model       *classifier.Adapter
	metrics     *metrics.Metrics
	thresholds  domain.Thresholds
	decisionTTL time.Duration
	version     string
}

// NewHandler creates a new API handler.
func NewHandler(pipeline *decision.Service, repo domain.Repository, decisionCache domain.Cache, advisory *rules.Engine, model *classifier.Adapter, m *metrics.Metrics, thresholds domain.Thresholds, decisionTTL time.Duration, version string) *Handler {
	if decisionTTL <= 0 {
		decisionTTL = defaultDecisionTTL
	}
	return &Handler{
		pipeline:    pipeline,
		repo:        repo,
		cache:       decisionCache,
		advisory:    advisory,
		model:       model,
		metrics:     m,
		thresholds:  thresholds,
		decisionTTL: decisionTTL,
		version:     version,
	}
}

// Predict handles POST /predict requests.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req domain.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Pointer fields distinguish absent from zero, so validation can name
	// the missing field.
	if req.Amount == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount is required",
		})
		return
	}
	if *req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must be positive",
		})
		return
	}
	if req.Location == nil || *req.Location == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "location is required",
		})
		return
	}
	if req.Time == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "time is required",
		})
		return
	}

	// Identical requests replay the cached decision: the engine is pure,
	// so the fingerprint fully determines the outcome.
	fingerprint := cache.Fingerprint(*req.Amount, *req.Location, *req.Time, req.Description)
	if h.cache != nil {
		if cached, err := h.cache.GetDecision(ctx, fingerprint); err == nil && cached != nil {
			if h.metrics != nil {
				h.metrics.RecordCacheLookup(true)
			}
			writeJSON(w, http.StatusOK, cached)
			return
		}
		if h.metrics != nil {
			h.metrics.RecordCacheLookup(false)
		}
	}

	tx := req.ToTransaction(uuid.New().String())

	d, resp := h.pipeline.Evaluate(ctx, tx, traceID, start)
	h.pipeline.Commit(ctx, tx, d)

	if h.cache != nil {
		if err := h.cache.SetDecision(ctx, fingerprint, resp, h.decisionTTL); err != nil {
			slog.Warn("failed to cache decision", "decision_id", d.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	components := map[string]string{}

	if h.repo != nil {
		components["repository"] = "ok"
		if err := h.repo.Ping(r.Context()); err != nil {
			components["repository"] = "unreachable"
			status = "degraded"
		}
	}
	if h.cache != nil {
		components["cache"] = "ok"
		if err := h.cache.Ping(r.Context()); err != nil {
			components["cache"] = "unreachable"
			status = "degraded"
		}
	}
	if h.model != nil {
		components["classifier"] = "ok"
		if !h.model.Ready() {
			// Decisions still run on the neutral prior.
			components["classifier"] = "no model loaded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"version":    h.version,
		"components": components,
		"thresholds": h.thresholds,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"ready": "true"}
	if h.model != nil && h.model.Ready() {
		resp["model_version"] = h.model.Version()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDecision retrieves a decision by ID.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID := chi.URLParam(r, "id")

	if decisionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "decision id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	d, err := h.repo.GetDecision(ctx, decisionID)
	if err != nil {
		slog.Error("failed to get decision", "id", decisionID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "decision not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// GetTransaction retrieves a transaction by ID.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := chi.URLParam(r, "id")

	if txID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	tx, err := h.repo.GetTransaction(ctx, txID)
	if err != nil {
		slog.Error("failed to get transaction", "id", txID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "transaction not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// ListRules returns all advisory rules loaded in the engine.
// Rules are loaded from the database at startup and can be reloaded via
// POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.advisory.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves an advisory rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.advisory.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating an advisory rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Reason      string `json:"reason"`
	Enabled     bool   `json:"enabled"`
}

// CreateRule creates a new advisory rule and saves it to the database.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	ruleConfig := &domain.RuleConfig{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Reason:      req.Reason,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by attempting to load
	if err := h.advisory.LoadRule(ruleConfig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveRuleConfig(ctx, ruleConfig); err != nil {
			slog.Error("failed to save rule config", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    ruleConfig,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all advisory rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.advisory.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
