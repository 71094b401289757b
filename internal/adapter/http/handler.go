package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"outreach-engine/internal/adapter/usecase"
	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Handler is the inbound HTTP adapter. It holds the engine surfaces and a
// logger for structured logging; routes are registered on a chi.Router.
type Handler struct {
	engine    port.CampaignEngine
	processor port.QueueProcessor
	ledger    port.ActivityLedger
	metrics   port.MetricsReader
	logger    *slog.Logger
	router    chi.Router
}

// NewHandler creates a handler with all routes configured.
func NewHandler(engine port.CampaignEngine, processor port.QueueProcessor, ledger port.ActivityLedger, metrics port.MetricsReader, logger *slog.Logger) *Handler {
	h := &Handler{engine: engine, processor: processor, ledger: ledger, metrics: metrics, logger: logger}
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.handleCreateCampaign)
			r.Get("/", h.handleListCampaigns)
			r.Get("/{id}", h.handleGetCampaign)

			r.Post("/{id}/messages", h.handleAddMessage)
			r.Get("/{id}/messages", h.handleListMessages)

			r.Post("/{id}/start", h.lifecycle(h.engine.Start))
			r.Post("/{id}/pause", h.lifecycle(h.engine.Pause))
			r.Post("/{id}/resume", h.lifecycle(h.engine.Resume))
			r.Post("/{id}/relaunch", h.lifecycle(h.engine.Relaunch))

			r.Post("/{id}/enroll", h.handleEnroll)
			r.Post("/{id}/enroll/criteria", h.handleEnrollFromCriteria)
			r.Get("/{id}/audience", h.handlePreviewAudience)
			r.Delete("/{id}/contacts/{contactID}", h.handleUnenroll)

			r.Post("/{id}/process", h.handleProcessCampaign)

			r.Get("/{id}/activities", h.handleListActivities)
			r.Get("/{id}/performance", h.handlePerformance)
			r.Get("/{id}/funnel", h.handleFunnel)
			r.Get("/{id}/messages/performance", h.handleMessagePerformance)
			r.Get("/{id}/timeseries", h.handleTimeSeries)
		})

		r.Put("/messages/{id}", h.handleUpdateMessage)
		r.Delete("/messages/{id}", h.handleRemoveMessage)
		r.Get("/messages/{id}/preview", h.handlePreviewMessage)

		r.Post("/process", h.handleProcessAll)
		r.Post("/activities", h.handleRecordActivity)

		r.Get("/pipeline", h.handlePipeline)
		r.Get("/performance/compare", h.handleCompare)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", slog.Any("error", err))
	}
}

// writeError maps domain failures onto status codes. Transition and
// targeting violations are the caller's fault; everything unexpected is a
// logged 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var transition *domain.InvalidTransitionError
	var targeting *domain.TargetingError
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &transition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &targeting):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// lifecycle adapts the Start/Pause/Resume/Relaunch operations, which share
// one shape, into handlers.
func (h *Handler) lifecycle(op func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, "invalid campaign id", http.StatusBadRequest)
			return
		}
		if err := op(r.Context(), id); err != nil {
			h.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
