package httpadapter

import (
	"net/http"
	"strconv"
	"strings"

	"outreach-engine/internal/core/port"
)

func (h *Handler) handlePerformance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	p, err := h.metrics.Performance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleFunnel(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	stages, err := h.metrics.Funnel(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stages)
}

func (h *Handler) handleMessagePerformance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	out, err := h.metrics.MessagePerformance(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// handleTimeSeries accepts `metric` (required), `interval` (day, week or
// month; default day) and `days` (default 30) query parameters.
func (h *Handler) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		http.Error(w, "metric is required", http.StatusBadRequest)
		return
	}
	interval := port.IntervalDay
	switch v := q.Get("interval"); v {
	case "", "day":
	case "week":
		interval = port.IntervalWeek
	case "month":
		interval = port.IntervalMonth
	default:
		http.Error(w, "invalid interval", http.StatusBadRequest)
		return
	}
	days := 30
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}
	buckets, err := h.metrics.TimeSeries(r.Context(), id, metric, interval, days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, buckets)
}

func (h *Handler) handlePipeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var tenantID int64
	if v := q.Get("tenant_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid tenant_id", http.StatusBadRequest)
			return
		}
		tenantID = id
	}
	days := 0
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}
	p, err := h.metrics.Pipeline(r.Context(), tenantID, days)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// handleCompare accepts `ids`, a comma-separated campaign id list.
func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		http.Error(w, "ids is required", http.StatusBadRequest)
		return
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid ids", http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	out, err := h.metrics.Compare(r.Context(), ids)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}
