package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

type recordActivityRequest struct {
	CampaignID    int64               `json:"campaign_id"`
	ContactID     int64               `json:"contact_id"`
	LeadID        *int64              `json:"lead_id,omitempty"`
	MessageID     *int64              `json:"message_id,omitempty"`
	Type          domain.ActivityType `json:"type"`
	Timestamp     *time.Time          `json:"timestamp,omitempty"`
	Data          map[string]string   `json:"data,omitempty"`
	RevenueAmount int64               `json:"revenue_amount,omitempty"`
	ExternalID    string              `json:"external_id,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
}

// handleRecordActivity is the provider webhook entry point. Delivery, open,
// reply, bounce and unsubscribe events all land here and drive the
// enrollment side effects through the ledger.
func (h *Handler) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var req recordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.CampaignID <= 0 || req.ContactID <= 0 || req.Type == "" {
		http.Error(w, "campaign_id, contact_id and type are required", http.StatusBadRequest)
		return
	}
	a := &domain.Activity{
		CampaignID:    req.CampaignID,
		ContactID:     req.ContactID,
		LeadID:        req.LeadID,
		MessageID:     req.MessageID,
		Type:          req.Type,
		Data:          req.Data,
		RevenueAmount: req.RevenueAmount,
		ExternalID:    req.ExternalID,
		ErrorMessage:  req.ErrorMessage,
	}
	if req.Timestamp != nil {
		a.Timestamp = *req.Timestamp
	}
	if err := h.ledger.Record(r.Context(), a); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int64{"id": a.ID})
}

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	f := port.ActivityFilter{CampaignID: id}
	if v := q.Get("contact_id"); v != "" {
		cid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid contact_id", http.StatusBadRequest)
			return
		}
		f.ContactID = &cid
	}
	if v := q.Get("type"); v != "" {
		f.Types = []domain.ActivityType{domain.ActivityType(v)}
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid 'from' timestamp", http.StatusBadRequest)
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid 'to' timestamp", http.StatusBadRequest)
			return
		}
		f.To = &t
	}
	activities, err := h.ledger.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]activityResponse, 0, len(activities))
	for i := range activities {
		out = append(out, toActivityResponse(&activities[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

type activityResponse struct {
	ID            int64               `json:"id"`
	CampaignID    int64               `json:"campaign_id"`
	ContactID     int64               `json:"contact_id"`
	LeadID        *int64              `json:"lead_id,omitempty"`
	MessageID     *int64              `json:"message_id,omitempty"`
	Type          domain.ActivityType `json:"type"`
	Timestamp     time.Time           `json:"timestamp"`
	Data          map[string]string   `json:"data,omitempty"`
	RevenueAmount int64               `json:"revenue_amount,omitempty"`
	ExternalID    string              `json:"external_id,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
}

func toActivityResponse(a *domain.Activity) activityResponse {
	return activityResponse{
		ID: a.ID, CampaignID: a.CampaignID, ContactID: a.ContactID,
		LeadID: a.LeadID, MessageID: a.MessageID,
		Type: a.Type, Timestamp: a.Timestamp, Data: a.Data,
		RevenueAmount: a.RevenueAmount, ExternalID: a.ExternalID, ErrorMessage: a.ErrorMessage,
	}
}
