package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

type createCampaignRequest struct {
	TenantID    int64               `json:"tenant_id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Type        domain.CampaignType `json:"type"`
	Criteria    json.RawMessage     `json:"criteria,omitempty"`
	StartDate   *time.Time          `json:"start_date,omitempty"`
	EndDate     *time.Time          `json:"end_date,omitempty"`
	Budget      int64               `json:"budget"`
}

type campaignResponse struct {
	ID          int64                 `json:"id"`
	TenantID    int64                 `json:"tenant_id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Type        domain.CampaignType   `json:"type"`
	Status      domain.CampaignStatus `json:"status"`

	Criteria *domain.TargetCriteria `json:"criteria,omitempty"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Budget     int64 `json:"budget"`
	ActualCost int64 `json:"actual_cost"`

	TotalContacts     int   `json:"total_contacts"`
	ContactsReached   int   `json:"contacts_reached"`
	ContactsEngaged   int   `json:"contacts_engaged"`
	ContactsConverted int   `json:"contacts_converted"`
	TotalRevenue      int64 `json:"total_revenue"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

func toCampaignResponse(c *domain.Campaign) campaignResponse {
	return campaignResponse{
		ID: c.ID, TenantID: c.TenantID, Name: c.Name, Description: c.Description,
		Type: c.Type, Status: c.Status, Criteria: c.Criteria,
		StartDate: c.StartDate, EndDate: c.EndDate,
		Budget: c.Budget, ActualCost: c.ActualCost,
		TotalContacts: c.TotalContacts, ContactsReached: c.ContactsReached,
		ContactsEngaged: c.ContactsEngaged, ContactsConverted: c.ContactsConverted,
		TotalRevenue: c.TotalRevenue,
		CreatedAt:    c.CreatedAt, UpdatedAt: c.UpdatedAt, LastRunAt: c.LastRunAt,
	}
}

func (h *Handler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	c := &domain.Campaign{
		TenantID:    req.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
	}
	if len(req.Criteria) > 0 {
		criteria, err := domain.ParseCriteria(req.Criteria)
		if err != nil {
			h.writeError(w, err)
			return
		}
		c.Criteria = criteria
	}
	if err := h.engine.CreateCampaign(r.Context(), c); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toCampaignResponse(c))
}

func (h *Handler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	c, err := h.engine.GetCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

func (h *Handler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f port.CampaignFilter
	if v := q.Get("tenant_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid tenant_id", http.StatusBadRequest)
			return
		}
		f.TenantID = id
	}
	if v := q.Get("status"); v != "" {
		status := domain.CampaignStatus(v)
		f.Status = &status
	}
	if v := q.Get("type"); v != "" {
		t := domain.CampaignType(v)
		if !t.Valid() {
			http.Error(w, "invalid type", http.StatusBadRequest)
			return
		}
		f.Type = &t
	}
	if v := q.Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		f.Offset, _ = strconv.Atoi(v)
	}
	campaigns, err := h.engine.ListCampaigns(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]campaignResponse, 0, len(campaigns))
	for i := range campaigns {
		out = append(out, toCampaignResponse(&campaigns[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

type messageRequest struct {
	SequenceOrder   int                `json:"sequence_order,omitempty"`
	Name            string             `json:"name"`
	Channel         domain.ChannelType `json:"channel"`
	Content         json.RawMessage    `json:"content"`
	DelayAmount     int                `json:"delay_amount"`
	DelayUnit       domain.DelayUnit   `json:"delay_unit"`
	SendWindowStart string             `json:"send_window_start,omitempty"`
	SendWindowEnd   string             `json:"send_window_end,omitempty"`
	WeekdaysOnly    bool               `json:"weekdays_only,omitempty"`
	ABVariant       string             `json:"ab_variant,omitempty"`
	Active          *bool              `json:"active,omitempty"`
}

type messageResponse struct {
	ID              int64                 `json:"id"`
	CampaignID      int64                 `json:"campaign_id"`
	SequenceOrder   int                   `json:"sequence_order"`
	Name            string                `json:"name"`
	Channel         domain.ChannelType    `json:"channel"`
	Content         domain.MessageContent `json:"content"`
	DelayAmount     int                   `json:"delay_amount"`
	DelayUnit       domain.DelayUnit      `json:"delay_unit"`
	SendWindowStart string                `json:"send_window_start,omitempty"`
	SendWindowEnd   string                `json:"send_window_end,omitempty"`
	WeekdaysOnly    bool                  `json:"weekdays_only"`
	ABVariant       string                `json:"ab_variant,omitempty"`
	Active          bool                  `json:"active"`
}

func toMessageResponse(m *domain.CampaignMessage) messageResponse {
	return messageResponse{
		ID: m.ID, CampaignID: m.CampaignID, SequenceOrder: m.SequenceOrder,
		Name: m.Name, Channel: m.Channel, Content: m.Content,
		DelayAmount: m.DelayAmount, DelayUnit: m.DelayUnit,
		SendWindowStart: m.SendWindowStart, SendWindowEnd: m.SendWindowEnd,
		WeekdaysOnly: m.WeekdaysOnly, ABVariant: m.ABVariant, Active: m.Active,
	}
}

func (req *messageRequest) toDomain(campaignID int64) (*domain.CampaignMessage, error) {
	content, err := domain.DecodeContent(req.Channel, req.Content)
	if err != nil {
		return nil, err
	}
	m := &domain.CampaignMessage{
		CampaignID:      campaignID,
		SequenceOrder:   req.SequenceOrder,
		Name:            req.Name,
		Channel:         req.Channel,
		Content:         content,
		DelayAmount:     req.DelayAmount,
		DelayUnit:       req.DelayUnit,
		SendWindowStart: req.SendWindowStart,
		SendWindowEnd:   req.SendWindowEnd,
		WeekdaysOnly:    req.WeekdaysOnly,
		ABVariant:       req.ABVariant,
		Active:          true,
	}
	if req.Active != nil {
		m.Active = *req.Active
	}
	return m, nil
}

func (h *Handler) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	m, err := req.toDomain(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.engine.AddMessage(r.Context(), m); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toMessageResponse(m))
}

func (h *Handler) handleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	m, err := req.toDomain(0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.ID = id
	if err := h.engine.UpdateMessage(r.Context(), m); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toMessageResponse(m))
}

func (h *Handler) handleRemoveMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	if err := h.engine.RemoveMessage(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	messages, err := h.engine.ListMessages(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]messageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, toMessageResponse(&messages[i]))
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	var req struct {
		ContactIDs []int64 `json:"contact_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.ContactIDs) == 0 {
		http.Error(w, "contact_ids is required", http.StatusBadRequest)
		return
	}
	result, err := h.engine.Enroll(r.Context(), id, req.ContactIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleEnrollFromCriteria(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	result, err := h.engine.EnrollFromCriteria(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePreviewAudience(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	count, err := h.engine.PreviewAudience(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	contactID, ok := idParam(r, "contactID")
	if !ok {
		http.Error(w, "invalid contact id", http.StatusBadRequest)
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "manual"
	}
	if err := h.engine.Unenroll(r.Context(), id, contactID, reason); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePreviewMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	contactID, err := strconv.ParseInt(r.URL.Query().Get("contact_id"), 10, 64)
	if err != nil || contactID <= 0 {
		http.Error(w, "invalid contact_id", http.StatusBadRequest)
		return
	}
	content, err := h.engine.PreviewMessage(r.Context(), id, contactID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, content)
}

func (h *Handler) handleProcessCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	report, err := h.processor.ProcessDue(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	report, err := h.processor.ProcessAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}
