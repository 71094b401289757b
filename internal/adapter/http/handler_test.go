package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"outreach-engine/internal/adapter/memory"
	"outreach-engine/internal/adapter/sender"
	"outreach-engine/internal/adapter/usecase"
	"outreach-engine/internal/core/domain"
)

func newTestHandler(t *testing.T) (*Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	senders := sender.NewDryRunRegistry(logger)
	processor := usecase.NewProcessor(store, senders, usecase.ProcessorOptions{}, logger)
	engine := usecase.NewCampaignUseCase(store, usecase.NewTargeting(store), processor, logger)
	ledger := usecase.NewLedger(store, logger)
	metrics := usecase.NewMetrics(store)
	return NewHandler(engine, processor, ledger, metrics, logger), store
}

func doJSON(t *testing.T, h *Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	h, store := newTestHandler(t)

	contact := store.AddContact(domain.Contact{
		TenantID: 1, Name: "Alice A", Email: "alice@example.com",
		LifecycleStage: "lead", OptInStatus: "opted_in",
	})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/campaigns", map[string]interface{}{
		"tenant_id": 1,
		"name":      "Welcome",
		"type":      "email",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	var created struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != "draft" {
		t.Fatalf("status %q, want draft", created.Status)
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/messages", created.ID), map[string]interface{}{
		"name":    "step 1",
		"channel": "email",
		"content": map[string]string{"subject": "Hi {{first_name}}", "body": "hello"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add message status %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/enroll", created.ID), map[string]interface{}{
		"contact_ids": []int64{contact.ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("enroll status %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/start", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("start status %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d/performance", created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("performance status %d: %s", rec.Code, rec.Body)
	}
	var perf struct {
		EmailsSent int `json:"emails_sent"`
		Completed  int `json:"completed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &perf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if perf.EmailsSent != 1 || perf.Completed != 1 {
		t.Fatalf("sent=%d completed=%d, want 1/1", perf.EmailsSent, perf.Completed)
	}
}

func TestActivityWebhookUpdatesEnrollment(t *testing.T) {
	h, store := newTestHandler(t)

	contact := store.AddContact(domain.Contact{
		TenantID: 1, Name: "Alice A", Email: "alice@example.com",
	})

	rec := doJSON(t, h, http.MethodPost, "/api/v1/campaigns", map[string]interface{}{
		"tenant_id": 1, "name": "Welcome", "type": "email",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body)
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/messages", created.ID), map[string]interface{}{
		"name": "step 1", "channel": "email",
		"content": map[string]string{"subject": "s", "body": "b"},
	})
	doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/enroll", created.ID), map[string]interface{}{
		"contact_ids": []int64{contact.ID},
	})
	doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/start", created.ID), nil)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/activities", map[string]interface{}{
		"campaign_id": created.ID,
		"contact_id":  contact.ID,
		"type":        "email_opened",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("webhook status %d: %s", rec.Code, rec.Body)
	}

	enr, err := store.FindEnrollment(context.Background(), created.ID, contact.ID)
	if err != nil || enr == nil {
		t.Fatalf("FindEnrollment: %v %v", enr, err)
	}
	if enr.Opens != 1 {
		t.Fatalf("opens %d, want 1", enr.Opens)
	}
}

func TestErrorMapping(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/campaigns/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing campaign status %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/campaigns/999/start", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("start missing campaign status %d, want 404", rec.Code)
	}

	// Starting a campaign twice violates the status machine.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/campaigns", map[string]interface{}{
		"tenant_id": 1, "name": "Welcome", "type": "email",
	})
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/messages", created.ID), map[string]interface{}{
		"name": "step 1", "channel": "email",
		"content": map[string]string{"subject": "s", "body": "b"},
	})
	if rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/start", created.ID), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("first start status %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/v1/campaigns/%d/start", created.ID), nil); rec.Code != http.StatusConflict {
		t.Fatalf("second start status %d, want 409", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/campaigns", map[string]interface{}{
		"tenant_id": 1, "name": "Bad", "type": "email",
		"criteria": map[string]interface{}{"no_such_key": true},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad criteria status %d, want 400", rec.Code)
	}
}
