package usecase

import (
	"context"
	"testing"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

func TestRecordEngagementUpdatesEnrollment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.newCampaign(t, emailStep("welcome", 0), emailStep("follow-up", 1))
	id := e.addContact(t, "Alice A", "alice@example.com").ID

	if _, err := e.engine.Enroll(ctx, c.ID, []int64{id}); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := e.engine.Start(ctx, c.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	e.advance(10 * time.Minute)
	if err := e.ledger.Record(ctx, &domain.Activity{
		CampaignID: c.ID, ContactID: id, Type: domain.ActivityEmailOpened,
	}); err != nil {
		t.Fatalf("Record open: %v", err)
	}
	if err := e.ledger.Record(ctx, &domain.Activity{
		CampaignID: c.ID, ContactID: id, Type: domain.ActivityEmailClicked,
	}); err != nil {
		t.Fatalf("Record click: %v", err)
	}

	enr := e.mustEnrollment(t, c.ID, id)
	if enr.Opens != 1 || enr.Clicks != 1 {
		t.Fatalf("opens=%d clicks=%d, want 1/1", enr.Opens, enr.Clicks)
	}
	if enr.LastInteractionAt == nil || !enr.LastInteractionAt.Equal(e.now) {
		t.Fatalf("last interaction %v, want %v", enr.LastInteractionAt, e.now)
	}
	// Engagement never disturbs the sequence position.
	if enr.Status != domain.EnrollmentActive || enr.CurrentStep != 1 {
		t.Fatalf("status %s step %d, want active/1", enr.Status, enr.CurrentStep)
	}
}

func TestRecordUnsubscribeOptsOut(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.newCampaign(t, emailStep("welcome", 0), emailStep("follow-up", 1))
	id := e.addContact(t, "Alice A", "alice@example.com").ID

	if _, err := e.engine.Enroll(ctx, c.ID, []int64{id}); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := e.engine.Start(ctx, c.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.ledger.Record(ctx, &domain.Activity{
		CampaignID: c.ID, ContactID: id, Type: domain.ActivityEmailUnsubscribed,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	enr := e.mustEnrollment(t, c.ID, id)
	if enr.Status != domain.EnrollmentOptedOut {
		t.Fatalf("status %s, want opted_out", enr.Status)
	}
	if enr.NextScheduledAt != nil {
		t.Fatal("opted-out enrollment must not stay scheduled")
	}
}

func TestRecordBounceTerminatesEnrollment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.newCampaign(t, emailStep("welcome", 0), emailStep("follow-up", 1))
	id := e.addContact(t, "Alice A", "alice@example.com").ID

	if _, err := e.engine.Enroll(ctx, c.ID, []int64{id}); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := e.engine.Start(ctx, c.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.ledger.Record(ctx, &domain.Activity{
		CampaignID: c.ID, ContactID: id, Type: domain.ActivityEmailBounced,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	enr := e.mustEnrollment(t, c.ID, id)
	if enr.Status != domain.EnrollmentBounced {
		t.Fatalf("status %s, want bounced", enr.Status)
	}
}

func TestRecordCallCompletedTracksDuration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.newCampaign(t, emailStep("welcome", 0), emailStep("follow-up", 1))
	id := e.addContact(t, "Alice A", "alice@example.com").ID

	if _, err := e.engine.Enroll(ctx, c.ID, []int64{id}); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := e.engine.Start(ctx, c.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.ledger.Record(ctx, &domain.Activity{
		CampaignID: c.ID, ContactID: id, Type: domain.ActivityCallCompleted,
		Data: map[string]string{"duration": "95"},
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	enr := e.mustEnrollment(t, c.ID, id)
	if enr.CallsCompleted != 1 {
		t.Fatalf("calls completed %d, want 1", enr.CallsCompleted)
	}
	if enr.TotalCallDuration != 95 {
		t.Fatalf("call duration %d, want 95", enr.TotalCallDuration)
	}
}

func TestRecordWithoutEnrollmentStillAppends(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.newCampaign(t, emailStep("welcome", 0))
	id := e.addContact(t, "Alice A", "alice@example.com").ID

	// An event for a contact that was never enrolled is kept in the
	// ledger; there is just no enrollment to update.
	if err := e.ledger.Record(ctx, &domain.Activity{
		CampaignID: c.ID, ContactID: id, Type: domain.ActivityEmailOpened,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	acts, err := e.ledger.List(ctx, port.ActivityFilter{CampaignID: c.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(acts) != 1 {
		t.Fatalf("%d activities, want 1", len(acts))
	}
	if acts[0].Timestamp.IsZero() {
		t.Fatal("ledger must stamp missing timestamps")
	}
}
