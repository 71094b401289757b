package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Ledger implements port.ActivityLedger. Record appends the event and applies
// its enrollment side effects: engagement counter bumps, opt-out on
// unsubscribe events and termination on bounce signals. Webhook handlers and
// the processor both go through here so side effects are applied exactly
// once, at append time.
type Ledger struct {
	store port.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewLedger(store port.Store, log *slog.Logger) *Ledger {
	return &Ledger{store: store, log: log, now: time.Now}
}

func (l *Ledger) Record(ctx context.Context, a *domain.Activity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = l.now()
	}
	if err := l.store.RecordActivity(ctx, a); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	if err := l.applySideEffects(ctx, a); err != nil {
		// The event is already appended; the counters catch up on the
		// next matching event.
		l.log.Error("apply activity side effects failed",
			"campaign_id", a.CampaignID, "contact_id", a.ContactID, "type", a.Type, "error", err)
	}
	return nil
}

func (l *Ledger) applySideEffects(ctx context.Context, a *domain.Activity) error {
	e, err := l.store.FindEnrollment(ctx, a.CampaignID, a.ContactID)
	if err != nil {
		return err
	}
	if e == nil {
		return nil
	}

	now := a.Timestamp
	changed := false

	switch {
	case a.Type == domain.ActivityEmailUnsubscribed || a.Type == domain.ActivityOptedOut:
		if err := e.OptOut(string(a.Type), now); err == nil {
			changed = true
		}
	case a.Type.IsBounce():
		if err := e.MarkBounced(); err == nil {
			changed = true
		}
	default:
		before := *e
		e.RecordEngagement(a.Type, now)
		if a.Type == domain.ActivityCallCompleted {
			if d, ok := a.Data["duration"]; ok {
				if secs, err := parseSeconds(d); err == nil {
					e.TotalCallDuration += secs
				}
			}
		}
		changed = before != *e
	}

	if !changed {
		return nil
	}
	e.UpdatedAt = now
	return l.store.UpdateEnrollment(ctx, e)
}

func parseSeconds(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func (l *Ledger) List(ctx context.Context, f port.ActivityFilter) ([]domain.Activity, error) {
	return l.store.ListActivities(ctx, f)
}
