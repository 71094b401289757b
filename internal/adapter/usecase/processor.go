package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// ProcessorOptions tune the queue processor.
type ProcessorOptions struct {
	// BatchLimit caps enrollments per campaign per pass. 0 means no cap.
	BatchLimit int
	// RetryBaseDelay is the first retry backoff; it doubles per attempt.
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the backoff.
	RetryMaxDelay time.Duration
	// MaxAttempts is the dispatch attempt budget per step before the
	// enrollment is failed.
	MaxAttempts int
}

func (o *ProcessorOptions) defaults() {
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = time.Minute
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = time.Hour
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
}

// Processor implements port.QueueProcessor. Each pass claims due enrollments
// one by one, dispatches the current step and advances or retries. A claim
// miss means a concurrent processor won the row; it is skipped without error.
type Processor struct {
	store   port.Store
	senders port.SenderRegistry
	opts    ProcessorOptions
	log     *slog.Logger
	now     func() time.Time
}

func NewProcessor(store port.Store, senders port.SenderRegistry, opts ProcessorOptions, log *slog.Logger) *Processor {
	opts.defaults()
	return &Processor{
		store:   store,
		senders: senders,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

// ProcessDue drains due enrollments of one campaign. Per-enrollment failures
// are recorded and counted, never propagated; the pass always runs to the end
// of the batch. Campaign rollups are refreshed afterwards.
func (p *Processor) ProcessDue(ctx context.Context, campaignID int64) (port.ProcessReport, error) {
	var report port.ProcessReport
	campaign, err := p.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return report, err
	}
	if campaign == nil {
		return report, fmt.Errorf("campaign %d: %w", campaignID, ErrNotFound)
	}
	now := p.now()
	if !campaign.Startable(now) {
		return report, nil
	}
	if campaign.EndDate != nil && campaign.EndDate.Before(now) {
		return report, p.completeCampaign(ctx, campaign, now)
	}

	due, err := p.store.ListDue(ctx, campaignID, now, p.opts.BatchLimit)
	if err != nil {
		return report, fmt.Errorf("list due enrollments: %w", err)
	}

	for i := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e, err := p.store.ClaimDue(ctx, due[i].ID, now)
		if err != nil {
			if errors.Is(err, port.ErrClaimConflict) {
				report.Skipped++
				continue
			}
			return report, fmt.Errorf("claim enrollment %d: %w", due[i].ID, err)
		}
		p.processOne(ctx, campaign, e, now, &report)
		report.Processed++
	}

	if err := p.refreshRollups(ctx, campaign, now); err != nil {
		return report, err
	}
	if report.Processed > 0 || report.Skipped > 0 {
		p.log.Info("processor pass finished",
			"campaign_id", campaignID,
			"processed", report.Processed,
			"advanced", report.Advanced,
			"completed", report.Completed,
			"failed", report.Failed,
			"retried", report.Retried,
			"skipped", report.Skipped,
		)
	}
	return report, nil
}

// processOne dispatches the current step of a claimed enrollment and writes
// the resulting state back. The ledger entry is recorded before the state
// update so a crash between the two never loses the send record.
func (p *Processor) processOne(ctx context.Context, campaign *domain.Campaign, e *domain.Enrollment, now time.Time, report *port.ProcessReport) {
	msg, err := p.store.MessageAt(ctx, campaign.ID, e.CurrentStep+1)
	if err != nil {
		p.log.Error("load message failed", "enrollment_id", e.ID, "error", err)
		report.Skipped++
		return
	}
	if msg == nil {
		if err := e.CompleteSequence(now); err == nil {
			e.UpdatedAt = now
			if p.saveClaimed(ctx, e, report) {
				report.Completed++
			}
		}
		return
	}

	contact, err := p.store.GetContact(ctx, e.ContactID)
	if err != nil {
		p.log.Error("load contact failed", "enrollment_id", e.ID, "error", err)
		report.Skipped++
		return
	}
	switch {
	case contact == nil:
		p.failEnrollment(ctx, e, msg, now, "contact no longer exists", report)
		return
	case contact.DoNotContact:
		p.failEnrollment(ctx, e, msg, now, "contact is marked do-not-contact", report)
		return
	}
	if _, ok := contact.AddressFor(msg.Channel); !ok {
		p.failEnrollment(ctx, e, msg, now, fmt.Sprintf("contact has no %s address", msg.Channel), report)
		return
	}

	lead, err := p.store.LeadForContact(ctx, e.ContactID)
	if err != nil {
		p.log.Error("load lead failed", "enrollment_id", e.ID, "error", err)
		report.Skipped++
		return
	}
	content := domain.RenderContent(msg.Content, *contact, lead)

	sender, ok := p.senders.SenderFor(msg.Channel)
	if !ok {
		p.failEnrollment(ctx, e, msg, now, fmt.Sprintf("no sender registered for channel %s", msg.Channel), report)
		return
	}

	result, sendErr := sender.Send(ctx, *contact, msg, content)
	if sendErr != nil {
		p.recordError(ctx, e, msg, now, sendErr.Error())
		if port.IsPermanentDispatch(sendErr) || e.RetryCount+1 >= p.opts.MaxAttempts {
			if err := e.Fail(); err == nil {
				e.UpdatedAt = now
				if p.saveClaimed(ctx, e, report) {
					report.Failed++
				}
			}
			return
		}
		e.RescheduleRetry(now, p.opts.RetryBaseDelay, p.opts.RetryMaxDelay)
		e.UpdatedAt = now
		if p.saveClaimed(ctx, e, report) {
			report.Retried++
		}
		return
	}

	activity := &domain.Activity{
		CampaignID: campaign.ID,
		ContactID:  e.ContactID,
		LeadID:     e.LeadID,
		MessageID:  &msg.ID,
		Type:       domain.SentTypeFor(msg.Channel),
		Timestamp:  now,
		ExternalID: result.ExternalRef,
	}
	if dm, ok := content.(domain.DirectMessageContent); ok {
		activity.Data = map[string]string{"platform": string(dm.Platform)}
	}
	if err := p.store.RecordActivity(ctx, activity); err != nil {
		p.log.Error("record activity failed", "enrollment_id", e.ID, "error", err)
	}

	next, err := p.store.MessageAt(ctx, campaign.ID, e.CurrentStep+2)
	if err != nil {
		p.log.Error("load next message failed", "enrollment_id", e.ID, "error", err)
		next = nil
	}
	if err := e.Advance(msg, next, now); err != nil {
		p.log.Error("advance failed", "enrollment_id", e.ID, "error", err)
		return
	}
	e.UpdatedAt = now
	if !p.saveClaimed(ctx, e, report) {
		return
	}
	if e.Status == domain.EnrollmentCompleted {
		report.Completed++
	} else {
		report.Advanced++
	}
}

// saveClaimed writes a claimed enrollment back and reports whether the write
// landed. A claim conflict means the row left the active state while the step
// was in flight (opt-out, pause, bounce); that state wins, the outcome is
// dropped and the pass counts the row as skipped.
func (p *Processor) saveClaimed(ctx context.Context, e *domain.Enrollment, report *port.ProcessReport) bool {
	err := p.store.UpdateClaimed(ctx, e)
	if errors.Is(err, port.ErrClaimConflict) {
		p.log.Info("enrollment changed state during dispatch, keeping stored state",
			"enrollment_id", e.ID)
		report.Skipped++
		return false
	}
	if err != nil {
		p.log.Error("update enrollment failed", "enrollment_id", e.ID, "error", err)
		report.Skipped++
		return false
	}
	return true
}

// failEnrollment terminates an enrollment for a reason known before dispatch
// and appends an error event so the ledger explains the terminal state.
func (p *Processor) failEnrollment(ctx context.Context, e *domain.Enrollment, msg *domain.CampaignMessage, now time.Time, reason string, report *port.ProcessReport) {
	p.recordError(ctx, e, msg, now, reason)
	if err := e.Fail(); err != nil {
		return
	}
	e.UpdatedAt = now
	if p.saveClaimed(ctx, e, report) {
		report.Failed++
	}
}

func (p *Processor) recordError(ctx context.Context, e *domain.Enrollment, msg *domain.CampaignMessage, now time.Time, reason string) {
	var msgID *int64
	if msg != nil {
		msgID = &msg.ID
	}
	a := &domain.Activity{
		CampaignID:   e.CampaignID,
		ContactID:    e.ContactID,
		LeadID:       e.LeadID,
		MessageID:    msgID,
		Type:         domain.ActivityError,
		Timestamp:    now,
		ErrorMessage: reason,
	}
	if err := p.store.RecordActivity(ctx, a); err != nil {
		p.log.Error("record error activity failed", "enrollment_id", e.ID, "error", err)
	}
}

// refreshRollups recomputes the cached campaign counters and auto-completes
// the campaign once no enrollment can still progress.
func (p *Processor) refreshRollups(ctx context.Context, campaign *domain.Campaign, now time.Time) error {
	counts, err := p.store.CountByStatus(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("count enrollments: %w", err)
	}
	totals, err := p.store.EngagementTotals(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("engagement totals: %w", err)
	}
	revenue, err := p.store.SumRevenue(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("sum revenue: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	campaign.TotalContacts = total
	campaign.ContactsReached = totals.Reached
	campaign.ContactsEngaged = totals.Engaged
	campaign.ContactsConverted = totals.Converted
	campaign.TotalRevenue = revenue
	campaign.LastRunAt = &now
	campaign.UpdatedAt = now

	inFlight := counts[domain.EnrollmentPending] + counts[domain.EnrollmentActive] + counts[domain.EnrollmentPaused]
	if total > 0 && inFlight == 0 && campaign.Status == domain.CampaignActive {
		if err := campaign.SetStatus(domain.CampaignCompleted, now); err == nil {
			p.log.Info("campaign auto-completed", "campaign_id", campaign.ID)
		}
	}
	if err := p.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("update campaign rollups: %w", err)
	}
	return nil
}

func (p *Processor) completeCampaign(ctx context.Context, campaign *domain.Campaign, now time.Time) error {
	if err := campaign.SetStatus(domain.CampaignCompleted, now); err != nil {
		return err
	}
	campaign.UpdatedAt = now
	if err := p.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	p.log.Info("campaign completed at end date", "campaign_id", campaign.ID)
	return nil
}

// ProcessAll runs one pass over every startable active campaign, one
// goroutine per campaign. Campaigns are independent queues; an error in one
// does not stop the others.
func (p *Processor) ProcessAll(ctx context.Context) (port.ProcessReport, error) {
	status := domain.CampaignActive
	campaigns, err := p.store.ListCampaigns(ctx, port.CampaignFilter{Status: &status})
	if err != nil {
		return port.ProcessReport{}, fmt.Errorf("list active campaigns: %w", err)
	}
	now := p.now()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report port.ProcessReport
		errs   []error
	)
	for i := range campaigns {
		c := campaigns[i]
		if !c.Startable(now) && (c.EndDate == nil || !c.EndDate.Before(now)) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := p.ProcessDue(ctx, c.ID)
			mu.Lock()
			defer mu.Unlock()
			report.Merge(r)
			if err != nil {
				errs = append(errs, fmt.Errorf("campaign %d: %w", c.ID, err))
			}
		}()
	}
	wg.Wait()
	return report, errors.Join(errs...)
}
