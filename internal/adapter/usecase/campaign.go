// Package usecase wires the campaign engine's business rules over the
// persistence and dispatch ports.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// CampaignUseCase implements port.CampaignEngine.
type CampaignUseCase struct {
	store     port.Store
	targeting *Targeting
	processor port.QueueProcessor
	log       *slog.Logger
	now       func() time.Time
}

func NewCampaignUseCase(store port.Store, targeting *Targeting, processor port.QueueProcessor, log *slog.Logger) *CampaignUseCase {
	return &CampaignUseCase{
		store:     store,
		targeting: targeting,
		processor: processor,
		log:       log,
		now:       time.Now,
	}
}

func (uc *CampaignUseCase) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	if c.Name == "" {
		return fmt.Errorf("campaign name is required")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("unknown campaign type %q", c.Type)
	}
	if c.Criteria != nil {
		if err := c.Criteria.Validate(); err != nil {
			return err
		}
	}
	now := uc.now()
	c.Status = domain.CampaignDraft
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := uc.store.CreateCampaign(ctx, c); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	uc.log.Info("campaign created", "campaign_id", c.ID, "name", c.Name, "type", c.Type)
	return nil
}

func (uc *CampaignUseCase) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	return uc.store.GetCampaign(ctx, id)
}

func (uc *CampaignUseCase) ListCampaigns(ctx context.Context, f port.CampaignFilter) ([]domain.Campaign, error) {
	return uc.store.ListCampaigns(ctx, f)
}

func (uc *CampaignUseCase) AddMessage(ctx context.Context, m *domain.CampaignMessage) error {
	campaign, err := uc.store.GetCampaign(ctx, m.CampaignID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return fmt.Errorf("campaign %d: %w", m.CampaignID, ErrNotFound)
	}
	if !m.Channel.Valid() {
		return fmt.Errorf("unknown channel %q", m.Channel)
	}
	if m.Content == nil {
		return fmt.Errorf("message content is required")
	}
	if m.Content.Channel() != m.Channel {
		return fmt.Errorf("content channel %q does not match message channel %q", m.Content.Channel(), m.Channel)
	}
	if m.SequenceOrder <= 0 {
		existing, err := uc.store.ListMessages(ctx, m.CampaignID)
		if err != nil {
			return err
		}
		m.SequenceOrder = len(existing) + 1
	}
	now := uc.now()
	m.Active = true
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := uc.store.CreateMessage(ctx, m); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (uc *CampaignUseCase) UpdateMessage(ctx context.Context, m *domain.CampaignMessage) error {
	existing, err := uc.store.GetMessage(ctx, m.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("message %d: %w", m.ID, ErrNotFound)
	}
	if m.Content != nil && m.Content.Channel() != m.Channel {
		return fmt.Errorf("content channel %q does not match message channel %q", m.Content.Channel(), m.Channel)
	}
	m.CampaignID = existing.CampaignID
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = uc.now()
	return uc.store.UpdateMessage(ctx, m)
}

// RemoveMessage deactivates a step instead of deleting it. Orders stay
// stable, so enrollments past the step are unaffected; enrollments that have
// not reached it complete there.
func (uc *CampaignUseCase) RemoveMessage(ctx context.Context, messageID int64) error {
	m, err := uc.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("message %d: %w", messageID, ErrNotFound)
	}
	m.Active = false
	m.UpdatedAt = uc.now()
	return uc.store.UpdateMessage(ctx, m)
}

func (uc *CampaignUseCase) ListMessages(ctx context.Context, campaignID int64) ([]domain.CampaignMessage, error) {
	return uc.store.ListMessages(ctx, campaignID)
}

func (uc *CampaignUseCase) requireCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, err := uc.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("campaign %d: %w", id, ErrNotFound)
	}
	return c, nil
}

// Start activates the campaign and schedules step 1 for every pending
// enrollment. When the start date is not in the future an immediate
// processor pass dispatches zero-delay first steps right away.
func (uc *CampaignUseCase) Start(ctx context.Context, campaignID int64) error {
	campaign, err := uc.requireCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	first, err := uc.store.MessageAt(ctx, campaignID, 1)
	if err != nil {
		return err
	}
	if first == nil {
		return fmt.Errorf("campaign %d has no messages", campaignID)
	}

	now := uc.now()
	if err := campaign.SetStatus(domain.CampaignActive, now); err != nil {
		return err
	}
	campaign.UpdatedAt = now
	if err := uc.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}

	from := now
	if campaign.StartDate != nil && campaign.StartDate.After(now) {
		from = *campaign.StartDate
	}

	pending := domain.EnrollmentPending
	enrollments, err := uc.store.ListEnrollments(ctx, campaignID, &pending)
	if err != nil {
		return err
	}
	scheduled := 0
	for i := range enrollments {
		e := &enrollments[i]
		if err := e.Activate(first, from); err != nil {
			continue
		}
		e.UpdatedAt = now
		if err := uc.store.UpdateEnrollment(ctx, e); err != nil {
			return fmt.Errorf("schedule enrollment %d: %w", e.ID, err)
		}
		scheduled++
	}
	uc.log.Info("campaign started", "campaign_id", campaignID, "scheduled", scheduled)

	if campaign.Startable(now) && uc.processor != nil {
		if _, err := uc.processor.ProcessDue(ctx, campaignID); err != nil {
			uc.log.Error("initial processor pass failed", "campaign_id", campaignID, "error", err)
		}
	}
	return nil
}

// Pause suspends the campaign and its active enrollments. Schedules are
// preserved so Resume continues exactly where the sequence stopped.
func (uc *CampaignUseCase) Pause(ctx context.Context, campaignID int64) error {
	campaign, err := uc.requireCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	now := uc.now()
	if err := campaign.SetStatus(domain.CampaignPaused, now); err != nil {
		return err
	}
	campaign.UpdatedAt = now
	if err := uc.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}

	active := domain.EnrollmentActive
	enrollments, err := uc.store.ListEnrollments(ctx, campaignID, &active)
	if err != nil {
		return err
	}
	for i := range enrollments {
		e := &enrollments[i]
		if err := e.Pause(); err != nil {
			continue
		}
		e.UpdatedAt = now
		if err := uc.store.UpdateEnrollment(ctx, e); err != nil {
			return fmt.Errorf("pause enrollment %d: %w", e.ID, err)
		}
	}
	uc.log.Info("campaign paused", "campaign_id", campaignID, "paused", len(enrollments))
	return nil
}

// Resume reactivates a paused campaign. Schedules that elapsed during the
// pause become due immediately on the next processor pass.
func (uc *CampaignUseCase) Resume(ctx context.Context, campaignID int64) error {
	campaign, err := uc.requireCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	now := uc.now()
	if err := campaign.SetStatus(domain.CampaignActive, now); err != nil {
		return err
	}
	campaign.UpdatedAt = now
	if err := uc.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}

	paused := domain.EnrollmentPaused
	enrollments, err := uc.store.ListEnrollments(ctx, campaignID, &paused)
	if err != nil {
		return err
	}
	for i := range enrollments {
		e := &enrollments[i]
		if err := e.Resume(); err != nil {
			continue
		}
		e.UpdatedAt = now
		if err := uc.store.UpdateEnrollment(ctx, e); err != nil {
			return fmt.Errorf("resume enrollment %d: %w", e.ID, err)
		}
	}
	uc.log.Info("campaign resumed", "campaign_id", campaignID, "resumed", len(enrollments))
	return nil
}

// Relaunch resets a completed campaign back to draft and every enrollment
// back to pending with cleared progress. Engagement counters and the ledger
// survive; only sequence position is reset.
func (uc *CampaignUseCase) Relaunch(ctx context.Context, campaignID int64) error {
	campaign, err := uc.requireCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	now := uc.now()
	if err := campaign.SetStatus(domain.CampaignDraft, now); err != nil {
		return err
	}
	campaign.EndDate = nil
	campaign.UpdatedAt = now
	if err := uc.store.UpdateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}

	enrollments, err := uc.store.ListEnrollments(ctx, campaignID, nil)
	if err != nil {
		return err
	}
	for i := range enrollments {
		e := &enrollments[i]
		e.Reset()
		e.UpdatedAt = now
		if err := uc.store.UpdateEnrollment(ctx, e); err != nil {
			return fmt.Errorf("reset enrollment %d: %w", e.ID, err)
		}
	}
	uc.log.Info("campaign relaunched", "campaign_id", campaignID, "reset", len(enrollments))
	return nil
}

// Enroll adds the given contacts to a campaign. Already enrolled contacts
// are counted as existing and left untouched; enrollment is idempotent per
// (campaign, contact). Contacts marked do-not-contact are skipped.
func (uc *CampaignUseCase) Enroll(ctx context.Context, campaignID int64, contactIDs []int64) (port.EnrollResult, error) {
	var result port.EnrollResult
	campaign, err := uc.requireCampaign(ctx, campaignID)
	if err != nil {
		return result, err
	}
	now := uc.now()
	for _, contactID := range contactIDs {
		existing, err := uc.store.FindEnrollment(ctx, campaignID, contactID)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Existing++
			continue
		}
		contact, err := uc.store.GetContact(ctx, contactID)
		if err != nil {
			return result, err
		}
		if contact == nil || contact.DoNotContact {
			continue
		}
		lead, err := uc.store.LeadForContact(ctx, contactID)
		if err != nil {
			return result, err
		}
		e := &domain.Enrollment{
			CampaignID: campaignID,
			ContactID:  contactID,
			Status:     domain.EnrollmentPending,
			EnrolledAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if lead != nil {
			e.LeadID = &lead.ID
		}
		if err := uc.store.CreateEnrollment(ctx, e); err != nil {
			return result, fmt.Errorf("enroll contact %d: %w", contactID, err)
		}
		result.Enrolled++
		result.IDs = append(result.IDs, e.ID)
	}
	campaign.TotalContacts += result.Enrolled
	campaign.UpdatedAt = now
	if err := uc.store.UpdateCampaign(ctx, campaign); err != nil {
		return result, fmt.Errorf("update campaign: %w", err)
	}
	uc.log.Info("contacts enrolled", "campaign_id", campaignID, "enrolled", result.Enrolled, "existing", result.Existing)
	return result, nil
}

// EnrollFromCriteria resolves the campaign's target criteria and enrolls the
// resulting audience.
func (uc *CampaignUseCase) EnrollFromCriteria(ctx context.Context, campaignID int64) (port.EnrollResult, error) {
	campaign, err := uc.requireCampaign(ctx, campaignID)
	if err != nil {
		return port.EnrollResult{}, err
	}
	audience, err := uc.targeting.Resolve(ctx, campaign)
	if err != nil {
		return port.EnrollResult{}, err
	}
	ids := make([]int64, 0, len(audience.Contacts))
	for _, c := range audience.Contacts {
		ids = append(ids, c.ID)
	}
	return uc.Enroll(ctx, campaignID, ids)
}

func (uc *CampaignUseCase) PreviewAudience(ctx context.Context, campaignID int64) (int, error) {
	campaign, err := uc.requireCampaign(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	return uc.targeting.Count(ctx, campaign)
}

// Unenroll opts a contact out of a campaign.
func (uc *CampaignUseCase) Unenroll(ctx context.Context, campaignID, contactID int64, reason string) error {
	e, err := uc.store.FindEnrollment(ctx, campaignID, contactID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("enrollment for contact %d in campaign %d: %w", contactID, campaignID, ErrNotFound)
	}
	now := uc.now()
	if err := e.OptOut(reason, now); err != nil {
		return err
	}
	e.UpdatedAt = now
	if err := uc.store.UpdateEnrollment(ctx, e); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return uc.store.RecordActivity(ctx, &domain.Activity{
		CampaignID: campaignID,
		ContactID:  contactID,
		Type:       domain.ActivityOptedOut,
		Timestamp:  now,
		Data:       map[string]string{"reason": reason},
	})
}

// PreviewMessage renders a message for a contact without dispatching it.
func (uc *CampaignUseCase) PreviewMessage(ctx context.Context, messageID, contactID int64) (domain.MessageContent, error) {
	msg, err := uc.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("message %d: %w", messageID, ErrNotFound)
	}
	contact, err := uc.store.GetContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %d: %w", contactID, ErrNotFound)
	}
	lead, err := uc.store.LeadForContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	return domain.RenderContent(msg.Content, *contact, lead), nil
}
