package domain

import (
	"fmt"
	"time"
)

// CampaignType is the primary channel of a campaign. It selects the funnel
// stage layout; individual messages carry their own channel, so a
// multi_channel campaign can mix steps freely.
type CampaignType string

const (
	CampaignEmail        CampaignType = "email"
	CampaignSMS          CampaignType = "sms"
	CampaignWhatsApp     CampaignType = "whatsapp"
	CampaignVoice        CampaignType = "voice"
	CampaignMultiChannel CampaignType = "multi_channel"
)

// Valid reports whether t is a known campaign type.
func (t CampaignType) Valid() bool {
	switch t {
	case CampaignEmail, CampaignSMS, CampaignWhatsApp, CampaignVoice, CampaignMultiChannel:
		return true
	}
	return false
}

// CampaignStatus is the campaign lifecycle state.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignArchived  CampaignStatus = "archived"
)

// campaignTransitions is the allowed status-transition table. COMPLETED→DRAFT
// is the relaunch path and additionally requires a bulk enrollment reset,
// enforced by the usecase.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignActive, CampaignArchived},
	CampaignScheduled: {CampaignActive, CampaignArchived},
	CampaignActive:    {CampaignPaused, CampaignCompleted},
	CampaignPaused:    {CampaignActive},
	CampaignCompleted: {CampaignDraft, CampaignArchived},
}

// CanTransition reports whether a status change from s to target is allowed.
func (s CampaignStatus) CanTransition(target CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned when a campaign or enrollment status
// change is not permitted. No state is mutated when it is returned.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

// Campaign is a declarative multi-step outreach campaign. Monetary amounts
// are stored in integer units (e.g. cents).
type Campaign struct {
	ID          int64
	TenantID    int64
	Name        string
	Description string
	Type        CampaignType
	Status      CampaignStatus
	Criteria    *TargetCriteria

	StartDate *time.Time
	EndDate   *time.Time

	Budget     int64
	ActualCost int64

	// Cached rollups, recomputed after each processor pass.
	TotalContacts     int
	ContactsReached   int
	ContactsEngaged   int
	ContactsConverted int
	TotalRevenue      int64

	CreatedAt time.Time
	UpdatedAt time.Time
	LastRunAt *time.Time
}

// SetStatus applies a guarded status change, stamping start/end dates on the
// first activation and completion the way the lifecycle expects.
func (c *Campaign) SetStatus(target CampaignStatus, now time.Time) error {
	if !c.Status.CanTransition(target) {
		return &InvalidTransitionError{Entity: "campaign", From: string(c.Status), To: string(target)}
	}
	c.Status = target
	switch target {
	case CampaignActive:
		if c.StartDate == nil {
			start := now
			c.StartDate = &start
		}
	case CampaignCompleted:
		if c.EndDate == nil {
			end := now
			c.EndDate = &end
		}
	}
	return nil
}

// Startable reports whether the campaign is active and its start date has
// arrived. Campaigns scheduled for a future start stay out of processing
// until due.
func (c *Campaign) Startable(now time.Time) bool {
	if c.Status != CampaignActive {
		return false
	}
	return c.StartDate == nil || !c.StartDate.After(now)
}
