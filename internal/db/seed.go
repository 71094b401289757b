package db

import (
	"context"
	"fmt"
	"time"

	"outreach-engine/internal/adapter/memory"
	"outreach-engine/internal/core/domain"
)

// SeedDemo populates an in-memory store with sample CRM data and a
// three-step multi-channel campaign. Used by demo mode only.
func SeedDemo(ctx context.Context, store *memory.Store) error {
	now := time.Now()

	contacts := []domain.Contact{
		{TenantID: 1, Name: "Alice Martin", Email: "alice@example.com", Phone: "+15550100", LifecycleStage: "lead", LeadSource: "webinar", OptInStatus: "opted_in"},
		{TenantID: 1, Name: "Bruno Costa", Email: "bruno@example.com", Phone: "+15550101", LifecycleStage: "lead", LeadSource: "referral", OptInStatus: "opted_in"},
		{TenantID: 1, Name: "Chen Wei", Email: "chen@example.com", Phone: "+15550102", LifecycleStage: "mql", LeadSource: "webinar", OptInStatus: "opted_in"},
		{TenantID: 1, Name: "Dana Levy", Email: "dana@example.com", Phone: "+15550103", LifecycleStage: "customer", LeadSource: "ads", OptInStatus: "opted_in"},
		{TenantID: 1, Name: "Erik Janssen", Email: "", Phone: "+15550104", LifecycleStage: "lead", LeadSource: "ads", OptInStatus: "opted_in"},
	}
	stages := []string{"lead", "lead", "mql", "customer", "sql"}
	for i, c := range contacts {
		saved := store.AddContact(c)
		store.AddLead(domain.Lead{
			ContactID: saved.ID,
			Stage:     stages[i],
			Score:     20 * (i + 1),
			DealValue: int64(50000 * (i + 1)),
			CreatedAt: now.AddDate(0, 0, -i),
		})
	}

	campaign := &domain.Campaign{
		TenantID:    1,
		Name:        "Welcome Sequence",
		Description: "Three-touch onboarding for new leads",
		Type:        domain.CampaignMultiChannel,
		Status:      domain.CampaignDraft,
		Criteria: &domain.TargetCriteria{
			LifecycleStages: []string{"lead", "mql"},
			OptInStatus:     []string{"opted_in"},
		},
		Budget:    100000,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateCampaign(ctx, campaign); err != nil {
		return fmt.Errorf("seed campaign: %w", err)
	}

	messages := []domain.CampaignMessage{
		{
			SequenceOrder: 1,
			Name:          "Welcome email",
			Channel:       domain.ChannelEmail,
			Content: domain.EmailContent{
				Subject: "Welcome, {{first_name}}!",
				Body:    "Hi {{first_name}}, thanks for signing up. We'll be in touch.",
			},
		},
		{
			SequenceOrder: 2,
			Name:          "Check-in SMS",
			Channel:       domain.ChannelSMS,
			Content:       domain.SMSContent{Body: "Hi {{first_name}}, any questions so far?"},
			DelayAmount:   2,
			DelayUnit:     domain.DelayDays,
			WeekdaysOnly:  true,
		},
		{
			SequenceOrder: 3,
			Name:          "Follow-up email",
			Channel:       domain.ChannelEmail,
			Content: domain.EmailContent{
				Subject: "Still interested, {{first_name}}?",
				Body:    "Just checking in one more time.",
			},
			DelayAmount:     3,
			DelayUnit:       domain.DelayDays,
			SendWindowStart: "09:00",
			SendWindowEnd:   "17:00",
			WeekdaysOnly:    true,
		},
	}
	for i := range messages {
		m := messages[i]
		m.CampaignID = campaign.ID
		m.Active = true
		m.CreatedAt = now
		m.UpdatedAt = now
		if err := store.CreateMessage(ctx, &m); err != nil {
			return fmt.Errorf("seed message %d: %w", m.SequenceOrder, err)
		}
	}
	return nil
}
