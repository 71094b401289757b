package usecase

import (
	"context"
	"fmt"
	"sort"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Audience is a resolved targeting result: the contacts a campaign would
// enroll, paired with their leads where one exists.
type Audience struct {
	Contacts []domain.Contact
	Leads    map[int64]*domain.Lead
}

// Targeting resolves campaign criteria against the contact base.
type Targeting struct {
	store port.Store
}

func NewTargeting(store port.Store) *Targeting {
	return &Targeting{store: store}
}

// Resolve evaluates criteria for a campaign and returns the matching
// audience. Contacts marked do-not-contact and contacts already enrolled in
// the campaign are excluded. Explicitly listed contact and lead ids are
// merged with the filter matches and deduplicated; the result is ordered by
// contact id and capped at MaxContacts when set.
func (t *Targeting) Resolve(ctx context.Context, campaign *domain.Campaign) (*Audience, error) {
	criteria := campaign.Criteria
	if criteria == nil {
		return nil, &domain.TargetingError{Reason: "campaign has no target criteria"}
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	enrolled, err := t.store.EnrolledContactIDs(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("load enrolled contacts: %w", err)
	}

	contacts, err := t.store.ListContacts(ctx, campaign.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	picked := make(map[int64]domain.Contact)
	leads := make(map[int64]*domain.Lead)

	include := func(c domain.Contact, lead *domain.Lead) {
		if c.DoNotContact {
			return
		}
		if _, ok := enrolled[c.ID]; ok {
			return
		}
		if _, ok := picked[c.ID]; ok {
			return
		}
		picked[c.ID] = c
		if lead != nil {
			leads[c.ID] = lead
		}
	}

	for _, c := range contacts {
		lead, err := t.store.LeadForContact(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("load lead for contact %d: %w", c.ID, err)
		}
		if criteria.Matches(c, lead) {
			include(c, lead)
		}
	}

	for _, id := range criteria.ContactIDs {
		c, err := t.store.GetContact(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load contact %d: %w", id, err)
		}
		if c == nil {
			continue
		}
		lead, err := t.store.LeadForContact(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("load lead for contact %d: %w", c.ID, err)
		}
		include(*c, lead)
	}

	for _, id := range criteria.LeadIDs {
		lead, err := t.store.GetLead(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load lead %d: %w", id, err)
		}
		if lead == nil {
			continue
		}
		c, err := t.store.GetContact(ctx, lead.ContactID)
		if err != nil {
			return nil, fmt.Errorf("load contact %d: %w", lead.ContactID, err)
		}
		if c == nil {
			continue
		}
		include(*c, lead)
	}

	out := make([]domain.Contact, 0, len(picked))
	for _, c := range picked {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if criteria.MaxContacts > 0 && len(out) > criteria.MaxContacts {
		out = out[:criteria.MaxContacts]
	}

	return &Audience{Contacts: out, Leads: leads}, nil
}

// Count returns the audience size without materializing enrollments.
func (t *Targeting) Count(ctx context.Context, campaign *domain.Campaign) (int, error) {
	audience, err := t.Resolve(ctx, campaign)
	if err != nil {
		return 0, err
	}
	return len(audience.Contacts), nil
}
