// Package memory provides a mutex-guarded in-memory implementation of the
// persistence ports. It backs the usecase tests and the demo mode of the
// binary; the claim discipline matches the postgres adapter so processor
// behavior is identical against either.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Store implements port.Store with in-process maps.
type Store struct {
	mu sync.Mutex

	campaigns   map[int64]*domain.Campaign
	messages    map[int64]*domain.CampaignMessage
	enrollments map[int64]*domain.Enrollment
	activities  []domain.Activity
	contacts    map[int64]*domain.Contact
	leads       map[int64]*domain.Lead

	nextCampaignID   int64
	nextMessageID    int64
	nextEnrollmentID int64
	nextActivityID   int64
	nextContactID    int64
	nextLeadID       int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		campaigns:   make(map[int64]*domain.Campaign),
		messages:    make(map[int64]*domain.CampaignMessage),
		enrollments: make(map[int64]*domain.Enrollment),
		contacts:    make(map[int64]*domain.Contact),
		leads:       make(map[int64]*domain.Lead),
	}
}

func (s *Store) CreateCampaign(_ context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCampaignID++
	c.ID = s.nextCampaignID
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *Store) UpdateCampaign(_ context.Context, c *domain.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *Store) GetCampaign(_ context.Context, id int64) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCampaigns(_ context.Context, f port.CampaignFilter) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if f.TenantID != 0 && c.TenantID != f.TenantID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.Type != nil && c.Type != *f.Type {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	out = window(out, f.Offset, f.Limit)
	return out, nil
}

func window[T any](in []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func (s *Store) CreateMessage(_ context.Context, m *domain.CampaignMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessageID++
	m.ID = s.nextMessageID
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *Store) UpdateMessage(_ context.Context, m *domain.CampaignMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *Store) GetMessage(_ context.Context, id int64) (*domain.CampaignMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListMessages(_ context.Context, campaignID int64) ([]domain.CampaignMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CampaignMessage
	for _, m := range s.messages {
		if m.CampaignID == campaignID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out, nil
}

func (s *Store) MessageAt(_ context.Context, campaignID int64, order int) (*domain.CampaignMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.CampaignID == campaignID && m.SequenceOrder == order && m.Active {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateEnrollment(_ context.Context, e *domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEnrollmentID++
	e.ID = s.nextEnrollmentID
	cp := *e
	s.enrollments[e.ID] = &cp
	return nil
}

func (s *Store) UpdateEnrollment(_ context.Context, e *domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.enrollments[e.ID] = &cp
	return nil
}

func (s *Store) GetEnrollment(_ context.Context, id int64) (*domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *Store) FindEnrollment(_ context.Context, campaignID, contactID int64) (*domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.enrollments {
		if e.CampaignID == campaignID && e.ContactID == contactID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListEnrollments(_ context.Context, campaignID int64, status *domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Enrollment
	for _, e := range s.enrollments {
		if e.CampaignID != campaignID {
			continue
		}
		if status != nil && e.Status != *status {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDue(_ context.Context, campaignID int64, now time.Time, limit int) ([]domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Enrollment
	for _, e := range s.enrollments {
		if e.CampaignID != campaignID || e.Status != domain.EnrollmentActive {
			continue
		}
		if e.NextScheduledAt == nil || !e.NextScheduledAt.After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].NextScheduledAt, out[j].NextScheduledAt
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return out[i].ID < out[j].ID
		}
	})
	out = window(out, 0, limit)
	return out, nil
}

func (s *Store) ClaimDue(_ context.Context, id int64, now time.Time) (*domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok || e.Status != domain.EnrollmentActive {
		return nil, port.ErrClaimConflict
	}
	if e.NextScheduledAt != nil && e.NextScheduledAt.After(now) {
		return nil, port.ErrClaimConflict
	}
	if e.ClaimedAt != nil && e.ClaimedAt.After(now.Add(-port.ClaimLease)) {
		return nil, port.ErrClaimConflict
	}
	t := now
	e.ClaimedAt = &t
	cp := *e
	return &cp, nil
}

func (s *Store) UpdateClaimed(_ context.Context, e *domain.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.enrollments[e.ID]
	if !ok || stored.Status != domain.EnrollmentActive {
		return port.ErrClaimConflict
	}
	cp := *e
	s.enrollments[e.ID] = &cp
	return nil
}

func (s *Store) EnrolledContactIDs(_ context.Context, campaignID int64) (map[int64]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]struct{})
	for _, e := range s.enrollments {
		if e.CampaignID == campaignID {
			out[e.ContactID] = struct{}{}
		}
	}
	return out, nil
}

func (s *Store) CountByStatus(_ context.Context, campaignID int64) (map[domain.EnrollmentStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.EnrollmentStatus]int)
	for _, e := range s.enrollments {
		if e.CampaignID == campaignID {
			out[e.Status]++
		}
	}
	return out, nil
}

func (s *Store) EngagementTotals(_ context.Context, campaignID int64) (port.EngagementTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t port.EngagementTotals
	for _, e := range s.enrollments {
		if e.CampaignID != campaignID {
			continue
		}
		t.Opens += e.Opens
		t.Clicks += e.Clicks
		t.Replies += e.Replies
		t.Conversions += e.Conversions
		t.CallsInitiated += e.CallsInitiated
		t.CallsCompleted += e.CallsCompleted
		t.TotalCallDuration += e.TotalCallDuration
		t.VoicemailsLeft += e.VoicemailsLeft
		if e.CurrentStep > 0 {
			t.Reached++
		}
		if e.Opens > 0 || e.Clicks > 0 || e.Replies > 0 {
			t.Engaged++
		}
		if e.Conversions > 0 {
			t.Converted++
		}
	}
	return t, nil
}

func matchesFilter(a *domain.Activity, f port.ActivityFilter) bool {
	if a.CampaignID != f.CampaignID {
		return false
	}
	if f.ContactID != nil && a.ContactID != *f.ContactID {
		return false
	}
	if f.MessageID != nil && (a.MessageID == nil || *a.MessageID != *f.MessageID) {
		return false
	}
	if f.From != nil && a.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && a.Timestamp.After(*f.To) {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if a.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *Store) RecordActivity(_ context.Context, a *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextActivityID++
	a.ID = s.nextActivityID
	s.activities = append(s.activities, *a)
	return nil
}

func (s *Store) ListActivities(_ context.Context, f port.ActivityFilter) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Activity
	for i := range s.activities {
		if matchesFilter(&s.activities[i], f) {
			out = append(out, s.activities[i])
		}
	}
	return out, nil
}

func (s *Store) CountActivities(_ context.Context, f port.ActivityFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.activities {
		if matchesFilter(&s.activities[i], f) {
			n++
		}
	}
	return n, nil
}

func (s *Store) DistinctContacts(_ context.Context, f port.ActivityFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[int64]struct{})
	for i := range s.activities {
		if matchesFilter(&s.activities[i], f) {
			seen[s.activities[i].ContactID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (s *Store) CountByType(_ context.Context, campaignID int64) (map[domain.ActivityType]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.ActivityType]int)
	for i := range s.activities {
		if s.activities[i].CampaignID == campaignID {
			out[s.activities[i].Type]++
		}
	}
	return out, nil
}

func (s *Store) SumRevenue(_ context.Context, campaignID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for i := range s.activities {
		if s.activities[i].CampaignID == campaignID {
			sum += s.activities[i].RevenueAmount
		}
	}
	return sum, nil
}

func truncatePeriod(t time.Time, interval port.Interval) time.Time {
	switch interval {
	case port.IntervalWeek:
		// ISO week, Monday start.
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case port.IntervalMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

func (s *Store) CountBuckets(_ context.Context, f port.ActivityFilter, interval port.Interval) ([]port.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[time.Time]int)
	for i := range s.activities {
		if matchesFilter(&s.activities[i], f) {
			counts[truncatePeriod(s.activities[i].Timestamp, interval)]++
		}
	}
	out := make([]port.Bucket, 0, len(counts))
	for period, n := range counts {
		out = append(out, port.Bucket{Period: period, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

// AddContact registers a contact, assigning an id when unset.
func (s *Store) AddContact(c domain.Contact) domain.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.nextContactID++
		c.ID = s.nextContactID
	} else if c.ID > s.nextContactID {
		s.nextContactID = c.ID
	}
	cp := c
	s.contacts[c.ID] = &cp
	return c
}

// AddLead registers a lead, assigning an id when unset.
func (s *Store) AddLead(l domain.Lead) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		s.nextLeadID++
		l.ID = s.nextLeadID
	} else if l.ID > s.nextLeadID {
		s.nextLeadID = l.ID
	}
	cp := l
	s.leads[l.ID] = &cp
	return l
}

func (s *Store) GetContact(_ context.Context, id int64) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) LeadForContact(_ context.Context, contactID int64) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if l.ContactID == contactID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetLead(_ context.Context, id int64) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *Store) ListContacts(_ context.Context, tenantID int64) ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contact
	for _, c := range s.contacts {
		if tenantID == 0 || c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) LeadStageSummary(_ context.Context, tenantID int64, since *time.Time) ([]port.LeadStageStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type agg struct {
		count int
		value int64
		score int
	}
	byStage := make(map[string]*agg)
	for _, l := range s.leads {
		if tenantID != 0 {
			c, ok := s.contacts[l.ContactID]
			if !ok || c.TenantID != tenantID {
				continue
			}
		}
		if since != nil && l.CreatedAt.Before(*since) {
			continue
		}
		a := byStage[l.Stage]
		if a == nil {
			a = &agg{}
			byStage[l.Stage] = a
		}
		a.count++
		a.value += l.DealValue
		a.score += l.Score
	}
	out := make([]port.LeadStageStat, 0, len(byStage))
	for stage, a := range byStage {
		out = append(out, port.LeadStageStat{
			Stage:      stage,
			Count:      a.count,
			TotalValue: a.value,
			AvgScore:   float64(a.score) / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out, nil
}
