package port

import (
	"context"
	"errors"
	"time"

	"outreach-engine/internal/core/domain"
)

// ErrClaimConflict signals that another processor already claimed an
// enrollment this cycle, or that the row changed state under a held claim.
// Callers skip the enrollment silently.
var ErrClaimConflict = errors.New("enrollment already claimed")

// ClaimLease bounds how long a claim blocks other processors. A claim older
// than the lease belongs to a crashed cycle and the row becomes claimable
// again, so a dispatch is retried rather than stranded.
const ClaimLease = 5 * time.Minute

// CampaignFilter narrows campaign listings.
type CampaignFilter struct {
	TenantID int64
	Status   *domain.CampaignStatus
	Type     *domain.CampaignType
	Limit    int
	Offset   int
}

// CampaignStore persists campaign definitions and their message sequences.
// Lookup methods return nil without error when nothing matches.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	UpdateCampaign(ctx context.Context, c *domain.Campaign) error
	GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context, f CampaignFilter) ([]domain.Campaign, error)

	CreateMessage(ctx context.Context, m *domain.CampaignMessage) error
	UpdateMessage(ctx context.Context, m *domain.CampaignMessage) error
	GetMessage(ctx context.Context, id int64) (*domain.CampaignMessage, error)
	// ListMessages returns the full sequence ordered by sequence_order.
	ListMessages(ctx context.Context, campaignID int64) ([]domain.CampaignMessage, error)
	// MessageAt returns the active message at a 1-based sequence position,
	// or nil when the sequence is exhausted.
	MessageAt(ctx context.Context, campaignID int64, order int) (*domain.CampaignMessage, error)
}

// EngagementTotals aggregates enrollment counters for one campaign.
type EngagementTotals struct {
	Opens             int
	Clicks            int
	Replies           int
	Conversions       int
	CallsInitiated    int
	CallsCompleted    int
	TotalCallDuration int
	VoicemailsLeft    int

	Reached   int // enrollments past step 0
	Engaged   int // enrollments with any open/click/reply
	Converted int // enrollments with at least one conversion
}

// EnrollmentStore persists enrollments. Writers share one discipline: the
// processor claims via ClaimDue before acting and writes back through
// UpdateClaimed; every other mutation goes through UpdateEnrollment after a
// guarded domain transition.
type EnrollmentStore interface {
	CreateEnrollment(ctx context.Context, e *domain.Enrollment) error
	UpdateEnrollment(ctx context.Context, e *domain.Enrollment) error
	GetEnrollment(ctx context.Context, id int64) (*domain.Enrollment, error)
	FindEnrollment(ctx context.Context, campaignID, contactID int64) (*domain.Enrollment, error)
	ListEnrollments(ctx context.Context, campaignID int64, status *domain.EnrollmentStatus) ([]domain.Enrollment, error)

	// ListDue returns active enrollments whose next_scheduled_at has elapsed
	// or is null, ordered by next_scheduled_at (nulls last) then id, up to
	// limit (0 = no limit).
	ListDue(ctx context.Context, campaignID int64, now time.Time, limit int) ([]domain.Enrollment, error)

	// ClaimDue atomically claims a due enrollment for this cycle by stamping
	// claimed_at while the row is still active, due, and not held by a fresh
	// claim (younger than ClaimLease). The schedule itself is untouched until
	// the processor writes the outcome back. It returns ErrClaimConflict when
	// another processor holds the row or it is no longer due or active.
	ClaimDue(ctx context.Context, id int64, now time.Time) (*domain.Enrollment, error)

	// UpdateClaimed writes back an enrollment the caller claimed via
	// ClaimDue, but only while the stored row is still active. It returns
	// ErrClaimConflict when a concurrent opt-out, pause, or other transition
	// landed after the claim; the concurrent state wins and the caller must
	// not reschedule.
	UpdateClaimed(ctx context.Context, e *domain.Enrollment) error

	EnrolledContactIDs(ctx context.Context, campaignID int64) (map[int64]struct{}, error)
	CountByStatus(ctx context.Context, campaignID int64) (map[domain.EnrollmentStatus]int, error)
	EngagementTotals(ctx context.Context, campaignID int64) (EngagementTotals, error)
}

// ActivityFilter narrows ledger queries.
type ActivityFilter struct {
	CampaignID int64
	ContactID  *int64
	MessageID  *int64
	Types      []domain.ActivityType
	From       *time.Time
	To         *time.Time
}

// Interval buckets time-series queries.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
)

// Bucket is one time-series data point.
type Bucket struct {
	Period time.Time `json:"period"`
	Count  int       `json:"count"`
}

// ActivityStore is the append-only ledger. There is no update or delete.
type ActivityStore interface {
	RecordActivity(ctx context.Context, a *domain.Activity) error
	ListActivities(ctx context.Context, f ActivityFilter) ([]domain.Activity, error)
	CountActivities(ctx context.Context, f ActivityFilter) (int, error)
	// DistinctContacts counts distinct contact ids matching the filter.
	DistinctContacts(ctx context.Context, f ActivityFilter) (int, error)
	CountByType(ctx context.Context, campaignID int64) (map[domain.ActivityType]int, error)
	SumRevenue(ctx context.Context, campaignID int64) (int64, error)
	CountBuckets(ctx context.Context, f ActivityFilter, interval Interval) ([]Bucket, error)
}

// LeadStageStat is one row of the cross-campaign pipeline rollup.
type LeadStageStat struct {
	Stage      string  `json:"stage"`
	Count      int     `json:"count"`
	TotalValue int64   `json:"total_value"`
	AvgScore   float64 `json:"avg_score"`
}

// ContactStore is the engine's read-only access to contacts and leads owned
// by the surrounding CRM.
type ContactStore interface {
	GetContact(ctx context.Context, id int64) (*domain.Contact, error)
	LeadForContact(ctx context.Context, contactID int64) (*domain.Lead, error)
	GetLead(ctx context.Context, id int64) (*domain.Lead, error)
	// ListContacts returns every contact of a tenant ordered by id. The
	// targeting engine applies criteria on top.
	ListContacts(ctx context.Context, tenantID int64) ([]domain.Contact, error)
	LeadStageSummary(ctx context.Context, tenantID int64, since *time.Time) ([]LeadStageStat, error)
}

// Store bundles the four persistence ports the engine needs.
type Store interface {
	CampaignStore
	EnrollmentStore
	ActivityStore
	ContactStore
}
