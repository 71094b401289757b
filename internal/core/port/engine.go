package port

import (
	"context"
	"time"

	"outreach-engine/internal/core/domain"
)

// EnrollResult reports a bulk enrollment operation.
type EnrollResult struct {
	Enrolled int     `json:"enrolled"`
	Existing int     `json:"existing"`
	IDs      []int64 `json:"enrollment_ids"`
}

// ProcessReport aggregates one queue-processor pass. Per-enrollment failures
// never abort a pass; they are counted here instead.
type ProcessReport struct {
	Processed int `json:"processed"`
	Advanced  int `json:"advanced"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Retried   int `json:"retried"`
	Skipped   int `json:"skipped"`
}

func (r *ProcessReport) add(other ProcessReport) {
	r.Processed += other.Processed
	r.Advanced += other.Advanced
	r.Completed += other.Completed
	r.Failed += other.Failed
	r.Retried += other.Retried
	r.Skipped += other.Skipped
}

// Merge folds another report into r.
func (r *ProcessReport) Merge(other ProcessReport) { r.add(other) }

// CampaignEngine is the control surface of the campaign registry, targeting
// engine and enrollment state machine.
type CampaignEngine interface {
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error)
	ListCampaigns(ctx context.Context, f CampaignFilter) ([]domain.Campaign, error)

	AddMessage(ctx context.Context, m *domain.CampaignMessage) error
	UpdateMessage(ctx context.Context, m *domain.CampaignMessage) error
	// RemoveMessage deactivates a step. Sequence orders are never
	// renumbered so in-flight enrollments keep their position.
	RemoveMessage(ctx context.Context, messageID int64) error
	ListMessages(ctx context.Context, campaignID int64) ([]domain.CampaignMessage, error)

	// Start activates the campaign, schedules step 1 for pending
	// enrollments, and runs an immediate processor pass unless the start
	// date is in the future.
	Start(ctx context.Context, campaignID int64) error
	Pause(ctx context.Context, campaignID int64) error
	Resume(ctx context.Context, campaignID int64) error
	// Relaunch resets a completed campaign: every enrollment back to
	// pending with cleared progress, campaign back to draft.
	Relaunch(ctx context.Context, campaignID int64) error

	Enroll(ctx context.Context, campaignID int64, contactIDs []int64) (EnrollResult, error)
	EnrollFromCriteria(ctx context.Context, campaignID int64) (EnrollResult, error)
	// PreviewAudience counts the contacts the criteria would enroll,
	// without mutating state.
	PreviewAudience(ctx context.Context, campaignID int64) (int, error)
	Unenroll(ctx context.Context, campaignID, contactID int64, reason string) error

	// PreviewMessage renders a step for a contact without dispatching.
	PreviewMessage(ctx context.Context, messageID, contactID int64) (domain.MessageContent, error)
}

// QueueProcessor drains due enrollments.
type QueueProcessor interface {
	ProcessDue(ctx context.Context, campaignID int64) (ProcessReport, error)
	ProcessAll(ctx context.Context) (ProcessReport, error)
}

// ActivityLedger appends ledger events and applies their enrollment side
// effects (engagement counters, opt-out and bounce transitions).
type ActivityLedger interface {
	Record(ctx context.Context, a *domain.Activity) error
	List(ctx context.Context, f ActivityFilter) ([]domain.Activity, error)
}

// Performance is the campaign-level metrics rollup.
type Performance struct {
	CampaignID   int64                 `json:"campaign_id"`
	CampaignName string                `json:"campaign_name"`
	CampaignType domain.CampaignType   `json:"campaign_type"`
	Status       domain.CampaignStatus `json:"status"`

	TotalEnrolled  int     `json:"total_enrolled"`
	Active         int     `json:"active"`
	Completed      int     `json:"completed"`
	OptedOut       int     `json:"opted_out"`
	Failed         int     `json:"failed"`
	CompletionRate float64 `json:"completion_rate"`
	OptOutRate     float64 `json:"opt_out_rate"`

	EmailsSent      int     `json:"emails_sent"`
	EmailsDelivered int     `json:"emails_delivered"`
	EmailsOpened    int     `json:"emails_opened"`
	EmailsClicked   int     `json:"emails_clicked"`
	EmailsReplied   int     `json:"emails_replied"`
	OpenRate        float64 `json:"open_rate"`
	ClickRate       float64 `json:"click_rate"`
	ReplyRate       float64 `json:"reply_rate"`
	ClickToOpenRate float64 `json:"click_to_open_rate"`

	SMSSent      int `json:"sms_sent"`
	WhatsAppSent int `json:"whatsapp_sent"`

	CallsInitiated  int     `json:"calls_initiated"`
	CallsAnswered   int     `json:"calls_answered"`
	CallsCompleted  int     `json:"calls_completed"`
	VoicemailsLeft  int     `json:"voicemails_left"`
	AnswerRate      float64 `json:"answer_rate"`
	TotalCallTime   int     `json:"total_call_duration"`
	AvgCallDuration float64 `json:"avg_call_duration"`

	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`

	TotalRevenue int64   `json:"total_revenue"`
	Budget       int64   `json:"budget"`
	ActualCost   int64   `json:"actual_cost"`
	ROI          float64 `json:"roi"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
}

// FunnelStage is one stage of the engagement funnel with drop-off versus the
// previous stage.
type FunnelStage struct {
	Stage       string  `json:"stage"`
	Count       int     `json:"count"`
	DropOff     int     `json:"drop_off"`
	DropOffRate float64 `json:"drop_off_rate"`
}

// MessagePerformance is the per-step rollup of a campaign sequence.
type MessagePerformance struct {
	MessageID     int64              `json:"message_id"`
	SequenceOrder int                `json:"sequence_order"`
	Name          string             `json:"name"`
	Channel       domain.ChannelType `json:"channel"`
	Sent          int                `json:"sent"`
	Opened        int                `json:"opened"`
	Clicked       int                `json:"clicked"`
	Replied       int                `json:"replied"`
	OpenRate      float64            `json:"open_rate"`
	ClickRate     float64            `json:"click_rate"`
	ReplyRate     float64            `json:"reply_rate"`
}

// PipelineMetrics is the cross-campaign lead pipeline rollup.
type PipelineMetrics struct {
	ByStage            []LeadStageStat    `json:"by_stage"`
	TotalLeads         int                `json:"total_leads"`
	TotalPipelineValue int64              `json:"total_pipeline_value"`
	AvgDealValue       float64            `json:"avg_deal_value"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
}

// MetricsReader is the read-side metrics surface over the enrollment table
// and the activity ledger.
type MetricsReader interface {
	Performance(ctx context.Context, campaignID int64) (*Performance, error)
	Funnel(ctx context.Context, campaignID int64) ([]FunnelStage, error)
	MessagePerformance(ctx context.Context, campaignID int64) ([]MessagePerformance, error)
	TimeSeries(ctx context.Context, campaignID int64, metric string, interval Interval, days int) ([]Bucket, error)
	Pipeline(ctx context.Context, tenantID int64, days int) (*PipelineMetrics, error)
	Compare(ctx context.Context, campaignIDs []int64) ([]Performance, error)
}
