package usecase

import (
	"context"
	"fmt"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// Metrics implements port.MetricsReader on top of the enrollment table and
// the activity ledger. Everything here is read-only.
type Metrics struct {
	store port.Store
	now   func() time.Time
}

func NewMetrics(store port.Store) *Metrics {
	return &Metrics{store: store, now: time.Now}
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func (m *Metrics) Performance(ctx context.Context, campaignID int64) (*port.Performance, error) {
	campaign, err := m.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %d: %w", campaignID, ErrNotFound)
	}
	counts, err := m.store.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	byType, err := m.store.CountByType(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	totals, err := m.store.EngagementTotals(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	revenue, err := m.store.SumRevenue(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	p := &port.Performance{
		CampaignID:   campaign.ID,
		CampaignName: campaign.Name,
		CampaignType: campaign.Type,
		Status:       campaign.Status,

		TotalEnrolled: total,
		Active:        counts[domain.EnrollmentActive],
		Completed:     counts[domain.EnrollmentCompleted],
		OptedOut:      counts[domain.EnrollmentOptedOut],
		Failed:        counts[domain.EnrollmentFailed] + counts[domain.EnrollmentBounced],

		EmailsSent:      byType[domain.ActivityEmailSent],
		EmailsDelivered: byType[domain.ActivityEmailDelivered],
		EmailsOpened:    byType[domain.ActivityEmailOpened],
		EmailsClicked:   byType[domain.ActivityEmailClicked],
		EmailsReplied:   byType[domain.ActivityEmailReplied],

		SMSSent:      byType[domain.ActivitySMSSent],
		WhatsAppSent: byType[domain.ActivityWhatsAppSent],

		CallsInitiated: byType[domain.ActivityCallInitiated],
		CallsAnswered:  byType[domain.ActivityCallAnswered],
		CallsCompleted: byType[domain.ActivityCallCompleted],
		VoicemailsLeft: byType[domain.ActivityVoicemailLeft],
		TotalCallTime:  totals.TotalCallDuration,

		Conversions: totals.Conversions,

		TotalRevenue: revenue,
		Budget:       campaign.Budget,
		ActualCost:   campaign.ActualCost,

		StartDate: campaign.StartDate,
		EndDate:   campaign.EndDate,
		LastRunAt: campaign.LastRunAt,
	}

	p.CompletionRate = ratio(p.Completed, total)
	p.OptOutRate = ratio(p.OptedOut, total)
	p.OpenRate = ratio(p.EmailsOpened, p.EmailsSent)
	p.ClickRate = ratio(p.EmailsClicked, p.EmailsSent)
	p.ReplyRate = ratio(p.EmailsReplied, p.EmailsSent)
	p.ClickToOpenRate = ratio(p.EmailsClicked, p.EmailsOpened)
	p.AnswerRate = ratio(p.CallsAnswered, p.CallsInitiated)
	if p.CallsCompleted > 0 {
		p.AvgCallDuration = float64(totals.TotalCallDuration) / float64(p.CallsCompleted)
	}
	p.ConversionRate = ratio(totals.Converted, total)
	if campaign.ActualCost > 0 {
		p.ROI = float64(revenue-campaign.ActualCost) / float64(campaign.ActualCost)
	}
	return p, nil
}

// funnelLayout is the ordered stage list per campaign type. Each stage after
// "enrolled" counts distinct contacts with at least one event of the listed
// types, which keeps the funnel monotonically non-increasing per contact.
func funnelLayout(t domain.CampaignType) []struct {
	name  string
	types []domain.ActivityType
} {
	type stage = struct {
		name  string
		types []domain.ActivityType
	}
	converted := stage{"converted", []domain.ActivityType{domain.ActivityOpportunityCreated, domain.ActivityDealWon}}
	switch t {
	case domain.CampaignEmail:
		return []stage{
			{"sent", []domain.ActivityType{domain.ActivityEmailSent}},
			{"delivered", []domain.ActivityType{domain.ActivityEmailDelivered}},
			{"opened", []domain.ActivityType{domain.ActivityEmailOpened}},
			{"clicked", []domain.ActivityType{domain.ActivityEmailClicked, domain.ActivityLinkClicked}},
			{"replied", []domain.ActivityType{domain.ActivityEmailReplied}},
			converted,
		}
	case domain.CampaignSMS:
		return []stage{
			{"sent", []domain.ActivityType{domain.ActivitySMSSent}},
			{"delivered", []domain.ActivityType{domain.ActivitySMSDelivered}},
			{"replied", []domain.ActivityType{domain.ActivitySMSReplied}},
			converted,
		}
	case domain.CampaignWhatsApp:
		return []stage{
			{"sent", []domain.ActivityType{domain.ActivityWhatsAppSent}},
			{"delivered", []domain.ActivityType{domain.ActivityWhatsAppDelivered}},
			{"read", []domain.ActivityType{domain.ActivityWhatsAppRead}},
			{"replied", []domain.ActivityType{domain.ActivityWhatsAppReplied}},
			converted,
		}
	case domain.CampaignVoice:
		return []stage{
			{"initiated", []domain.ActivityType{domain.ActivityCallInitiated}},
			{"answered", []domain.ActivityType{domain.ActivityCallAnswered}},
			{"completed", []domain.ActivityType{domain.ActivityCallCompleted}},
			converted,
		}
	default:
		return []stage{
			{"sent", domain.SentTypes()},
			{"engaged", []domain.ActivityType{
				domain.ActivityEmailOpened, domain.ActivityEmailClicked, domain.ActivityEmailReplied,
				domain.ActivitySMSReplied, domain.ActivityWhatsAppRead, domain.ActivityWhatsAppReplied,
				domain.ActivityLinkClicked, domain.ActivityCallAnswered,
			}},
			converted,
		}
	}
}

func (m *Metrics) Funnel(ctx context.Context, campaignID int64) ([]port.FunnelStage, error) {
	campaign, err := m.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("campaign %d: %w", campaignID, ErrNotFound)
	}
	counts, err := m.store.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	enrolled := 0
	for _, n := range counts {
		enrolled += n
	}

	stages := []port.FunnelStage{{Stage: "enrolled", Count: enrolled}}
	for _, layer := range funnelLayout(campaign.Type) {
		n, err := m.store.DistinctContacts(ctx, port.ActivityFilter{CampaignID: campaignID, Types: layer.types})
		if err != nil {
			return nil, err
		}
		prev := stages[len(stages)-1]
		stages = append(stages, port.FunnelStage{
			Stage:       layer.name,
			Count:       n,
			DropOff:     prev.Count - n,
			DropOffRate: ratio(prev.Count-n, prev.Count),
		})
	}
	return stages, nil
}

func (m *Metrics) MessagePerformance(ctx context.Context, campaignID int64) ([]port.MessagePerformance, error) {
	messages, err := m.store.ListMessages(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	out := make([]port.MessagePerformance, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		count := func(types []domain.ActivityType) (int, error) {
			return m.store.CountActivities(ctx, port.ActivityFilter{
				CampaignID: campaignID,
				MessageID:  &msg.ID,
				Types:      types,
			})
		}
		sent, err := count(domain.SentTypes())
		if err != nil {
			return nil, err
		}
		opened, err := count([]domain.ActivityType{domain.ActivityEmailOpened, domain.ActivityWhatsAppRead})
		if err != nil {
			return nil, err
		}
		clicked, err := count([]domain.ActivityType{domain.ActivityEmailClicked, domain.ActivityLinkClicked})
		if err != nil {
			return nil, err
		}
		replied, err := count([]domain.ActivityType{
			domain.ActivityEmailReplied, domain.ActivitySMSReplied, domain.ActivityWhatsAppReplied,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, port.MessagePerformance{
			MessageID:     msg.ID,
			SequenceOrder: msg.SequenceOrder,
			Name:          msg.Name,
			Channel:       msg.Channel,
			Sent:          sent,
			Opened:        opened,
			Clicked:       clicked,
			Replied:       replied,
			OpenRate:      ratio(opened, sent),
			ClickRate:     ratio(clicked, sent),
			ReplyRate:     ratio(replied, sent),
		})
	}
	return out, nil
}

// timeSeriesTypes maps a metric name to the ledger types it counts.
func timeSeriesTypes(metric string) ([]domain.ActivityType, error) {
	switch metric {
	case "sent":
		return domain.SentTypes(), nil
	case "opens":
		return []domain.ActivityType{domain.ActivityEmailOpened, domain.ActivityWhatsAppRead}, nil
	case "clicks":
		return []domain.ActivityType{domain.ActivityEmailClicked, domain.ActivityLinkClicked}, nil
	case "replies":
		return []domain.ActivityType{
			domain.ActivityEmailReplied, domain.ActivitySMSReplied, domain.ActivityWhatsAppReplied,
		}, nil
	case "calls":
		return []domain.ActivityType{
			domain.ActivityCallInitiated, domain.ActivityCallAnswered, domain.ActivityCallCompleted,
		}, nil
	case "conversions":
		return []domain.ActivityType{domain.ActivityOpportunityCreated, domain.ActivityDealWon}, nil
	case "opt_outs":
		return []domain.ActivityType{domain.ActivityOptedOut, domain.ActivityEmailUnsubscribed}, nil
	}
	return nil, fmt.Errorf("unknown time series metric %q", metric)
}

func (m *Metrics) TimeSeries(ctx context.Context, campaignID int64, metric string, interval port.Interval, days int) ([]port.Bucket, error) {
	types, err := timeSeriesTypes(metric)
	if err != nil {
		return nil, err
	}
	f := port.ActivityFilter{CampaignID: campaignID, Types: types}
	if days > 0 {
		from := m.now().AddDate(0, 0, -days)
		f.From = &from
	}
	return m.store.CountBuckets(ctx, f, interval)
}

// pipelineStages is the ordered lead funnel used for stage-to-stage
// conversion rates.
var pipelineStages = []string{"lead", "mql", "sql", "opportunity", "customer"}

func (m *Metrics) Pipeline(ctx context.Context, tenantID int64, days int) (*port.PipelineMetrics, error) {
	var since *time.Time
	if days > 0 {
		t := m.now().AddDate(0, 0, -days)
		since = &t
	}
	byStage, err := m.store.LeadStageSummary(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(byStage))
	out := &port.PipelineMetrics{ByStage: byStage, ConversionRates: make(map[string]float64)}
	for _, s := range byStage {
		counts[s.Stage] = s.Count
		out.TotalLeads += s.Count
		out.TotalPipelineValue += s.TotalValue
	}
	if out.TotalLeads > 0 {
		out.AvgDealValue = float64(out.TotalPipelineValue) / float64(out.TotalLeads)
	}
	for i := 1; i < len(pipelineStages); i++ {
		from, to := pipelineStages[i-1], pipelineStages[i]
		out.ConversionRates[from+"_to_"+to] = ratio(counts[to], counts[from])
	}
	out.ConversionRates["overall"] = ratio(counts["customer"], out.TotalLeads)
	return out, nil
}

func (m *Metrics) Compare(ctx context.Context, campaignIDs []int64) ([]port.Performance, error) {
	out := make([]port.Performance, 0, len(campaignIDs))
	for _, id := range campaignIDs {
		p, err := m.Performance(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
