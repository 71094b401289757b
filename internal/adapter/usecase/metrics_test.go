package usecase

import (
	"context"
	"testing"
	"time"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// seedEngagedCampaign runs one email campaign to completion for three
// contacts and layers engagement on top: two opens, one click, one
// conversion with revenue.
func seedEngagedCampaign(t *testing.T, e *env) (*domain.Campaign, []int64) {
	t.Helper()
	ctx := context.Background()
	c := e.newCampaign(t, emailStep("welcome", 0))
	var ids []int64
	for _, name := range []string{"Alice A", "Bob B", "Cara C"} {
		ids = append(ids, e.addContact(t, name, name+"@example.com").ID)
	}
	if _, err := e.engine.Enroll(ctx, c.ID, ids); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if err := e.engine.Start(ctx, c.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	record := func(contactID int64, typ domain.ActivityType, revenue int64) {
		t.Helper()
		if err := e.ledger.Record(ctx, &domain.Activity{
			CampaignID: c.ID, ContactID: contactID, Type: typ, RevenueAmount: revenue,
		}); err != nil {
			t.Fatalf("Record %s: %v", typ, err)
		}
	}
	e.advance(time.Hour)
	record(ids[0], domain.ActivityEmailOpened, 0)
	record(ids[1], domain.ActivityEmailOpened, 0)
	record(ids[0], domain.ActivityEmailClicked, 0)
	record(ids[0], domain.ActivityDealWon, 50000)
	return c, ids
}

func TestPerformanceRates(t *testing.T) {
	e := newEnv(t)
	c, _ := seedEngagedCampaign(t, e)

	p, err := e.metrics.Performance(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	if p.TotalEnrolled != 3 || p.Completed != 3 {
		t.Fatalf("enrolled=%d completed=%d, want 3/3", p.TotalEnrolled, p.Completed)
	}
	if p.EmailsSent != 3 || p.EmailsOpened != 2 || p.EmailsClicked != 1 {
		t.Fatalf("sent=%d opened=%d clicked=%d, want 3/2/1", p.EmailsSent, p.EmailsOpened, p.EmailsClicked)
	}
	if p.OpenRate != 2.0/3.0 {
		t.Fatalf("open rate %v", p.OpenRate)
	}
	if p.ClickRate != 1.0/3.0 {
		t.Fatalf("click rate %v", p.ClickRate)
	}
	if p.ClickToOpenRate != 0.5 {
		t.Fatalf("click-to-open rate %v", p.ClickToOpenRate)
	}
	if p.CompletionRate != 1.0 {
		t.Fatalf("completion rate %v", p.CompletionRate)
	}
	if p.Conversions != 1 || p.ConversionRate != 1.0/3.0 {
		t.Fatalf("conversions=%d rate=%v, want 1 and 1/3", p.Conversions, p.ConversionRate)
	}
	if p.TotalRevenue != 50000 {
		t.Fatalf("revenue %d, want 50000", p.TotalRevenue)
	}
}

func TestPerformanceROI(t *testing.T) {
	e := newEnv(t)
	c, _ := seedEngagedCampaign(t, e)
	ctx := context.Background()

	campaign, _ := e.store.GetCampaign(ctx, c.ID)
	campaign.ActualCost = 10000
	if err := e.store.UpdateCampaign(ctx, campaign); err != nil {
		t.Fatalf("UpdateCampaign: %v", err)
	}

	p, err := e.metrics.Performance(ctx, c.ID)
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	if p.ROI != 4.0 {
		t.Fatalf("ROI %v, want 4.0", p.ROI)
	}
}

func TestFunnelIsMonotonic(t *testing.T) {
	e := newEnv(t)
	c, _ := seedEngagedCampaign(t, e)

	stages, err := e.metrics.Funnel(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Funnel: %v", err)
	}
	if stages[0].Stage != "enrolled" || stages[0].Count != 3 {
		t.Fatalf("stage 0 = %+v, want enrolled/3", stages[0])
	}
	if stages[1].Stage != "sent" || stages[1].Count != 3 {
		t.Fatalf("stage 1 = %+v, want sent/3", stages[1])
	}
	for i := 1; i < len(stages); i++ {
		if stages[i].Count > stages[i-1].Count && stages[i-1].Count > 0 {
			t.Fatalf("funnel not monotonic at %s: %d > %d",
				stages[i].Stage, stages[i].Count, stages[i-1].Count)
		}
		wantDrop := stages[i-1].Count - stages[i].Count
		if stages[i].DropOff != wantDrop {
			t.Fatalf("%s drop-off %d, want %d", stages[i].Stage, stages[i].DropOff, wantDrop)
		}
	}

	byName := map[string]int{}
	for _, s := range stages {
		byName[s.Stage] = s.Count
	}
	// Opens and clicks count distinct contacts, not raw events.
	if byName["opened"] != 2 {
		t.Fatalf("opened %d, want 2", byName["opened"])
	}
	if byName["clicked"] != 1 {
		t.Fatalf("clicked %d, want 1", byName["clicked"])
	}
	if byName["converted"] != 1 {
		t.Fatalf("converted %d, want 1", byName["converted"])
	}
}

func TestMessagePerformancePerStep(t *testing.T) {
	e := newEnv(t)
	c, _ := seedEngagedCampaign(t, e)

	perf, err := e.metrics.MessagePerformance(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("MessagePerformance: %v", err)
	}
	if len(perf) != 1 {
		t.Fatalf("%d messages, want 1", len(perf))
	}
	if perf[0].Sent != 3 {
		t.Fatalf("sent %d, want 3", perf[0].Sent)
	}
	// Engagement events recorded without a message id do not attribute
	// to a step.
	if perf[0].Opened != 0 {
		t.Fatalf("opened %d, want 0", perf[0].Opened)
	}
}

func TestTimeSeriesBucketsByDay(t *testing.T) {
	e := newEnv(t)
	c, _ := seedEngagedCampaign(t, e)
	ctx := context.Background()

	buckets, err := e.metrics.TimeSeries(ctx, c.ID, "sent", port.IntervalDay, 0)
	if err != nil {
		t.Fatalf("TimeSeries: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("%d buckets, want 1", len(buckets))
	}
	if buckets[0].Count != 3 {
		t.Fatalf("bucket count %d, want 3", buckets[0].Count)
	}

	if _, err := e.metrics.TimeSeries(ctx, c.ID, "nope", port.IntervalDay, 0); err == nil {
		t.Fatal("unknown metric must be rejected")
	}
}

func TestPipelineConversionRates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	stage := func(name, st string, value int64) {
		c := e.addContact(t, name, name+"@example.com")
		e.store.AddLead(domain.Lead{ContactID: c.ID, Stage: st, DealValue: value})
	}
	stage("L One", "lead", 0)
	stage("L Two", "lead", 0)
	stage("M One", "mql", 1000)
	stage("C One", "customer", 5000)

	p, err := e.metrics.Pipeline(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Pipeline: %v", err)
	}
	if p.TotalLeads != 4 {
		t.Fatalf("total leads %d, want 4", p.TotalLeads)
	}
	if p.TotalPipelineValue != 6000 {
		t.Fatalf("pipeline value %d, want 6000", p.TotalPipelineValue)
	}
	if got := p.ConversionRates["lead_to_mql"]; got != 0.5 {
		t.Fatalf("lead_to_mql %v, want 0.5", got)
	}
	if got := p.ConversionRates["overall"]; got != 0.25 {
		t.Fatalf("overall %v, want 0.25", got)
	}
}

func TestCompareReturnsOnePerCampaign(t *testing.T) {
	e := newEnv(t)
	c1, _ := seedEngagedCampaign(t, e)
	ctx := context.Background()

	c2 := e.newCampaign(t, emailStep("welcome", 0))
	out, err := e.metrics.Compare(ctx, []int64{c1.ID, c2.ID})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("%d results, want 2", len(out))
	}
	if out[0].CampaignID != c1.ID || out[1].CampaignID != c2.ID {
		t.Fatal("results out of order")
	}
	if out[1].TotalEnrolled != 0 {
		t.Fatalf("empty campaign enrolled %d, want 0", out[1].TotalEnrolled)
	}
}
