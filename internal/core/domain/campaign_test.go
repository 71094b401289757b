package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCampaignTransitions(t *testing.T) {
	allowed := []struct{ from, to CampaignStatus }{
		{CampaignDraft, CampaignScheduled},
		{CampaignDraft, CampaignActive},
		{CampaignDraft, CampaignArchived},
		{CampaignScheduled, CampaignActive},
		{CampaignActive, CampaignPaused},
		{CampaignActive, CampaignCompleted},
		{CampaignPaused, CampaignActive},
		{CampaignCompleted, CampaignDraft},
		{CampaignCompleted, CampaignArchived},
	}
	for _, tc := range allowed {
		require.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to CampaignStatus }{
		{CampaignDraft, CampaignCompleted},
		{CampaignDraft, CampaignPaused},
		{CampaignScheduled, CampaignPaused},
		{CampaignActive, CampaignDraft},
		{CampaignActive, CampaignArchived},
		{CampaignPaused, CampaignCompleted},
		{CampaignPaused, CampaignArchived},
		{CampaignCompleted, CampaignActive},
		{CampaignArchived, CampaignDraft},
		{CampaignArchived, CampaignActive},
	}
	for _, tc := range denied {
		require.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestSetStatusStampsDates(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	c := &Campaign{Status: CampaignDraft}

	require.NoError(t, c.SetStatus(CampaignActive, now))
	require.NotNil(t, c.StartDate)
	require.Equal(t, now, *c.StartDate)

	later := now.Add(48 * time.Hour)
	require.NoError(t, c.SetStatus(CampaignCompleted, later))
	require.NotNil(t, c.EndDate)
	require.Equal(t, later, *c.EndDate)

	// An explicit start date survives activation.
	explicit := now.Add(time.Hour)
	c2 := &Campaign{Status: CampaignDraft, StartDate: &explicit}
	require.NoError(t, c2.SetStatus(CampaignActive, now))
	require.Equal(t, explicit, *c2.StartDate)
}

func TestSetStatusInvalidLeavesStateUntouched(t *testing.T) {
	now := time.Now()
	c := &Campaign{Status: CampaignDraft}
	err := c.SetStatus(CampaignCompleted, now)

	var transition *InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, CampaignDraft, c.Status)
	require.Nil(t, c.EndDate)
}

func TestStartable(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	require.False(t, (&Campaign{Status: CampaignDraft}).Startable(now))
	require.False(t, (&Campaign{Status: CampaignPaused, StartDate: &past}).Startable(now))
	require.True(t, (&Campaign{Status: CampaignActive}).Startable(now))
	require.True(t, (&Campaign{Status: CampaignActive, StartDate: &past}).Startable(now))
	require.False(t, (&Campaign{Status: CampaignActive, StartDate: &future}).Startable(now))
}
