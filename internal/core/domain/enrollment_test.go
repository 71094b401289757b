package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnrollmentActivate(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC) // Monday
	first := &CampaignMessage{ID: 1}

	e := &Enrollment{Status: EnrollmentPending}
	require.NoError(t, e.Activate(first, now))
	require.Equal(t, EnrollmentActive, e.Status)
	require.NotNil(t, e.NextScheduledAt)
	require.Equal(t, now, *e.NextScheduledAt)

	// Activate is only valid from pending.
	require.Error(t, e.Activate(first, now))
}

func TestEnrollmentAdvance(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	sent := &CampaignMessage{ID: 1}
	next := &CampaignMessage{ID: 2, DelayAmount: 1, DelayUnit: DelayHours}

	e := &Enrollment{Status: EnrollmentActive, RetryCount: 2}
	require.NoError(t, e.Advance(sent, next, now))
	require.Equal(t, EnrollmentActive, e.Status)
	require.Equal(t, 1, e.CurrentStep)
	require.Equal(t, int64(1), *e.CurrentMessageID)
	require.Equal(t, 0, e.RetryCount)
	require.Equal(t, now.Add(time.Hour), *e.NextScheduledAt)

	// Final step completes the sequence.
	require.NoError(t, e.Advance(next, nil, now))
	require.Equal(t, EnrollmentCompleted, e.Status)
	require.Equal(t, 2, e.CurrentStep)
	require.Nil(t, e.NextScheduledAt)
	require.NotNil(t, e.CompletedAt)

	// No transitions out of a terminal state.
	require.Error(t, e.Advance(sent, next, now))
	require.Error(t, e.Fail())
	require.Error(t, e.OptOut("x", now))
	require.Error(t, e.MarkBounced())
}

func TestAdvanceReleasesClaim(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	sent := &CampaignMessage{ID: 1}
	next := &CampaignMessage{ID: 2, DelayAmount: 1, DelayUnit: DelayHours}

	e := &Enrollment{Status: EnrollmentActive, ClaimedAt: &now}
	require.NoError(t, e.Advance(sent, next, now))
	require.Nil(t, e.ClaimedAt)
}

// A rejected Advance names the state it was heading for, not the state the
// enrollment is already in.
func TestAdvanceRejectionNamesTarget(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	sent := &CampaignMessage{ID: 1}
	next := &CampaignMessage{ID: 2}

	var terr *InvalidTransitionError

	paused := &Enrollment{Status: EnrollmentPaused}
	require.ErrorAs(t, paused.Advance(sent, next, now), &terr)
	require.Equal(t, string(EnrollmentPaused), terr.From)
	require.Equal(t, string(EnrollmentActive), terr.To)

	optedOut := &Enrollment{Status: EnrollmentOptedOut}
	require.ErrorAs(t, optedOut.Advance(sent, nil, now), &terr)
	require.Equal(t, string(EnrollmentOptedOut), terr.From)
	require.Equal(t, string(EnrollmentCompleted), terr.To)
}

func TestEnrollmentOptOut(t *testing.T) {
	now := time.Now()
	e := &Enrollment{Status: EnrollmentActive, NextScheduledAt: &now}
	require.NoError(t, e.OptOut("unsubscribe link", now))
	require.Equal(t, EnrollmentOptedOut, e.Status)
	require.Equal(t, "unsubscribe link", e.OptOutReason)
	require.Nil(t, e.NextScheduledAt)
	require.NotNil(t, e.OptedOutAt)
}

func TestEnrollmentPauseResumePreservesSchedule(t *testing.T) {
	at := time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC)
	e := &Enrollment{Status: EnrollmentActive, NextScheduledAt: &at, CurrentStep: 2}

	require.NoError(t, e.Pause())
	require.Equal(t, EnrollmentPaused, e.Status)
	require.Equal(t, at, *e.NextScheduledAt)

	require.NoError(t, e.Resume())
	require.Equal(t, EnrollmentActive, e.Status)
	require.Equal(t, at, *e.NextScheduledAt)
	require.Equal(t, 2, e.CurrentStep)

	// Resume only applies to paused enrollments.
	require.Error(t, e.Resume())
}

func TestEnrollmentReset(t *testing.T) {
	now := time.Now()
	id := int64(7)
	e := &Enrollment{
		Status:           EnrollmentCompleted,
		CurrentStep:      3,
		CurrentMessageID: &id,
		RetryCount:       2,
		CompletedAt:      &now,
		Opens:            4,
	}
	e.Reset()
	require.Equal(t, EnrollmentPending, e.Status)
	require.Zero(t, e.CurrentStep)
	require.Nil(t, e.CurrentMessageID)
	require.Nil(t, e.NextScheduledAt)
	require.Nil(t, e.CompletedAt)
	require.Zero(t, e.RetryCount)
	// Engagement history survives a relaunch.
	require.Equal(t, 4, e.Opens)
}

func TestRescheduleRetryBackoff(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	base := time.Minute
	max := 10 * time.Minute

	e := &Enrollment{Status: EnrollmentActive}
	wantDelays := []time.Duration{
		time.Minute,      // attempt 0
		2 * time.Minute,  // attempt 1
		4 * time.Minute,  // attempt 2
		8 * time.Minute,  // attempt 3
		10 * time.Minute, // attempt 4, capped
		10 * time.Minute, // attempt 5, capped
	}
	for i, want := range wantDelays {
		e.RescheduleRetry(now, base, max)
		require.Equal(t, now.Add(want), *e.NextScheduledAt, "attempt %d", i)
		require.Equal(t, i+1, e.RetryCount)
	}
}

func TestRecordEngagement(t *testing.T) {
	now := time.Now()
	e := &Enrollment{Status: EnrollmentActive}

	e.RecordEngagement(ActivityEmailOpened, now)
	e.RecordEngagement(ActivityWhatsAppRead, now)
	e.RecordEngagement(ActivityEmailClicked, now)
	e.RecordEngagement(ActivityLinkClicked, now)
	e.RecordEngagement(ActivitySMSReplied, now)
	e.RecordEngagement(ActivityDealWon, now)
	e.RecordEngagement(ActivityCallInitiated, now)
	e.RecordEngagement(ActivityCallCompleted, now)
	e.RecordEngagement(ActivityVoicemailLeft, now)

	require.Equal(t, 2, e.Opens)
	require.Equal(t, 2, e.Clicks)
	require.Equal(t, 1, e.Replies)
	require.Equal(t, 1, e.Conversions)
	require.Equal(t, 1, e.CallsInitiated)
	require.Equal(t, 1, e.CallsCompleted)
	require.Equal(t, 1, e.VoicemailsLeft)
	require.NotNil(t, e.LastInteractionAt)

	// Non-engagement types leave everything untouched.
	before := *e
	e.RecordEngagement(ActivityEmailSent, now.Add(time.Hour))
	require.Equal(t, before, *e)
}
