package domain

import "time"

// EnrollmentStatus is the state of one (campaign, contact) pairing.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentOptedOut  EnrollmentStatus = "opted_out"
	EnrollmentBounced   EnrollmentStatus = "bounced"
	EnrollmentFailed    EnrollmentStatus = "failed"
	EnrollmentPaused    EnrollmentStatus = "paused"
)

// Terminal reports whether s is final for the campaign. Only a campaign-level
// relaunch resets terminal enrollments.
func (s EnrollmentStatus) Terminal() bool {
	switch s {
	case EnrollmentCompleted, EnrollmentOptedOut, EnrollmentBounced, EnrollmentFailed:
		return true
	}
	return false
}

// Enrollment tracks one contact's progress through a campaign sequence.
// It is mutated only through the transition methods below and by the queue
// processor's claim/reschedule discipline.
type Enrollment struct {
	ID         int64
	CampaignID int64
	ContactID  int64
	LeadID     *int64

	Status           EnrollmentStatus
	CurrentStep      int // 0-based; number of steps already dispatched
	CurrentMessageID *int64
	NextScheduledAt  *time.Time
	// ClaimedAt marks the row as held by a processor cycle. A claim older
	// than the lease is treated as orphaned and the row becomes claimable
	// again.
	ClaimedAt  *time.Time
	RetryCount int

	EnrolledAt        time.Time
	LastInteractionAt *time.Time
	CompletedAt       *time.Time
	OptedOutAt        *time.Time
	OptOutReason      string

	Opens       int
	Clicks      int
	Replies     int
	Conversions int

	CallsInitiated    int
	CallsCompleted    int
	TotalCallDuration int // seconds
	VoicemailsLeft    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *Enrollment) invalid(to EnrollmentStatus) error {
	return &InvalidTransitionError{Entity: "enrollment", From: string(e.Status), To: string(to)}
}

// Activate moves a pending enrollment into the active state and schedules the
// first step from the given reference time.
func (e *Enrollment) Activate(first *CampaignMessage, from time.Time) error {
	if e.Status != EnrollmentPending {
		return e.invalid(EnrollmentActive)
	}
	e.Status = EnrollmentActive
	next := NextSendTime(from, first)
	e.NextScheduledAt = &next
	return nil
}

// Advance records a successful dispatch of sent and schedules the following
// step. A nil next message completes the sequence.
func (e *Enrollment) Advance(sent *CampaignMessage, next *CampaignMessage, now time.Time) error {
	if e.Status != EnrollmentActive {
		if next == nil {
			return e.invalid(EnrollmentCompleted)
		}
		return e.invalid(EnrollmentActive)
	}
	e.CurrentStep++
	e.CurrentMessageID = &sent.ID
	e.LastInteractionAt = &now
	e.RetryCount = 0
	e.ClaimedAt = nil
	if next == nil {
		e.Status = EnrollmentCompleted
		e.CompletedAt = &now
		e.NextScheduledAt = nil
		return nil
	}
	t := NextSendTime(now, next)
	e.NextScheduledAt = &t
	return nil
}

// CompleteSequence finishes an active enrollment that has no remaining steps.
func (e *Enrollment) CompleteSequence(now time.Time) error {
	if e.Status != EnrollmentActive {
		return e.invalid(EnrollmentCompleted)
	}
	e.Status = EnrollmentCompleted
	e.CompletedAt = &now
	e.NextScheduledAt = nil
	e.ClaimedAt = nil
	return nil
}

// Fail terminates the enrollment after a permanent dispatch failure.
func (e *Enrollment) Fail() error {
	if e.Status.Terminal() {
		return e.invalid(EnrollmentFailed)
	}
	e.Status = EnrollmentFailed
	e.NextScheduledAt = nil
	e.ClaimedAt = nil
	return nil
}

// MarkBounced terminates the enrollment after a provider bounce signal.
func (e *Enrollment) MarkBounced() error {
	if e.Status.Terminal() {
		return e.invalid(EnrollmentBounced)
	}
	e.Status = EnrollmentBounced
	e.NextScheduledAt = nil
	e.ClaimedAt = nil
	return nil
}

// OptOut unsubscribes the contact. Allowed from any non-terminal state,
// user- or provider-triggered.
func (e *Enrollment) OptOut(reason string, now time.Time) error {
	if e.Status.Terminal() {
		return e.invalid(EnrollmentOptedOut)
	}
	e.Status = EnrollmentOptedOut
	e.OptedOutAt = &now
	e.OptOutReason = reason
	e.NextScheduledAt = nil
	e.ClaimedAt = nil
	return nil
}

// Pause suspends an active enrollment, preserving its schedule so Resume can
// continue without recomputation.
func (e *Enrollment) Pause() error {
	if e.Status != EnrollmentActive {
		return e.invalid(EnrollmentPaused)
	}
	e.Status = EnrollmentPaused
	return nil
}

// Resume reactivates a paused enrollment.
func (e *Enrollment) Resume() error {
	if e.Status != EnrollmentPaused {
		return e.invalid(EnrollmentActive)
	}
	e.Status = EnrollmentActive
	return nil
}

// Reset returns the enrollment to its initial pending state. Used only by
// campaign relaunch.
func (e *Enrollment) Reset() {
	e.Status = EnrollmentPending
	e.CurrentStep = 0
	e.CurrentMessageID = nil
	e.NextScheduledAt = nil
	e.ClaimedAt = nil
	e.RetryCount = 0
	e.CompletedAt = nil
	e.OptedOutAt = nil
	e.OptOutReason = ""
}

// RescheduleRetry keeps the enrollment on its current step and schedules a
// retry with exponential backoff: base doubles per prior attempt, capped.
func (e *Enrollment) RescheduleRetry(now time.Time, base, max time.Duration) {
	delay := base << uint(e.RetryCount)
	if delay > max || delay <= 0 {
		delay = max
	}
	t := now.Add(delay)
	e.NextScheduledAt = &t
	e.ClaimedAt = nil
	e.RetryCount++
}

// RecordEngagement bumps the counter matching an engagement activity and
// refreshes last interaction time. Unknown types are ignored.
func (e *Enrollment) RecordEngagement(t ActivityType, now time.Time) {
	switch {
	case t.IsOpen():
		e.Opens++
	case t.IsClick():
		e.Clicks++
	case t.IsReply():
		e.Replies++
	case t.IsConversion():
		e.Conversions++
	case t == ActivityCallInitiated:
		e.CallsInitiated++
	case t == ActivityCallCompleted:
		e.CallsCompleted++
	case t == ActivityVoicemailLeft:
		e.VoicemailsLeft++
	default:
		return
	}
	e.LastInteractionAt = &now
}
