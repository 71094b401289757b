package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestNextSendTimeDelayOnly(t *testing.T) {
	from := date(2026, time.January, 5, 10, 0) // Monday
	cases := []struct {
		amount int
		unit   DelayUnit
		want   time.Time
	}{
		{0, DelayDays, from},
		{30, DelayMinutes, from.Add(30 * time.Minute)},
		{4, DelayHours, from.Add(4 * time.Hour)},
		{2, DelayDays, from.Add(48 * time.Hour)},
		{1, DelayWeeks, from.Add(7 * 24 * time.Hour)},
	}
	for _, tc := range cases {
		msg := &CampaignMessage{DelayAmount: tc.amount, DelayUnit: tc.unit}
		require.Equal(t, tc.want, NextSendTime(from, msg))
	}
}

func TestNextSendTimeWindowClamp(t *testing.T) {
	msg := &CampaignMessage{SendWindowStart: "09:00", SendWindowEnd: "17:00"}

	// Before the window shifts to the same-day start.
	got := NextSendTime(date(2026, time.January, 5, 6, 30), msg)
	require.Equal(t, date(2026, time.January, 5, 9, 0), got)

	// After the window shifts to the next day's start.
	got = NextSendTime(date(2026, time.January, 5, 20, 0), msg)
	require.Equal(t, date(2026, time.January, 6, 9, 0), got)

	// Inside the window stays put.
	got = NextSendTime(date(2026, time.January, 5, 13, 15), msg)
	require.Equal(t, date(2026, time.January, 5, 13, 15), got)
}

func TestNextSendTimeWeekendStraddle(t *testing.T) {
	// Saturday evening send, one-day delay: lands Sunday evening, past the
	// window, shifts to Monday 09:00 which is already a weekday.
	msg := &CampaignMessage{
		DelayAmount:     1,
		DelayUnit:       DelayDays,
		SendWindowStart: "09:00",
		SendWindowEnd:   "17:00",
		WeekdaysOnly:    true,
	}
	got := NextSendTime(date(2026, time.January, 3, 20, 0), msg) // Saturday
	require.Equal(t, date(2026, time.January, 5, 9, 0), got)     // Monday

	// Two-day delay lands Monday evening, so the window pushes it to
	// Tuesday morning.
	msg.DelayAmount = 2
	got = NextSendTime(date(2026, time.January, 3, 20, 0), msg)
	require.Equal(t, date(2026, time.January, 6, 9, 0), got)
}

func TestNextSendTimeWeekdaysOnly(t *testing.T) {
	msg := &CampaignMessage{DelayAmount: 1, DelayUnit: DelayDays, WeekdaysOnly: true}
	// Friday + 1 day = Saturday, skipped to Monday at the same clock time.
	got := NextSendTime(date(2026, time.January, 2, 10, 0), msg)
	require.Equal(t, date(2026, time.January, 5, 10, 0), got)
}

func TestNextSendTimeMalformedWindowIgnored(t *testing.T) {
	from := date(2026, time.January, 5, 20, 0)
	cases := []CampaignMessage{
		{SendWindowStart: "9am", SendWindowEnd: "5pm"},
		{SendWindowStart: "09:00"},
		{SendWindowStart: "25:00", SendWindowEnd: "17:00"},
		{SendWindowStart: "09:61", SendWindowEnd: "17:00"},
	}
	for i := range cases {
		require.Equal(t, from, NextSendTime(from, &cases[i]))
	}
}

func TestNextSendTimeNeverBeforeFrom(t *testing.T) {
	from := date(2026, time.January, 5, 10, 0)
	msgs := []CampaignMessage{
		{},
		{DelayAmount: 3, DelayUnit: DelayHours},
		{DelayAmount: 1, DelayUnit: DelayDays, SendWindowStart: "09:00", SendWindowEnd: "17:00"},
		{DelayAmount: 1, DelayUnit: DelayDays, WeekdaysOnly: true},
	}
	for i := range msgs {
		got := NextSendTime(from, &msgs[i])
		require.False(t, got.Before(from), "next %v is before from %v", got, from)
	}
}
