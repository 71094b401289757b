package domain

import (
	"strconv"
	"strings"
	"time"
)

// NextSendTime computes when a message becomes eligible for dispatch,
// counting from the given reference time:
//
//  1. add the step's delay,
//  2. clamp into the send window when one is configured (before the window
//     shifts to its start the same day, after it shifts to the start of the
//     next day),
//  3. advance past weekends when the step is weekdays-only.
//
// Malformed window strings are ignored; the result is never before from.
func NextSendTime(from time.Time, msg *CampaignMessage) time.Time {
	next := from.Add(delayDuration(msg.DelayAmount, msg.DelayUnit))

	if startH, startM, ok := parseClock(msg.SendWindowStart); ok {
		if endH, endM, okEnd := parseClock(msg.SendWindowEnd); okEnd {
			tod := next.Hour()*60 + next.Minute()
			start := startH*60 + startM
			end := endH*60 + endM
			if tod < start {
				next = atClock(next, startH, startM)
			} else if tod > end {
				next = atClock(next.AddDate(0, 0, 1), startH, startM)
			}
		}
	}

	if msg.WeekdaysOnly {
		for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}

func delayDuration(amount int, unit DelayUnit) time.Duration {
	if amount <= 0 {
		return 0
	}
	switch unit {
	case DelayMinutes:
		return time.Duration(amount) * time.Minute
	case DelayHours:
		return time.Duration(amount) * time.Hour
	case DelayWeeks:
		return time.Duration(amount) * 7 * 24 * time.Hour
	default: // days
		return time.Duration(amount) * 24 * time.Hour
	}
}

// parseClock parses "HH:MM". Anything else reports ok=false.
func parseClock(s string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func atClock(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}
