package service

import (
	"time"
)

// TimeLeft is the tri-state remaining-time value for a session: unlimited
// (no duration and no end bound), n seconds left, or expired (0 seconds).
// Reusing 0 for "unlimited" would read as "time's up", so the unbounded case
// is explicit.
type TimeLeft struct {
	Unlimited bool
	Seconds   int64
}

// RemainingTime computes how long a session started at startedAt may still
// run at instant now. The tighter of the duration bound and the window end
// bound wins; with neither bound the result is unlimited. Seconds are floored
// and never negative.
func RemainingTime(now, startedAt time.Time, durationMinutes *int, endAt *time.Time) TimeLeft {
	var until time.Duration
	bounded := false

	if durationMinutes != nil && *durationMinutes > 0 {
		until = startedAt.Add(time.Duration(*durationMinutes) * time.Minute).Sub(now)
		bounded = true
	}
	if endAt != nil {
		byEnd := endAt.Sub(now)
		if !bounded || byEnd < until {
			until = byEnd
		}
		bounded = true
	}

	if !bounded {
		return TimeLeft{Unlimited: true}
	}

	secs := int64(until / time.Second)
	if secs < 0 {
		secs = 0
	}
	return TimeLeft{Seconds: secs}
}

// Expired reports whether the session's time is up. An unlimited session
// never expires.
func (t TimeLeft) Expired() bool {
	return !t.Unlimited && t.Seconds <= 0
}

// SecondsPtr returns the wire representation of the remaining time: nil for
// unlimited, otherwise a non-negative integer.
func (t TimeLeft) SecondsPtr() *int64 {
	if t.Unlimited {
		return nil
	}
	s := t.Seconds
	return &s
}
