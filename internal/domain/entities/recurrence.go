package entities

import "time"

// Frequency is the unit of a recurring notification's cadence
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// IsValid reports whether the frequency is one the scheduler can advance
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Recurring describes how a notification repeats.
// A zero Interval is treated as 1.
type Recurring struct {
	Enabled      bool       `json:"enabled"`
	Frequency    Frequency  `json:"frequency,omitempty"`
	Interval     int        `json:"interval,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	NextSendDate *time.Time `json:"nextSendDate,omitempty"`
}

// EffectiveInterval returns the interval, defaulting to 1
func (r Recurring) EffectiveInterval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// IsExpired reports whether the end date has passed
func (r Recurring) IsExpired(now time.Time) bool {
	return r.EndDate != nil && r.EndDate.Before(now)
}

// Clone returns a deep copy
func (r Recurring) Clone() Recurring {
	out := r
	out.EndDate = cloneTime(r.EndDate)
	out.NextSendDate = cloneTime(r.NextSendDate)
	return out
}

// NextOccurrence returns base advanced by one step of the cadence.
// Monthly steps use calendar arithmetic with overflow normalization, so
// Jan 31 plus one month lands on Mar 2 (or Mar 3 outside leap years).
// It returns false for an unrecognized frequency.
func NextOccurrence(base time.Time, freq Frequency, interval int) (time.Time, bool) {
	if interval < 1 {
		interval = 1
	}
	switch freq {
	case FrequencyDaily:
		return base.AddDate(0, 0, interval), true
	case FrequencyWeekly:
		return base.AddDate(0, 0, 7*interval), true
	case FrequencyMonthly:
		return base.AddDate(0, interval, 0), true
	default:
		return time.Time{}, false
	}
}

// NextOccurrenceAfter advances base by whole steps until the result is after now.
// Occurrences missed while the scheduler was down collapse into a single send.
func NextOccurrenceAfter(base time.Time, freq Frequency, interval int, now time.Time) (time.Time, bool) {
	next, ok := NextOccurrence(base, freq, interval)
	if !ok {
		return time.Time{}, false
	}
	for !next.After(now) {
		next, _ = NextOccurrence(next, freq, interval)
	}
	return next, true
}

// FirstOccurrence returns the first send time of a new recurring notification.
// A future scheduledFor is used as is; otherwise the cadence is stepped from
// scheduledFor (or now, when absent) to the first time after now.
func FirstOccurrence(scheduledFor *time.Time, freq Frequency, interval int, now time.Time) (time.Time, bool) {
	if !freq.IsValid() {
		return time.Time{}, false
	}
	if scheduledFor != nil && scheduledFor.After(now) {
		return *scheduledFor, true
	}
	base := now
	if scheduledFor != nil {
		base = *scheduledFor
	}
	return NextOccurrenceAfter(base, freq, interval, now)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
