package api

import (
	"fmt"
	"time"
)

// ScheduleUnit is the time unit of a recurring schedule.
type ScheduleUnit string

const (
	UnitMinutes ScheduleUnit = "minutes"
	UnitHours   ScheduleUnit = "hours"
	UnitDays    ScheduleUnit = "days"
)

// FireOnce is the sentinel interval meaning "fire once, immediately, and do
// not reschedule".
const FireOnce = -1

// Duration returns the wall-clock length of one interval in this unit.
func (u ScheduleUnit) Duration() (time.Duration, error) {
	switch u {
	case UnitMinutes:
		return time.Minute, nil
	case UnitHours:
		return time.Hour, nil
	case UnitDays:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: unknown schedule unit %q", ErrValidation, u)
	}
}

// ScheduleEntry pairs a starter task template with its recurrence. NextFireAt
// is the sort key in the schedule store.
type ScheduleEntry struct {
	ID          string       `json:"id"`
	Task        Task         `json:"task"`
	Unit        ScheduleUnit `json:"schedule_unit"`
	Interval    int          `json:"interval"`
	LastFiredAt *time.Time   `json:"last_fired_at,omitempty"`
	NextFireAt  time.Time    `json:"next_fire_at"`
}

// NextAfter computes the entry's next firing time from the given firing
// instant. Computing from the firing time rather than the previous NextFireAt
// keeps the cadence from accumulating wall-clock drift.
func (e *ScheduleEntry) NextAfter(fired time.Time) (time.Time, error) {
	step, err := e.Unit.Duration()
	if err != nil {
		return time.Time{}, err
	}
	n := e.Interval
	if n == FireOnce {
		n = 0
	}
	return fired.Add(time.Duration(n) * step), nil
}

// Validate checks the entry's schedule fields and task template.
func (e *ScheduleEntry) Validate() error {
	if _, err := e.Unit.Duration(); err != nil {
		return err
	}
	if e.Interval < 0 && e.Interval != FireOnce {
		return fmt.Errorf("%w: interval must be >= 0 or %d", ErrValidation, FireOnce)
	}
	if !e.Task.Starter {
		return fmt.Errorf("%w: scheduled task must be a starter", ErrValidation)
	}
	return e.Task.Validate()
}

// ScheduleStatus is the observable state of a schedule entry.
type ScheduleStatus struct {
	LastFiredAt *time.Time   `json:"last_fired_at"`
	NextFireAt  time.Time    `json:"next_fire_at"`
	Unit        ScheduleUnit `json:"schedule_unit"`
	Interval    int          `json:"interval"`
}
