// internal/app/system/tasks/job.go
package tasks

import (
	"context"
	"time"
)

// Job is a unit of background work run by a workers.Runner.
//
// A job either repeats every Interval or, when Schedule is set, runs at the
// instants Schedule returns.
type Job struct {
	Name     string
	Interval time.Duration
	Schedule func(now time.Time) time.Time
	// Timeout bounds a single run. Zero means no per-run deadline.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Next returns the next instant the job should run after now.
func (j Job) Next(now time.Time) time.Time {
	if j.Schedule != nil {
		return j.Schedule(now)
	}
	return now.Add(j.Interval)
}

// FirstOfNextMonth returns midnight UTC on the first day of the month after
// now. Used as a monthly Schedule.
func FirstOfNextMonth(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
