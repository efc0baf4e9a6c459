// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	activitystore "github.com/dalemusser/animelist/internal/app/store/activity"
	"go.uber.org/zap"
)

// RetentionCutoff is the instant before which activities are purged: UTC
// midnight on the first of the current month, minus the given number of
// months. The result is always the first of a month.
func RetentionCutoff(now time.Time, months int) time.Time {
	if months < 1 {
		months = 1
	}
	y, m, _ := now.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -months, 0)
}

// ActivityRetentionJob creates the monthly job that deletes activities older
// than the retention window. Deleting by cutoff is idempotent: re-running it
// finds nothing further to remove.
func ActivityRetentionJob(store *activitystore.Store, logger *zap.Logger, months int, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:     "activity-retention",
		Schedule: FirstOfNextMonth,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			cutoff := RetentionCutoff(now(), months)
			count, err := store.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				return err
			}
			logger.Info("activity retention sweep complete",
				zap.Int64("deleted", count),
				zap.Time("cutoff", cutoff))
			return nil
		},
	}
}
