package tasks

import (
	"testing"
	"time"
)

func TestFirstOfNextMonth(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"mid month", time.Date(2024, 3, 15, 13, 4, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"exactly first", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"december rolls year", time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"non-UTC input", time.Date(2024, 1, 31, 23, 0, 0, 0, time.FixedZone("EST", -5*3600)), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstOfNextMonth(tt.now); !got.Equal(tt.want) {
				t.Errorf("FirstOfNextMonth(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestJobNext_Interval(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	j := Job{Interval: time.Hour}
	if got := j.Next(now); !got.Equal(now.Add(time.Hour)) {
		t.Errorf("Next = %v", got)
	}
}

func TestRetentionCutoff(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		months int
		want   time.Time
	}{
		{"first of month", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 1, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"month end", time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), 1, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"leap day", time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC), 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"across year", time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC), 1, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)},
		{"three months", time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC), 3, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"non-UTC input", time.Date(2026, 4, 1, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)), 1, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"months below one", time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), 0, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RetentionCutoff(tt.now, tt.months); !got.Equal(tt.want) {
				t.Errorf("RetentionCutoff(%v, %d) = %v, want %v", tt.now, tt.months, got, tt.want)
			}
		})
	}
}
