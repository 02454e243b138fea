package schedule

import (
	"time"

	"github.com/webpiratt/swapd/internal/types"
)

// NextExecution advances a schedule's next execution time by one period,
// anchored to the previous NextExecution rather than the current time so
// the cadence never drifts.
//
// daily: exactly 24h later. weekly: 7 days later, then adjusted onto the
// configured weekday if one is set. monthly: same wall-clock time on the
// configured day of the next month, clamped for short months.
func NextExecution(s types.DCASchedule) time.Time {
	prev := s.NextExecution

	switch s.Frequency {
	case types.FrequencyDaily:
		return prev.Add(24 * time.Hour)

	case types.FrequencyWeekly:
		next := prev.AddDate(0, 0, 7)
		if s.DayOfWeek != nil {
			next = alignWeekday(next, *s.DayOfWeek)
		}
		return next

	case types.FrequencyMonthly:
		day := prev.Day()
		if s.DayOfMonth != nil {
			day = *s.DayOfMonth
		}
		year, month := prev.Year(), prev.Month()+1
		if month > time.December {
			month = time.January
			year++
		}
		day = clampDay(year, month, day)
		return time.Date(year, month, day, prev.Hour(), prev.Minute(), prev.Second(), 0, prev.Location())
	}

	// Unknown frequency: keep the period at one day rather than stalling.
	return prev.Add(24 * time.Hour)
}

// alignWeekday shifts t forward or back by up to three days to land on the
// wanted weekday, preserving the wall-clock time.
func alignWeekday(t time.Time, want time.Weekday) time.Time {
	diff := int(want) - int(t.Weekday())
	if diff > 3 {
		diff -= 7
	}
	if diff < -3 {
		diff += 7
	}
	return t.AddDate(0, 0, diff)
}

// clampDay caps the requested day of month to the month's actual length.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// InitialExecution picks a schedule's first run. daily: one period from
// now. weekly: the next occurrence of the configured weekday at the same
// wall-clock time. monthly: the configured day in this month if still
// ahead, otherwise next month.
func InitialExecution(s types.DCASchedule, now time.Time) time.Time {
	switch s.Frequency {
	case types.FrequencyDaily:
		return now.Add(24 * time.Hour)

	case types.FrequencyWeekly:
		if s.DayOfWeek == nil {
			return now.AddDate(0, 0, 7)
		}
		diff := (int(*s.DayOfWeek) - int(now.Weekday()) + 7) % 7
		if diff == 0 {
			diff = 7
		}
		return now.AddDate(0, 0, diff)

	case types.FrequencyMonthly:
		day := now.Day()
		if s.DayOfMonth != nil {
			day = *s.DayOfMonth
		}
		candidate := time.Date(now.Year(), now.Month(), clampDay(now.Year(), now.Month(), day),
			now.Hour(), now.Minute(), now.Second(), 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
		year, month := now.Year(), now.Month()+1
		if month > time.December {
			month = time.January
			year++
		}
		return time.Date(year, month, clampDay(year, month, day),
			now.Hour(), now.Minute(), now.Second(), 0, now.Location())
	}

	return now.Add(24 * time.Hour)
}
