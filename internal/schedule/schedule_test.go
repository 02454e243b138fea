package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/webpiratt/swapd/internal/types"
)

func TestNextExecutionDailyNoDrift(t *testing.T) {
	// Anchored to the previous slot, not to "now": executing a 09:00 slot
	// at 09:05 still yields 09:00 tomorrow.
	prev := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := types.DCASchedule{Frequency: types.FrequencyDaily, NextExecution: prev}

	next := NextExecution(s)
	assert.Equal(t, prev.Add(24*time.Hour), next)
	assert.Equal(t, 9, next.Hour())
}

func TestNextExecutionWeeklySameWeekday(t *testing.T) {
	monday := time.Weekday(1)
	// Last Monday 09:00
	prev := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Monday, prev.Weekday())

	s := types.DCASchedule{Frequency: types.FrequencyWeekly, DayOfWeek: &monday, NextExecution: prev}
	next := NextExecution(s)

	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, prev.AddDate(0, 0, 7), next)
	assert.Equal(t, 9, next.Hour())
}

func TestNextExecutionMonthlyClampsShortMonths(t *testing.T) {
	day := 31
	prev := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	s := types.DCASchedule{Frequency: types.FrequencyMonthly, DayOfMonth: &day, NextExecution: prev}

	// Jan 31 -> Feb 28 (2026 is not a leap year)
	next := NextExecution(s)
	assert.Equal(t, time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC), next)

	// Feb 28 -> Mar 31: the configured day comes back once the month allows it
	s.NextExecution = next
	next = NextExecution(s)
	assert.Equal(t, time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), next)
}

func TestNextExecutionMonthlyDecemberRollsOver(t *testing.T) {
	day := 15
	prev := time.Date(2026, 12, 15, 8, 30, 0, 0, time.UTC)
	s := types.DCASchedule{Frequency: types.FrequencyMonthly, DayOfMonth: &day, NextExecution: prev}

	next := NextExecution(s)
	assert.Equal(t, time.Date(2027, 1, 15, 8, 30, 0, 0, time.UTC), next)
}

func TestInitialExecutionWeekly(t *testing.T) {
	friday := time.Friday
	// Wednesday
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	s := types.DCASchedule{Frequency: types.FrequencyWeekly, DayOfWeek: &friday}

	first := InitialExecution(s, now)
	assert.Equal(t, time.Friday, first.Weekday())
	assert.Equal(t, time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC), first)
}

func TestInitialExecutionWeeklySameDayPushesAWeek(t *testing.T) {
	wednesday := time.Wednesday
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	s := types.DCASchedule{Frequency: types.FrequencyWeekly, DayOfWeek: &wednesday}

	first := InitialExecution(s, now)
	assert.Equal(t, now.AddDate(0, 0, 7), first)
}

func TestInitialExecutionMonthly(t *testing.T) {
	day := 20
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	s := types.DCASchedule{Frequency: types.FrequencyMonthly, DayOfMonth: &day}

	first := InitialExecution(s, now)
	assert.Equal(t, time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC), first)

	// Day already passed this month
	day = 1
	first = InitialExecution(s, now)
	assert.Equal(t, time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), first)
}

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)

	s := types.DCASchedule{IsActive: true, NextExecution: now.Add(-5 * time.Minute)}
	assert.True(t, s.IsDue(now))

	s.NextExecution = now
	assert.True(t, s.IsDue(now))

	s.NextExecution = now.Add(time.Second)
	assert.False(t, s.IsDue(now))

	s.NextExecution = now.Add(-time.Hour)
	s.IsActive = false
	assert.False(t, s.IsDue(now))
}
