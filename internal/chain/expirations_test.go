package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ymd(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeeklyExpirations_AllFridaysRolledPastHolidays(t *testing.T) {
	// Independence Day observed Friday July 4, 2025 rolls to Monday July 7.
	cal := NewHolidayCalendar([]time.Time{ymd(2025, 7, 4)})
	exps := WeeklyExpirations(ymd(2025, 6, 27), ymd(2025, 7, 11), cal)

	for _, e := range exps {
		assert.False(t, e.Equal(ymd(2025, 7, 4)), "holiday Friday must be rolled")
	}
	found := false
	for _, e := range exps {
		if e.Year() == 2025 && e.Month() == time.July && e.Day() == 7 {
			found = true
		}
	}
	assert.True(t, found, "expected holiday to roll to Monday July 7")
}

func TestMonthlyExpirations_ThirdFriday(t *testing.T) {
	exps := MonthlyExpirations(ymd(2025, 1, 1), ymd(2025, 3, 31), nil)
	assert.Len(t, exps, 3)
	// January 2025's third Friday is the 17th.
	assert.Equal(t, 17, exps[0].Day())
	assert.Equal(t, time.Friday, exps[0].Weekday())
}

func TestExpirationsInWindow_SortedAndDeduped(t *testing.T) {
	exps := ExpirationsInWindow(ymd(2025, 1, 2), 45, nil)
	for i := 1; i < len(exps); i++ {
		assert.True(t, exps[i].After(exps[i-1]) || exps[i].Equal(exps[i-1]))
	}
	seen := map[time.Time]bool{}
	for _, e := range exps {
		key := e.Truncate(24 * time.Hour)
		assert.False(t, seen[key], "duplicate expiration %v", e)
		seen[key] = true
	}
}

func TestExpirationsInWindow_NoneBeforeAsOf(t *testing.T) {
	asOf := ymd(2025, 3, 10)
	exps := ExpirationsInWindow(asOf, 30, nil)
	for _, e := range exps {
		assert.False(t, e.Before(asOf))
	}
}
