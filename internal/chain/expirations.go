// Package chain generates synthetic SPY-style option chains from an
// underlying price/volatility series using the BSM pricing kernel.
package chain

import "time"

// HolidayCalendar reports whether a date is a US federal market holiday.
// Treated as injected data rather than a hard-coded table so different
// exchanges/calendars can be substituted
type HolidayCalendar interface {
	IsHoliday(d time.Time) bool
}

// dateSet is a HolidayCalendar backed by an explicit set of dates, each
// truncated to midnight UTC for comparison.
type dateSet map[time.Time]struct{}

// NewHolidayCalendar builds a HolidayCalendar from an explicit list of
// holiday dates (time-of-day is ignored).
func NewHolidayCalendar(dates []time.Time) HolidayCalendar {
	s := make(dateSet, len(dates))
	for _, d := range dates {
		s[d.Truncate(24*time.Hour)] = struct{}{}
	}
	return s
}

func (s dateSet) IsHoliday(d time.Time) bool {
	_, ok := s[d.Truncate(24*time.Hour)]
	return ok
}

// isWeekend reports whether d falls on a Saturday or Sunday.
func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// nextValidTradingDay rolls d forward until it is neither a weekend nor a
// holiday.
func nextValidTradingDay(d time.Time, cal HolidayCalendar) time.Time {
	for isWeekend(d) || (cal != nil && cal.IsHoliday(d)) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// thirdFriday returns the third Friday of the given month/year, at noon.
func thirdFriday(year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 12, 0, 0, 0, time.UTC)
	// days to add to reach the first Friday
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	firstFriday := first.AddDate(0, 0, offset)
	return firstFriday.AddDate(0, 0, 14)
}

// WeeklyExpirations returns every Friday between start and end (inclusive),
// rolled to the next valid trading day when it lands on a holiday, set to
// noon local market time.
func WeeklyExpirations(start, end time.Time, cal HolidayCalendar) []time.Time {
	var out []time.Time
	d := time.Date(start.Year(), start.Month(), start.Day(), 12, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	d = d.AddDate(0, 0, offset)

	for !d.After(end) {
		out = append(out, nextValidTradingDay(d, cal))
		d = d.AddDate(0, 0, 7)
	}
	return out
}

// MonthlyExpirations returns the third Friday of every month overlapping
// [start, end], rolled to the next valid trading day when it lands on a
// holiday.
func MonthlyExpirations(start, end time.Time, cal HolidayCalendar) []time.Time {
	var out []time.Time
	year, month := start.Year(), start.Month()

	for {
		tf := thirdFriday(year, month)
		if tf.After(end) {
			break
		}
		if !tf.Before(time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)) {
			out = append(out, nextValidTradingDay(tf, cal))
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return out
}

// ExpirationsInWindow returns the sorted, de-duplicated union of weekly and
// monthly expirations visible from asOf out to maxDTE calendar days ahead.
func ExpirationsInWindow(asOf time.Time, maxDTE int, cal HolidayCalendar) []time.Time {
	end := asOf.AddDate(0, 0, maxDTE)
	weekly := WeeklyExpirations(asOf, end, cal)
	monthly := MonthlyExpirations(asOf, end, cal)

	seen := make(map[time.Time]struct{}, len(weekly)+len(monthly))
	var out []time.Time
	for _, d := range append(weekly, monthly...) {
		key := d.Truncate(24 * time.Hour)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if !d.Before(asOf) {
			out = append(out, d)
		}
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Before(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
