// Package calendar holds civil-date helpers shared by the rotation engine.
//
// A civil day is represented as a time.Time at midnight in a fixed location.
// Arithmetic uses AddDate so daylight saving transitions never skip or repeat
// a day.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/normalize"
)

// DefaultLocationName is the zone used when no location is configured.
const DefaultLocationName = "America/Sao_Paulo"

// DateLayout is the ISO layout used for API and storage dates.
const DateLayout = "2006-01-02"

// BrazilianDateLayout is the layout used by bulk exchange files.
const BrazilianDateLayout = "02/01/2006"

var fallbackLocation = time.FixedZone("BRT", -3*60*60)

// DefaultLocation returns America/Sao_Paulo, or a fixed UTC-3 zone when the
// tz database is not available.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultLocationName)
	if err != nil {
		return fallbackLocation
	}
	return loc
}

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDate parses an ISO date in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid date %q: %w", value, err)
	}
	return parsed, nil
}

// FormatDate renders t as an ISO date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of calendar days from start to end. The
// result is negative when end precedes start.
func DaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}

// PeriodEnd returns the last day of a period of months starting at start.
func PeriodEnd(start time.Time, months int) time.Time {
	return start.AddDate(0, months, -1)
}

// StartOfMonth returns the first day of the month containing t.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last day of the month containing t.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// OrdinalInMonth returns which occurrence of its weekday t is within its
// month: 1 for days 1-7, 2 for days 8-14 and so on.
func OrdinalInMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// ParseClock validates an HH:MM time of day and returns it normalized.
func ParseClock(value string) (string, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("calendar: invalid time %q: %w", value, err)
	}
	return parsed.Format("15:04"), nil
}

var weekdayNamesPT = [...]string{
	time.Sunday:    "Domingo",
	time.Monday:    "Segunda-feira",
	time.Tuesday:   "Terça-feira",
	time.Wednesday: "Quarta-feira",
	time.Thursday:  "Quinta-feira",
	time.Friday:    "Sexta-feira",
	time.Saturday:  "Sábado",
}

// WeekdayPT returns the Brazilian Portuguese name of the weekday.
func WeekdayPT(day time.Weekday) string {
	if day < time.Sunday || day > time.Saturday {
		return ""
	}
	return weekdayNamesPT[day]
}

// ParseWeekday accepts 0-6, English names and Portuguese names with or
// without accents and the "-feira" suffix.
func ParseWeekday(value string) (time.Weekday, error) {
	key := normalize.NameKey(value)
	if n, err := strconv.Atoi(key); err == nil {
		if n >= 0 && n <= 6 {
			return time.Weekday(n), nil
		}
		return 0, fmt.Errorf("calendar: invalid weekday %q", value)
	}
	key = strings.TrimSuffix(key, "-feira")
	for day := time.Sunday; day <= time.Saturday; day++ {
		pt := strings.TrimSuffix(normalize.NameKey(weekdayNamesPT[day]), "-feira")
		if key == pt || key == strings.ToLower(day.String()) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("calendar: invalid weekday %q", value)
}
