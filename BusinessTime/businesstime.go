// Package BusinessTime buckets instants into business days.
//
// The business day is the US Eastern calendar day regardless of where the
// server or the viewer is. Every "today", "tomorrow", overdue and leaderboard
// comparison goes through ToBusinessDate and the yyyy-MM-dd strings it returns;
// those strings sort lexicographically in calendar order.
package BusinessTime

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/jinzhu/now"
)

const (
	// Zone is the IANA name of the business timezone.
	Zone = "America/New_York"
	// DateLayout is the format of every business date string.
	DateLayout = "2006-01-02"
)

var location = mustLoadLocation(Zone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load business timezone %s: %v", name, err))
	}
	return loc
}

// Location returns the business timezone.
func Location() *time.Location {
	return location
}

// ToBusinessDate formats t as the business calendar date it falls on.
func ToBusinessDate(t time.Time) string {
	return t.In(location).Format(DateLayout)
}

// Today is ToBusinessDate under the name callers usually mean.
func Today(at time.Time) string {
	return ToBusinessDate(at)
}

// ParseDate returns midnight of date in the business timezone.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid business date %q: %w", date, err)
	}
	return t, nil
}

// ValidDate reports whether date is a well formed business date.
func ValidDate(date string) bool {
	_, err := ParseDate(date)
	return err == nil
}

// AddDays moves date by n calendar days. Calendar arithmetic is done on the
// wall clock so DST transitions never skip or repeat a day.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// NextDate returns the business date after date.
func NextDate(date string) (string, error) {
	return AddDays(date, 1)
}

// PrevDate returns the business date before date.
func PrevDate(date string) (string, error) {
	return AddDays(date, -1)
}

// Tomorrow returns the business date after the one at falls on.
func Tomorrow(at time.Time) string {
	return at.In(location).AddDate(0, 0, 1).Format(DateLayout)
}

// DayBounds returns the first and last instant of a business day.
func DayBounds(date string) (time.Time, time.Time, error) {
	t, err := ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day := now.With(t)
	return day.BeginningOfDay(), day.EndOfDay(), nil
}

// InRange reports whether date lies in [from, to]. An empty bound is open.
func InRange(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}

// IsOverdue reports whether a task due on dueDate is late at instant at.
// A task due today is not overdue yet.
func IsOverdue(dueDate string, at time.Time) bool {
	if dueDate == "" {
		return false
	}
	return dueDate < ToBusinessDate(at)
}
