// Package Leaderboard turns logged activities into per-user point totals.
package Leaderboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"golang.org/x/exp/slices"

	"Meridian/BusinessTime"
	"Meridian/Models"
)

const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

type Standing struct {
	Rank     int            `json:"rank"`
	UserID   uint           `json:"user_id"`
	UserName string         `json:"user_name"`
	Points   int            `json:"points"`
	Count    int            `json:"count"`
	ByKind   map[string]int `json:"by_kind"`
}

// Aggregate sums points per user for activities whose business date falls
// inside [from, to]. Empty bounds are open. Kinds missing from points score
// nothing but still count. Standings are ordered by points, then name, and
// tied totals share a rank.
func Aggregate(activities []Models.Activity, points map[string]int, from, to string) []Standing {
	byUser := map[uint]*Standing{}
	order := []uint{}
	for _, a := range activities {
		if !BusinessTime.InRange(BusinessTime.ToBusinessDate(a.OccurredAt), from, to) {
			continue
		}
		s, ok := byUser[a.UserID]
		if !ok {
			s = &Standing{UserID: a.UserID, UserName: a.UserName, ByKind: map[string]int{}}
			byUser[a.UserID] = s
			order = append(order, a.UserID)
		}
		if s.UserName == "" {
			s.UserName = a.UserName
		}
		s.Points += points[a.Kind]
		s.Count++
		s.ByKind[a.Kind]++
	}

	out := make([]Standing, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	slices.SortStableFunc(out, func(a, b Standing) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		if c := strings.Compare(strings.ToLower(a.UserName), strings.ToLower(b.UserName)); c != 0 {
			return c
		}
		return int(a.UserID) - int(b.UserID)
	})
	for i := range out {
		if i > 0 && out[i].Points == out[i-1].Points {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

// Window returns the business-date bounds of period containing at. Weeks
// start on Monday.
func Window(period string, at time.Time) (from, to string, err error) {
	cfg := &now.Config{WeekStartDay: time.Monday, TimeLocation: BusinessTime.Location()}
	n := cfg.With(at.In(BusinessTime.Location()))
	switch period {
	case "", PeriodToday:
		today := BusinessTime.ToBusinessDate(at)
		return today, today, nil
	case PeriodWeek:
		return BusinessTime.ToBusinessDate(n.BeginningOfWeek()), BusinessTime.ToBusinessDate(n.EndOfWeek()), nil
	case PeriodMonth:
		return BusinessTime.ToBusinessDate(n.BeginningOfMonth()), BusinessTime.ToBusinessDate(n.EndOfMonth()), nil
	default:
		return "", "", fmt.Errorf("unknown leaderboard period %q", period)
	}
}
