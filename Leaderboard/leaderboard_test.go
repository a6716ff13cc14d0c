package Leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Meridian/Models"
)

var points = map[string]int{"call": 1, "meeting": 3, "booking": 10}

func activity(user uint, name, kind string, at time.Time) Models.Activity {
	return Models.Activity{UserID: user, UserName: name, Kind: kind, OccurredAt: at}
}

func TestAggregate(t *testing.T) {
	day := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	acts := []Models.Activity{
		activity(1, "Alex", "call", day),
		activity(1, "Alex", "booking", day),
		activity(2, "Blair", "meeting", day),
		activity(2, "Blair", "meeting", day),
		activity(3, "Casey", "booking", day),
		activity(3, "Casey", "call", day),
		activity(4, "Drew", "unknown", day),
		// 02:00 UTC on May 2 is still May 1 in New York.
		activity(2, "Blair", "booking", time.Date(2024, 5, 2, 2, 0, 0, 0, time.UTC)),
		// Outside the window.
		activity(4, "Drew", "booking", time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC)),
	}

	got := Aggregate(acts, points, "2024-05-01", "2024-05-01")
	require.Len(t, got, 4)

	assert.Equal(t, "Blair", got[0].UserName)
	assert.Equal(t, 16, got[0].Points)
	assert.Equal(t, 1, got[0].Rank)

	assert.Equal(t, "Alex", got[1].UserName)
	assert.Equal(t, "Casey", got[2].UserName)
	assert.Equal(t, 11, got[1].Points)
	assert.Equal(t, 2, got[1].Rank)
	assert.Equal(t, 2, got[2].Rank)

	assert.Equal(t, "Drew", got[3].UserName)
	assert.Equal(t, 0, got[3].Points)
	assert.Equal(t, 1, got[3].Count)
	assert.Equal(t, 4, got[3].Rank)

	assert.Equal(t, map[string]int{"meeting": 2, "booking": 1}, got[0].ByKind)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil, points, "", ""))
}

func TestWindow(t *testing.T) {
	// Wednesday 2024-05-01, 23:30 in New York.
	at := time.Date(2024, 5, 2, 3, 30, 0, 0, time.UTC)

	from, to, err := Window(PeriodToday, at)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", from)
	assert.Equal(t, "2024-05-01", to)

	from, to, err = Window(PeriodWeek, at)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-29", from)
	assert.Equal(t, "2024-05-05", to)

	from, to, err = Window(PeriodMonth, at)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", from)
	assert.Equal(t, "2024-05-31", to)

	_, _, err = Window("year", at)
	assert.Error(t, err)
}
