package Planner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Meridian/Models"
)

func morningPlan(titles ...string) *Models.DailyPlan {
	plan := &Models.DailyPlan{UserID: 1, Date: "2024-05-01", Status: Models.PlanStatusNotStarted}
	for _, title := range titles {
		plan.MorningTasks = append(plan.MorningTasks, Models.TaskEntry{Title: title, CreatedFrom: Models.CreatedFromManual})
	}
	return plan
}

func titles[E Entry](entries []E) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Base().Title)
	}
	return out
}

func TestCloseoutGate(t *testing.T) {
	c := NewCloseout(morningPlan("A", "B", "C"))

	require.NoError(t, c.MarkCompleted(0))
	require.NoError(t, c.MarkRollover(1, "waiting_on_client", ""))
	assert.False(t, c.CanSubmit(), "C is unclassified")

	require.NoError(t, c.MarkRollover(2, ReasonOther, ""))
	assert.False(t, c.CanSubmit(), "other needs notes")
	assert.Equal(t, []Blocker{{Index: 2, Title: "C", Cause: CauseNotesRequired}}, c.Blockers())

	require.NoError(t, c.MarkRollover(2, ReasonOther, "   "))
	assert.False(t, c.CanSubmit(), "whitespace is not a note")

	require.NoError(t, c.MarkRollover(2, ReasonOther, "client rescheduled"))
	assert.True(t, c.CanSubmit())
	assert.Empty(t, c.Blockers())

	at := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)
	part, err := c.Partition(at)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, titles(part.Completed))
	assert.Equal(t, []string{"B", "C"}, titles(part.RolledOver))
	assert.Equal(t, "waiting_on_client", part.RolledOver[0].Reason)
	assert.Equal(t, "client rescheduled", part.RolledOver[1].Notes)
	assert.Equal(t, at, part.Completed[0].At)
}

// TestCloseoutEveryCombination walks every mix of verdicts over up to three
// morning tasks and checks the gate and the partition against each other.
func TestCloseoutEveryCombination(t *testing.T) {
	type verdict struct {
		name  string
		apply func(c *Closeout, i int) error
		ready bool
	}
	verdicts := []verdict{
		{"unclassified", func(*Closeout, int) error { return nil }, false},
		{"completed", func(c *Closeout, i int) error { return c.MarkCompleted(i) }, true},
		{"rollover", func(c *Closeout, i int) error { return c.MarkRollover(i, "waiting_on_client", "") }, true},
		{"other", func(c *Closeout, i int) error { return c.MarkRollover(i, ReasonOther, "") }, false},
		{"other+notes", func(c *Closeout, i int) error { return c.MarkRollover(i, ReasonOther, "client away") }, true},
	}
	at := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)
	all := []string{"A", "B", "C"}

	for n := 0; n <= len(all); n++ {
		combos := 1
		for i := 0; i < n; i++ {
			combos *= len(verdicts)
		}
		for combo := 0; combo < combos; combo++ {
			c := NewCloseout(morningPlan(all[:n]...))
			var names []string
			ready, completed, rolled := true, 0, 0
			for i, code := 0, combo; i < n; i, code = i+1, code/len(verdicts) {
				v := verdicts[code%len(verdicts)]
				require.NoError(t, v.apply(c, i))
				names = append(names, v.name)
				ready = ready && v.ready
				switch v.name {
				case "completed":
					completed++
				case "rollover", "other", "other+notes":
					rolled++
				}
			}

			assert.Equal(t, ready, c.CanSubmit(), "%v", names)
			part, err := c.Partition(at)
			if !ready {
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr, "%v", names)
				assert.NotEmpty(t, c.Blockers(), "%v", names)
				continue
			}
			require.NoError(t, err, "%v", names)
			assert.Empty(t, c.Blockers(), "%v", names)
			assert.Len(t, part.Completed, completed, "%v", names)
			assert.Len(t, part.RolledOver, rolled, "%v", names)
			assert.Equal(t, n, len(part.Completed)+len(part.RolledOver), "%v", names)
		}
	}
}

func TestCloseoutClassificationIsExclusive(t *testing.T) {
	c := NewCloseout(morningPlan("A"))

	require.NoError(t, c.MarkRollover(0, "blocked", "vendor"))
	require.NoError(t, c.MarkCompleted(0))
	assert.Equal(t, Classification{Disposition: MarkedCompleted}, c.Classification(0))

	require.NoError(t, c.MarkRollover(0, "blocked", ""))
	assert.Equal(t, MarkedRollover, c.Classification(0).Disposition)

	part, err := c.Partition(time.Now())
	require.NoError(t, err)
	assert.Empty(t, part.Completed)
	assert.Len(t, part.RolledOver, 1)

	require.NoError(t, c.MarkRollover(0, ReasonOther, ""))
	assert.False(t, c.CanSubmit())
}

func TestCloseoutRolloverWithoutReasonPasses(t *testing.T) {
	c := NewCloseout(morningPlan("A"))
	require.NoError(t, c.MarkRollover(0, "", ""))
	assert.True(t, c.CanSubmit())
}

func TestCloseoutPartitionBlocked(t *testing.T) {
	c := NewCloseout(morningPlan("A", "B"))
	require.NoError(t, c.MarkCompleted(1))

	_, err := c.Partition(time.Now())
	require.ErrorIs(t, err, ErrValidationBlocked)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []Blocker{{Index: 0, Title: "A", Cause: CauseUnclassified}}, verr.Blockers)
}

func TestCloseoutEmptyPlanCanSubmit(t *testing.T) {
	c := NewCloseout(morningPlan())
	assert.True(t, c.CanSubmit())
}

func TestCloseoutIndexOutOfRange(t *testing.T) {
	c := NewCloseout(morningPlan("A"))
	assert.ErrorIs(t, c.MarkCompleted(1), ErrTaskIndex)
	assert.ErrorIs(t, c.MarkRollover(-1, "x", ""), ErrTaskIndex)
}

func TestCloseoutAdHoc(t *testing.T) {
	c := NewCloseout(morningPlan("A"))
	require.NoError(t, c.MarkCompleted(0))
	assert.ErrorIs(t, c.AddAdHoc(Task{Title: " "}), ErrEmptyTitle)
	require.NoError(t, c.AddAdHoc(Task{Title: "Urgent fix", CreatedFrom: Models.CreatedFromManual}))

	part, err := c.Partition(time.Now())
	require.NoError(t, err)
	require.Len(t, part.AdHoc, 1)

	done := part.CompletedRecords()
	require.Len(t, done, 2)
	assert.Equal(t, "A", done[0].Title)
	assert.Equal(t, "Urgent fix", done[1].Title)
	assert.Equal(t, Models.CreatedFromAdHoc, done[1].CreatedFrom)
	assert.True(t, done[1].CompletedToday)
	require.NotNil(t, done[1].CompletionTime)
}

func TestEntryRecordRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	id := uint(4)
	base := Task{Title: "Quote", SourceTaskID: &id, CreatedFrom: Models.CreatedFromCommon}

	for _, e := range []Entry{
		Planned{Task: base},
		Completed{Task: base, At: at},
		RolledOver{Task: base, Reason: ReasonOther, Notes: "later"},
		AdHoc{Task: Task{Title: "Walk-in", CreatedFrom: Models.CreatedFromAdHoc}, At: at},
	} {
		assert.Equal(t, e, EntryFromRecord(e.Record()))
	}

	rec := Completed{Task: base, At: at}.Record()
	*rec.SourceTaskID = 99
	assert.Equal(t, uint(4), id, "records do not share the source id")
}
