package Planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Meridian/Models"
)

func TestRolloverCandidates(t *testing.T) {
	plan := morningPlan("A", "B", "C")
	plan.MorningTasks[0].CompletedToday = true
	plan.MorningTasks[2].RolloverToTomorrow = true

	got := GetRolloverCandidates(plan)
	assert.Equal(t, []string{"B", "C"}, titles(got))
	for _, c := range got {
		assert.Equal(t, Models.CreatedFromRolledOver, c.CreatedFrom)
		assert.False(t, c.Record().RolloverToTomorrow)
	}
	assert.Equal(t, Models.CreatedFromManual, plan.MorningTasks[1].CreatedFrom, "source plan untouched")

	assert.Empty(t, GetRolloverCandidates(nil))
}

func TestAddRolloverCandidatesTwiceAddsNothing(t *testing.T) {
	plan := morningPlan("Call bank", "Send invoice")
	d := NewDraft(Owner{ID: 1}, "2024-05-02")
	require.NoError(t, d.Add(Task{Title: "send invoice "}))

	assert.Equal(t, 1, d.AddRolloverCandidates(GetRolloverCandidates(plan)))
	assert.Equal(t, 0, d.AddRolloverCandidates(GetRolloverCandidates(plan)))
	assert.Equal(t, []string{"send invoice", "Call bank"}, titles(d.Tasks()))
	assert.Equal(t, Models.CreatedFromManual, d.Tasks()[0].CreatedFrom)
	assert.Equal(t, Models.CreatedFromRolledOver, d.Tasks()[1].CreatedFrom)
}

func TestDraftEditing(t *testing.T) {
	d := NewDraft(Owner{ID: 1}, "2024-05-02")
	assert.ErrorIs(t, d.Add(Task{Title: ""}), ErrEmptyTitle)
	for _, title := range []string{"A", "B", "C"} {
		require.NoError(t, d.Add(Task{Title: title}))
	}

	require.NoError(t, d.Move(2, 0))
	assert.Equal(t, []string{"C", "A", "B"}, titles(d.Tasks()))
	require.NoError(t, d.Move(0, 2))
	assert.Equal(t, []string{"A", "B", "C"}, titles(d.Tasks()))

	require.NoError(t, d.Remove(1))
	assert.Equal(t, []string{"A", "C"}, titles(d.Tasks()))
	assert.ErrorIs(t, d.Remove(5), ErrTaskIndex)
	assert.ErrorIs(t, d.Move(0, 2), ErrTaskIndex)
}

func TestDraftMergeSources(t *testing.T) {
	d := NewDraft(Owner{ID: 1}, "2024-05-02")
	prior := []Planned{{Task: Task{Title: "Report"}}, {Task: Task{Title: "Calls"}}}
	assert.Equal(t, 2, d.CopyFromPrior(prior))

	weekly := CommonTask(Models.Task{Title: "Report"})
	standup := CommonTask(Models.Task{Title: "Standup"})
	assert.Equal(t, 1, d.AddCommon(weekly, standup))

	got := d.Tasks()
	assert.Equal(t, []string{"Report", "Calls", "Standup"}, titles(got))
	assert.Equal(t, Models.CreatedFromCopied, got[0].CreatedFrom)
	assert.Equal(t, Models.CreatedFromCommon, got[2].CreatedFrom)
	require.NotNil(t, got[2].SourceTaskID)
}

func TestPriorTasks(t *testing.T) {
	plan := &Models.DailyPlan{
		Status:            Models.PlanStatusEODSubmitted,
		MorningTasks:      []Models.TaskEntry{{Title: "A"}, {Title: "B"}},
		EODTasksCompleted: []Models.TaskEntry{{Title: "A"}, {Title: "Fix"}},
		EODTasksAdded:     []Models.TaskEntry{{Title: "Fix"}},
		RolledOverTasks:   []Models.TaskEntry{{Title: "B"}, {Title: "a"}},
	}
	assert.Equal(t, []string{"A", "Fix", "B"}, titles(PriorTasks(plan)))

	plan.EODTasksCompleted, plan.EODTasksAdded, plan.RolledOverTasks = nil, nil, nil
	assert.Equal(t, []string{"A", "B"}, titles(PriorTasks(plan)))
}
