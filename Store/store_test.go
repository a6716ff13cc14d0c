package Store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Meridian/Models"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := Models.OpenInMemory(t.Name())
	require.NoError(t, err)
	return New(db)
}

func TestPlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sourceID := uint(7)
	plan := &Models.DailyPlan{
		UserID:   1,
		UserName: "Dana",
		Date:     "2024-05-01",
		Status:   Models.PlanStatusDraft,
		MorningTasks: []Models.TaskEntry{
			{Title: "Call supplier", Priority: "high", CreatedFrom: Models.CreatedFromManual},
			{Title: "Review CVs", SourceTaskID: &sourceID, CreatedFrom: Models.CreatedFromCommon},
		},
	}
	require.NoError(t, s.CreatePlan(ctx, plan))
	require.NotZero(t, plan.ID)

	got, err := s.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, got.MorningTasks, 2)
	assert.Equal(t, "Call supplier", got.MorningTasks[0].Title)
	require.NotNil(t, got.MorningTasks[1].SourceTaskID)
	assert.Equal(t, uint(7), *got.MorningTasks[1].SourceTaskID)
	assert.Empty(t, got.RolledOverTasks)
}

func TestUpdateWritesOnlyNamedFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	plan := &Models.DailyPlan{UserID: 1, Date: "2024-05-01", Status: Models.PlanStatusDraft, NotesMorning: "keep me"}
	require.NoError(t, s.CreatePlan(ctx, plan))

	updated, err := s.UpdatePlan(ctx, plan.ID, &Models.DailyPlan{
		Status:       Models.PlanStatusNotStarted,
		NotesMorning: "ignored",
	}, "status")
	require.NoError(t, err)
	assert.Equal(t, Models.PlanStatusNotStarted, updated.Status)
	assert.Equal(t, "keep me", updated.NotesMorning)

	// Zero values are written when named.
	updated, err = s.UpdatePlan(ctx, plan.ID, &Models.DailyPlan{}, "notes_morning", "manager_visibility")
	require.NoError(t, err)
	assert.Equal(t, "", updated.NotesMorning)

	_, err = s.UpdatePlan(ctx, 9999, &Models.DailyPlan{}, "status")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.UpdatePlan(ctx, plan.ID, &Models.DailyPlan{})
	assert.Error(t, err)
}

func TestFindFilterSortPaginate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, date := range []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04"} {
		require.NoError(t, s.CreatePlan(ctx, &Models.DailyPlan{UserID: 1, Date: date, Status: Models.PlanStatusEODSubmitted}))
	}
	require.NoError(t, s.CreatePlan(ctx, &Models.DailyPlan{UserID: 2, Date: "2024-05-02", Status: Models.PlanStatusEODSubmitted}))
	require.NoError(t, s.CreatePlan(ctx, &Models.DailyPlan{UserID: 1, Date: "2024-05-05", Status: Models.PlanStatusDraft}))

	q := Query{
		Where:   map[string]interface{}{"user_id": 1, "status": string(Models.PlanStatusEODSubmitted)},
		Filters: []Filter{{Query: "date >= ?", Args: []interface{}{"2024-05-02"}}},
		Order:   "date DESC",
	}
	plans, err := s.FindPlans(ctx, q)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, "2024-05-04", plans[0].Date)
	assert.Equal(t, "2024-05-02", plans[2].Date)

	q.Limit, q.Offset = 1, 1
	plans, err = s.FindPlans(ctx, q)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "2024-05-03", plans[0].Date)

	n, err := s.Plans.Count(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDeleteIsSoft(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task := &Models.Task{Title: "Weekly report", IsCommon: true, CreatedBy: 1}
	require.NoError(t, s.Tasks.Create(ctx, task))
	require.NoError(t, s.Tasks.Delete(ctx, task.ID))

	_, err := s.Tasks.Get(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var raw Models.Task
	require.NoError(t, s.DB.Unscoped().First(&raw, task.ID).Error)
	assert.True(t, raw.DeletedAt.Valid)

	assert.ErrorIs(t, s.Tasks.Delete(ctx, task.ID), ErrNotFound)
}
