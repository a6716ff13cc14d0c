package Planner

import (
	"context"
	"fmt"

	"Meridian/Models"
	"Meridian/Store"
)

// DraftSources are the three places a new draft can be seeded from. They are
// offered side by side; the user picks what to merge.
type DraftSources struct {
	PriorPlanID        uint      `json:"prior_plan_id,omitempty"`
	PriorDate          string    `json:"prior_date,omitempty"`
	PriorTasks         []Planned `json:"prior_tasks"`
	OpenPlanID         uint      `json:"open_plan_id,omitempty"`
	RolloverCandidates []Planned `json:"rollover_candidates"`
	CommonTasks        []Planned `json:"common_tasks"`
}

// ComposeDraftFromPrior gathers the user's latest submitted plan, the
// unfinished work of today's open plan and the user's common tasks. It
// writes nothing.
func (e *Engine) ComposeDraftFromPrior(ctx context.Context, userID uint) (*DraftSources, error) {
	out := &DraftSources{
		PriorTasks:         []Planned{},
		RolloverCandidates: []Planned{},
		CommonTasks:        []Planned{},
	}

	prior, err := e.findOne(ctx, Store.Query{
		Where: map[string]interface{}{"user_id": userID, "status": string(Models.PlanStatusEODSubmitted)},
		Order: "date DESC, updated_at DESC",
	})
	if err != nil {
		return nil, fmt.Errorf("latest submitted plan: %w", err)
	}
	if prior != nil {
		out.PriorPlanID = prior.ID
		out.PriorDate = prior.Date
		out.PriorTasks = PriorTasks(prior)
	}

	open, err := e.findOne(ctx, Store.Query{
		Where: map[string]interface{}{
			"user_id": userID,
			"date":    e.Today(),
			"status":  string(Models.PlanStatusNotStarted),
		},
		Order: "updated_at DESC",
	})
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	if open != nil {
		out.OpenPlanID = open.ID
		out.RolloverCandidates = GetRolloverCandidates(open)
	}

	common, err := e.store.FindTasks(ctx, Store.Query{
		Where: map[string]interface{}{"created_by": userID, "is_common": true},
		Order: "title ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("common tasks: %w", err)
	}
	for _, t := range common {
		out.CommonTasks = append(out.CommonTasks, CommonTask(t))
	}
	return out, nil
}

// PriorTasks is what a submitted plan offers to the next draft: its
// completed, added and rolled over tasks without repeated titles, or its
// morning tasks when the closeout lists are empty.
func PriorTasks(plan *Models.DailyPlan) []Planned {
	if !plan.HasEODBreakdown() {
		return PlannedFromRecords(plan.MorningTasks)
	}
	seen := map[string]bool{}
	out := make([]Planned, 0)
	for _, list := range [][]Models.TaskEntry{plan.EODTasksCompleted, plan.EODTasksAdded, plan.RolledOverTasks} {
		for _, rec := range list {
			key := titleKey(rec.Title)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Planned{Task: TaskFromRecord(rec)})
		}
	}
	return out
}

// CommonTask turns a common task template into a plan entry pointing back at it.
func CommonTask(t Models.Task) Planned {
	id := t.ID
	return Planned{Task: Task{
		Title:            t.Title,
		Department:       t.Department,
		Priority:         t.Priority,
		SourceTaskID:     &id,
		LinkedObjectType: t.LinkedObjectType,
		LinkedObjectID:   t.LinkedObjectID,
		CreatedFrom:      Models.CreatedFromCommon,
	}}
}
