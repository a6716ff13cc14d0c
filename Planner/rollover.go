package Planner

import "Meridian/Models"

// GetRolloverCandidates returns the morning tasks of plan not yet marked
// completed, as planned tasks sourced from a rollover. It never touches the
// store and does not dedupe; Draft.AddRolloverCandidates does that.
func GetRolloverCandidates(plan *Models.DailyPlan) []Planned {
	out := make([]Planned, 0)
	if plan == nil {
		return out
	}
	for _, e := range plan.MorningTasks {
		if e.CompletedToday {
			continue
		}
		t := TaskFromRecord(e)
		t.CreatedFrom = Models.CreatedFromRolledOver
		out = append(out, Planned{Task: t})
	}
	return out
}

// RolledOverSnapshot reads the rolled_over_tasks frozen on a submitted plan.
func RolledOverSnapshot(plan *Models.DailyPlan) []RolledOver {
	out := make([]RolledOver, 0)
	if plan == nil {
		return out
	}
	for _, e := range plan.RolledOverTasks {
		out = append(out, RolledOver{
			Task:   TaskFromRecord(e),
			Reason: e.RolloverReason,
			Notes:  e.RolloverNotes,
		})
	}
	return out
}
