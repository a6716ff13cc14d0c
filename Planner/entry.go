package Planner

import (
	"strings"
	"time"

	"Meridian/Models"
)

// Task holds what every plan entry carries regardless of its disposition.
type Task struct {
	Title            string `json:"title"`
	Department       string `json:"department"`
	Priority         string `json:"priority"`
	SourceTaskID     *uint  `json:"source_task_id,omitempty"`
	LinkedObjectType string `json:"linked_object_type,omitempty"`
	LinkedObjectID   string `json:"linked_object_id,omitempty"`
	CreatedFrom      string `json:"created_from"`
}

// Entry is one of Planned, Completed, RolledOver or AdHoc.
type Entry interface {
	Base() Task
	Record() Models.TaskEntry
}

// Planned is a task on a plan that has not been closed out.
type Planned struct {
	Task
}

// Completed is a planned task marked done at closeout.
type Completed struct {
	Task
	At time.Time
}

// RolledOver is a planned task carried to the next day with a reason.
type RolledOver struct {
	Task
	Reason string
	Notes  string
}

// AdHoc is unplanned work reported at closeout. It is always done.
type AdHoc struct {
	Task
	At time.Time
}

func (t Task) Base() Task { return t }

func (t Task) record() Models.TaskEntry {
	return Models.TaskEntry{
		Title:            t.Title,
		Department:       t.Department,
		Priority:         t.Priority,
		SourceTaskID:     copyID(t.SourceTaskID),
		LinkedObjectType: t.LinkedObjectType,
		LinkedObjectID:   t.LinkedObjectID,
		CreatedFrom:      t.CreatedFrom,
	}
}

func (p Planned) Record() Models.TaskEntry {
	return p.Task.record()
}

func (c Completed) Record() Models.TaskEntry {
	rec := c.Task.record()
	at := c.At
	rec.CompletedToday = true
	rec.CompletionTime = &at
	return rec
}

func (r RolledOver) Record() Models.TaskEntry {
	rec := r.Task.record()
	rec.RolloverToTomorrow = true
	rec.RolloverReason = r.Reason
	rec.RolloverNotes = r.Notes
	return rec
}

func (a AdHoc) Record() Models.TaskEntry {
	rec := a.Task.record()
	at := a.At
	rec.CreatedFrom = Models.CreatedFromAdHoc
	rec.CompletedToday = true
	rec.CompletionTime = &at
	return rec
}

// TaskFromRecord drops the disposition flags of a persisted entry.
func TaskFromRecord(e Models.TaskEntry) Task {
	return Task{
		Title:            e.Title,
		Department:       e.Department,
		Priority:         e.Priority,
		SourceTaskID:     copyID(e.SourceTaskID),
		LinkedObjectType: e.LinkedObjectType,
		LinkedObjectID:   e.LinkedObjectID,
		CreatedFrom:      e.CreatedFrom,
	}
}

// EntryFromRecord reads the disposition a persisted entry was stored with.
func EntryFromRecord(e Models.TaskEntry) Entry {
	t := TaskFromRecord(e)
	switch {
	case e.CompletedToday:
		var at time.Time
		if e.CompletionTime != nil {
			at = *e.CompletionTime
		}
		if e.CreatedFrom == Models.CreatedFromAdHoc {
			return AdHoc{Task: t, At: at}
		}
		return Completed{Task: t, At: at}
	case e.RolloverToTomorrow:
		return RolledOver{Task: t, Reason: e.RolloverReason, Notes: e.RolloverNotes}
	default:
		return Planned{Task: t}
	}
}

// Records converts entries to their persisted shape. The result is never nil.
func Records[E Entry](entries []E) []Models.TaskEntry {
	out := make([]Models.TaskEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record())
	}
	return out
}

// PlannedFromRecords reads persisted entries back as plain planned tasks.
func PlannedFromRecords(records []Models.TaskEntry) []Planned {
	out := make([]Planned, 0, len(records))
	for _, r := range records {
		out = append(out, Planned{Task: TaskFromRecord(r)})
	}
	return out
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
