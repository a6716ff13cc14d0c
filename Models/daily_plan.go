package Models

import (
	"time"

	"gorm.io/gorm"
)

type PlanStatus string

const (
	PlanStatusDraft        PlanStatus = "draft"
	PlanStatusNotStarted   PlanStatus = "not_started"
	PlanStatusEODSubmitted PlanStatus = "eod_submitted"
)

// Where a task entry came from when it was put on a plan.
const (
	CreatedFromManual     = "manual"
	CreatedFromCopied     = "copied"
	CreatedFromRolledOver = "rolled_over"
	CreatedFromCommon     = "common"
	CreatedFromAdHoc      = "ad_hoc"
)

// TaskEntry is the persisted shape of a task on a plan. It is copied by value
// between the plan lists and carries no identity of its own.
type TaskEntry struct {
	Title              string     `json:"title"`
	Department         string     `json:"department"`
	Priority           string     `json:"priority"`
	CompletedToday     bool       `json:"completed_today"`
	RolloverToTomorrow bool       `json:"rollover_to_tomorrow"`
	RolloverReason     string     `json:"rollover_reason,omitempty"`
	RolloverNotes      string     `json:"rollover_notes,omitempty"`
	CompletionTime     *time.Time `json:"completion_time,omitempty"`
	SourceTaskID       *uint      `json:"source_task_id,omitempty"`
	LinkedObjectType   string     `json:"linked_object_type,omitempty"`
	LinkedObjectID     string     `json:"linked_object_id,omitempty"`
	CreatedFrom        string     `json:"created_from"`
}

// DailyPlan is one user's plan for one business date. Drafts and the operative
// plan for the same date may coexist and are told apart by Status.
type DailyPlan struct {
	gorm.Model
	UserID   uint       `json:"user_id" gorm:"not null;index:idx_plan_user_date"`
	UserName string     `json:"user_name" gorm:"size:255"`
	Date     string     `json:"date" gorm:"size:10;not null;index:idx_plan_user_date"`
	Status   PlanStatus `json:"status" gorm:"size:20;not null;default:'draft';index"`

	MorningTasks      []TaskEntry `json:"morning_tasks" gorm:"serializer:json"`
	EODTasksCompleted []TaskEntry `json:"eod_tasks_completed" gorm:"serializer:json"`
	EODTasksAdded     []TaskEntry `json:"eod_tasks_added" gorm:"serializer:json"`
	RolledOverTasks   []TaskEntry `json:"rolled_over_tasks" gorm:"serializer:json"`

	NotesMorning       string     `json:"notes_morning" gorm:"type:text"`
	NotesEOD           string     `json:"notes_eod" gorm:"type:text"`
	SubmittedAtMorning *time.Time `json:"submitted_at_morning"`
	SubmittedAtEOD     *time.Time `json:"submitted_at_eod"`

	ManagerVisibility bool   `json:"manager_visibility" gorm:"default:false"`
	Department        string `json:"department" gorm:"size:100;index"`
	Archived          bool   `json:"archived" gorm:"default:false;index"`
}

// HasEODBreakdown reports whether the closeout lists carry anything.
func (p *DailyPlan) HasEODBreakdown() bool {
	return len(p.EODTasksCompleted) > 0 || len(p.EODTasksAdded) > 0 || len(p.RolledOverTasks) > 0
}

// IsOpen reports whether the plan is the operative plan and not closed out.
func (p *DailyPlan) IsOpen() bool {
	return p.Status == PlanStatusNotStarted
}
