package Models

import (
	"gorm.io/gorm"
)

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// Task is a standalone department task. Tasks flagged IsCommon are a user's
// reusable templates offered when drafting a plan.
type Task struct {
	gorm.Model
	Title            string `json:"title" gorm:"size:500;not null"`
	Description      string `json:"description" gorm:"type:text"`
	Department       string `json:"department" gorm:"size:100;index"`
	Priority         string `json:"priority" gorm:"size:20"`
	Status           string `json:"status" gorm:"size:20;default:'todo';index"`
	CreatedBy        uint   `json:"created_by" gorm:"index"`
	AssigneeID       *uint  `json:"assignee_id" gorm:"index"`
	IsCommon         bool   `json:"is_common" gorm:"default:false;index"`
	DueDate          string `json:"due_date" gorm:"size:10"`
	LinkedObjectType string `json:"linked_object_type" gorm:"size:50"`
	LinkedObjectID   string `json:"linked_object_id" gorm:"size:100"`
}
