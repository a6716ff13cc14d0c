package Planner

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidationBlocked = errors.New("plan cannot be finalized yet")
	ErrPlanNotFound      = errors.New("daily plan not found")
	ErrAlreadySubmitted  = errors.New("daily plan already submitted")
	ErrNotActive         = errors.New("daily plan is still a draft")
	ErrCloseoutMismatch  = errors.New("closeout does not match the plan's morning tasks")
	ErrTaskIndex         = errors.New("task index out of range")
	ErrEmptyTitle        = errors.New("task title is required")
	ErrInvalidDate       = errors.New("invalid business date")
)

// ValidationError lists why a closeout cannot be submitted. It matches
// ErrValidationBlocked under errors.Is.
type ValidationError struct {
	Blockers []Blocker
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Blockers))
	for _, b := range e.Blockers {
		parts = append(parts, b.String())
	}
	return fmt.Sprintf("%s: %s", ErrValidationBlocked, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationBlocked
}

// PartialPipelineError is returned when today's plan was finalized but
// tomorrow's draft could not be promoted. The finalize is not rolled back.
type PartialPipelineError struct {
	PlanID    uint
	DraftID   uint
	DraftDate string
	Err       error
}

func (e *PartialPipelineError) Error() string {
	if e.DraftID == 0 {
		return fmt.Sprintf("plan %d finalized but the draft for %s could not be looked up: %v", e.PlanID, e.DraftDate, e.Err)
	}
	return fmt.Sprintf("plan %d finalized but draft %d for %s was not promoted: %v", e.PlanID, e.DraftID, e.DraftDate, e.Err)
}

func (e *PartialPipelineError) Unwrap() error {
	return e.Err
}
