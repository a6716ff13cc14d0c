package Planner

import (
	"fmt"
	"strings"

	"Meridian/Models"
)

// Owner is the user a plan belongs to.
type Owner struct {
	ID         uint
	Name       string
	Department string
}

func OwnerOf(u Models.User) Owner {
	return Owner{ID: u.ID, Name: u.Name, Department: u.Department}
}

// Draft is the ordered task list a user builds for a day before saving it.
type Draft struct {
	Owner Owner
	Date  string
	Notes string
	tasks []Planned
}

func NewDraft(owner Owner, date string) *Draft {
	return &Draft{Owner: owner, Date: date}
}

// DraftFromPlan resumes editing a stored plan's morning tasks.
func DraftFromPlan(owner Owner, plan *Models.DailyPlan) *Draft {
	d := &Draft{Owner: owner, Date: plan.Date, Notes: plan.NotesMorning}
	d.tasks = PlannedFromRecords(plan.MorningTasks)
	return d
}

func (d *Draft) Len() int {
	return len(d.tasks)
}

func (d *Draft) Tasks() []Planned {
	return append([]Planned(nil), d.tasks...)
}

// Contains reports whether a task with the same trimmed, case-folded title
// is already on the draft.
func (d *Draft) Contains(title string) bool {
	key := titleKey(title)
	for _, t := range d.tasks {
		if titleKey(t.Title) == key {
			return true
		}
	}
	return false
}

// Add appends a manually entered task.
func (d *Draft) Add(t Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return ErrEmptyTitle
	}
	if t.CreatedFrom == "" {
		t.CreatedFrom = Models.CreatedFromManual
	}
	d.tasks = append(d.tasks, Planned{Task: t})
	return nil
}

func (d *Draft) Remove(i int) error {
	if i < 0 || i >= len(d.tasks) {
		return fmt.Errorf("%w: %d of %d", ErrTaskIndex, i, len(d.tasks))
	}
	d.tasks = append(d.tasks[:i], d.tasks[i+1:]...)
	return nil
}

// Move shifts task from to position to, keeping the others in order.
func (d *Draft) Move(from, to int) error {
	n := len(d.tasks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d to %d of %d", ErrTaskIndex, from, to, n)
	}
	t := d.tasks[from]
	d.tasks = append(d.tasks[:from], d.tasks[from+1:]...)
	d.tasks = append(d.tasks[:to], append([]Planned{t}, d.tasks[to:]...)...)
	return nil
}

func (d *Draft) merge(source string, tasks []Planned) int {
	added := 0
	for _, t := range tasks {
		if strings.TrimSpace(t.Title) == "" || d.Contains(t.Title) {
			continue
		}
		t.CreatedFrom = source
		d.tasks = append(d.tasks, t)
		added++
	}
	return added
}

// CopyFromPrior adds every task of the prior plan not already on the draft.
func (d *Draft) CopyFromPrior(tasks []Planned) int {
	return d.merge(Models.CreatedFromCopied, tasks)
}

// AddRolloverCandidates adds the unfinished tasks of the open plan, skipping
// titles already present so a second pass adds nothing.
func (d *Draft) AddRolloverCandidates(candidates []Planned) int {
	return d.merge(Models.CreatedFromRolledOver, candidates)
}

// AddCommon adds the chosen common tasks, skipping titles already present.
func (d *Draft) AddCommon(tasks ...Planned) int {
	return d.merge(Models.CreatedFromCommon, tasks)
}
