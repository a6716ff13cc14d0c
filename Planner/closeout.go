package Planner

import (
	"fmt"
	"strings"
	"time"

	"Meridian/Models"
)

// ReasonOther is the rollover reason that needs free text notes.
const ReasonOther = "other"

type Disposition int

const (
	Unclassified Disposition = iota
	MarkedCompleted
	MarkedRollover
)

func (d Disposition) String() string {
	switch d {
	case MarkedCompleted:
		return "completed"
	case MarkedRollover:
		return "rollover"
	default:
		return "unclassified"
	}
}

// Classification is the single EOD verdict held for a morning task. Holding
// one value per task is what keeps completed and rollover exclusive.
type Classification struct {
	Disposition Disposition `json:"disposition"`
	Reason      string      `json:"reason,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

func (c Classification) ready() bool {
	switch c.Disposition {
	case MarkedCompleted:
		return true
	case MarkedRollover:
		return c.Reason != ReasonOther || strings.TrimSpace(c.Notes) != ""
	default:
		return false
	}
}

type BlockerCause string

const (
	CauseUnclassified  BlockerCause = "unclassified"
	CauseNotesRequired BlockerCause = "notes_required"
)

// Blocker names a morning task holding up the closeout.
type Blocker struct {
	Index int          `json:"index"`
	Title string       `json:"title"`
	Cause BlockerCause `json:"cause"`
}

func (b Blocker) String() string {
	return fmt.Sprintf("task %d %q is %s", b.Index, b.Title, b.Cause)
}

// Closeout is the EOD state of one plan being closed out.
type Closeout struct {
	morning []Task
	marks   []Classification
	adHoc   []Task
}

// NewCloseout starts a closeout over the plan's morning tasks, all unclassified.
func NewCloseout(plan *Models.DailyPlan) *Closeout {
	c := &Closeout{}
	if plan == nil {
		return c
	}
	c.morning = make([]Task, 0, len(plan.MorningTasks))
	for _, e := range plan.MorningTasks {
		c.morning = append(c.morning, TaskFromRecord(e))
	}
	c.marks = make([]Classification, len(c.morning))
	return c
}

func (c *Closeout) Len() int {
	return len(c.morning)
}

func (c *Closeout) check(i int) error {
	if i < 0 || i >= len(c.morning) {
		return fmt.Errorf("%w: %d of %d", ErrTaskIndex, i, len(c.morning))
	}
	return nil
}

// MarkCompleted marks task i done and clears any rollover on it.
func (c *Closeout) MarkCompleted(i int) error {
	if err := c.check(i); err != nil {
		return err
	}
	c.marks[i] = Classification{Disposition: MarkedCompleted}
	return nil
}

// MarkRollover carries task i to tomorrow and clears any completion on it.
func (c *Closeout) MarkRollover(i int, reason, notes string) error {
	if err := c.check(i); err != nil {
		return err
	}
	c.marks[i] = Classification{Disposition: MarkedRollover, Reason: reason, Notes: notes}
	return nil
}

func (c *Closeout) Classification(i int) Classification {
	if c.check(i) != nil {
		return Classification{}
	}
	return c.marks[i]
}

// AddAdHoc records unplanned work done today.
func (c *Closeout) AddAdHoc(t Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	t.CreatedFrom = Models.CreatedFromAdHoc
	c.adHoc = append(c.adHoc, t)
	return nil
}

// Blockers lists every morning task that keeps the closeout from submitting.
func (c *Closeout) Blockers() []Blocker {
	var out []Blocker
	for i, m := range c.marks {
		if m.ready() {
			continue
		}
		cause := CauseUnclassified
		if m.Disposition == MarkedRollover {
			cause = CauseNotesRequired
		}
		out = append(out, Blocker{Index: i, Title: c.morning[i].Title, Cause: cause})
	}
	return out
}

// CanSubmit is true when every morning task is completed, or rolled over with
// a reason other than "other", or rolled over as "other" with notes.
func (c *Closeout) CanSubmit() bool {
	for _, m := range c.marks {
		if !m.ready() {
			return false
		}
	}
	return true
}

// Partition is the closeout split into the lists an EOD submission stores.
type Partition struct {
	Morning    []Entry
	Completed  []Completed
	RolledOver []RolledOver
	AdHoc      []AdHoc
}

// Partition splits the morning tasks by their classification. Completions
// and ad hoc work are stamped with at. It fails with a *ValidationError when
// CanSubmit is false.
func (c *Closeout) Partition(at time.Time) (*Partition, error) {
	if blockers := c.Blockers(); len(blockers) > 0 {
		return nil, &ValidationError{Blockers: blockers}
	}
	p := &Partition{
		Morning:    make([]Entry, 0, len(c.morning)),
		Completed:  make([]Completed, 0, len(c.morning)),
		RolledOver: make([]RolledOver, 0),
		AdHoc:      make([]AdHoc, 0, len(c.adHoc)),
	}
	for i, t := range c.morning {
		m := c.marks[i]
		if m.Disposition == MarkedCompleted {
			done := Completed{Task: t, At: at}
			p.Completed = append(p.Completed, done)
			p.Morning = append(p.Morning, done)
			continue
		}
		carried := RolledOver{Task: t, Reason: m.Reason, Notes: strings.TrimSpace(m.Notes)}
		p.RolledOver = append(p.RolledOver, carried)
		p.Morning = append(p.Morning, carried)
	}
	for _, t := range c.adHoc {
		p.AdHoc = append(p.AdHoc, AdHoc{Task: t, At: at})
	}
	return p, nil
}

// CompletedRecords is what lands in eod_tasks_completed: the completed
// morning tasks followed by the ad hoc work.
func (p *Partition) CompletedRecords() []Models.TaskEntry {
	out := Records(p.Completed)
	return append(out, Records(p.AdHoc)...)
}
