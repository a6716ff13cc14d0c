// Package Planner runs the daily plan lifecycle: drafts, the morning submit,
// the EOD closeout with its rollover of unfinished work, and the promotion of
// tomorrow's draft once today is finalized.
package Planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Meridian/BusinessTime"
	"Meridian/Models"
	"Meridian/Store"
)

// PlanStore is the slice of the entity store the engine needs.
type PlanStore interface {
	FindPlans(ctx context.Context, q Store.Query) ([]Models.DailyPlan, error)
	GetPlan(ctx context.Context, id uint) (*Models.DailyPlan, error)
	CreatePlan(ctx context.Context, plan *Models.DailyPlan) error
	UpdatePlan(ctx context.Context, id uint, patch *Models.DailyPlan, fields ...string) (*Models.DailyPlan, error)
	FindTasks(ctx context.Context, q Store.Query) ([]Models.Task, error)
}

// Notifier hears about finished closeouts. It is called inline by SubmitEOD,
// so implementations that do I/O should hand it off and return.
type Notifier interface {
	PlanSubmitted(ctx context.Context, plan *Models.DailyPlan, promoted *Models.DailyPlan)
	PromotionFailed(ctx context.Context, plan *Models.DailyPlan, err error)
}

type nopNotifier struct{}

func (nopNotifier) PlanSubmitted(context.Context, *Models.DailyPlan, *Models.DailyPlan) {}
func (nopNotifier) PromotionFailed(context.Context, *Models.DailyPlan, error) {}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

type Engine struct {
	store    PlanStore
	now      func() time.Time
	log      *zap.Logger
	notifier Notifier
}

func NewEngine(store PlanStore, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		now:      time.Now,
		log:      zap.NewNop(),
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today is the current business date.
func (e *Engine) Today() string {
	return BusinessTime.Today(e.now())
}

// Tomorrow is the business date after Today.
func (e *Engine) Tomorrow() string {
	return BusinessTime.Tomorrow(e.now())
}

func (e *Engine) findOne(ctx context.Context, q Store.Query) (*Models.DailyPlan, error) {
	q.Limit = 1
	plans, err := e.store.FindPlans(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return &plans[0], nil
}

func (e *Engine) draftQuery(userID uint, date string) Store.Query {
	return Store.Query{
		Where: map[string]interface{}{
			"user_id": userID,
			"date":    date,
			"status":  string(Models.PlanStatusDraft),
		},
		Order: "updated_at DESC, id DESC",
	}
}

// DraftFor returns the newest draft for (user, date), or ErrPlanNotFound.
func (e *Engine) DraftFor(ctx context.Context, userID uint, date string) (*Models.DailyPlan, error) {
	plan, err := e.findOne(ctx, e.draftQuery(userID, date))
	if err != nil {
		return nil, fmt.Errorf("look up draft for %s: %w", date, err)
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// PlanFor returns the plan that governs (user, date): the operative record
// when one exists, otherwise the newest draft.
func (e *Engine) PlanFor(ctx context.Context, userID uint, date string) (*Models.DailyPlan, error) {
	plan, err := e.findOne(ctx, Store.Query{
		Where: map[string]interface{}{"user_id": userID, "date": date},
		Filters: []Store.Filter{{
			Query: "status IN ?",
			Args:  []interface{}{[]string{string(Models.PlanStatusNotStarted), string(Models.PlanStatusEODSubmitted)}},
		}},
		Order: "updated_at DESC, id DESC",
	})
	if err != nil {
		return nil, fmt.Errorf("look up plan for %s: %w", date, err)
	}
	if plan != nil {
		return plan, nil
	}
	return e.DraftFor(ctx, userID, date)
}

// SaveDraft writes tasks and notes to the draft for (owner, date), creating it
// when none exists. Saving the same content twice leaves one record.
func (e *Engine) SaveDraft(ctx context.Context, owner Owner, date string, tasks []Planned, notes string) (*Models.DailyPlan, error) {
	if !BusinessTime.ValidDate(date) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	existing, err := e.findOne(ctx, e.draftQuery(owner.ID, date))
	if err != nil {
		return nil, fmt.Errorf("look up draft for %s: %w", date, err)
	}
	if existing != nil {
		plan, err := e.store.UpdatePlan(ctx, existing.ID, &Models.DailyPlan{
			UserName:     owner.Name,
			Department:   owner.Department,
			MorningTasks: Records(tasks),
			NotesMorning: notes,
		}, "user_name", "department", "morning_tasks", "notes_morning")
		if err != nil {
			return nil, fmt.Errorf("save draft %d: %w", existing.ID, err)
		}
		return plan, nil
	}

	plan := &Models.DailyPlan{
		UserID:            owner.ID,
		UserName:          owner.Name,
		Department:        owner.Department,
		Date:              date,
		Status:            Models.PlanStatusDraft,
		MorningTasks:      Records(tasks),
		EODTasksCompleted: []Models.TaskEntry{},
		EODTasksAdded:     []Models.TaskEntry{},
		RolledOverTasks:   []Models.TaskEntry{},
		NotesMorning:      notes,
	}
	if err := e.store.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("create draft for %s: %w", date, err)
	}
	e.log.Debug("draft created", zap.Uint("plan_id", plan.ID), zap.Uint("user_id", owner.ID), zap.String("date", date))
	return plan, nil
}

// SubmitMorning makes tasks today's operative plan. An open plan or a draft
// for today is updated in place; otherwise a new record is created.
func (e *Engine) SubmitMorning(ctx context.Context, owner Owner, tasks []Planned, notes string) (*Models.DailyPlan, error) {
	now := e.now()
	today := BusinessTime.Today(now)

	current, err := e.PlanFor(ctx, owner.ID, today)
	if err != nil && !errors.Is(err, ErrPlanNotFound) {
		return nil, err
	}
	if current != nil && current.Status == Models.PlanStatusEODSubmitted {
		return nil, fmt.Errorf("plan %d for %s: %w", current.ID, today, ErrAlreadySubmitted)
	}

	if current != nil {
		plan, err := e.store.UpdatePlan(ctx, current.ID, &Models.DailyPlan{
			UserName:           owner.Name,
			Department:         owner.Department,
			Status:             Models.PlanStatusNotStarted,
			MorningTasks:       Records(tasks),
			NotesMorning:       notes,
			SubmittedAtMorning: &now,
		}, "user_name", "department", "status", "morning_tasks", "notes_morning", "submitted_at_morning")
		if err != nil {
			return nil, fmt.Errorf("submit morning plan %d: %w", current.ID, err)
		}
		return plan, nil
	}

	plan := &Models.DailyPlan{
		UserID:             owner.ID,
		UserName:           owner.Name,
		Department:         owner.Department,
		Date:               today,
		Status:             Models.PlanStatusNotStarted,
		MorningTasks:       Records(tasks),
		EODTasksCompleted:  []Models.TaskEntry{},
		EODTasksAdded:      []Models.TaskEntry{},
		RolledOverTasks:    []Models.TaskEntry{},
		NotesMorning:       notes,
		SubmittedAtMorning: &now,
	}
	if err := e.store.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("create morning plan for %s: %w", today, err)
	}
	return plan, nil
}

// SubmitResult is a finalized plan and the draft it promoted, if any.
type SubmitResult struct {
	Plan     *Models.DailyPlan `json:"plan"`
	Promoted *Models.DailyPlan `json:"promoted,omitempty"`
}

// SubmitEOD finalizes plan planID with the closeout c. Nothing is written
// unless c can be submitted. Once the finalize is stored, tomorrow's draft
// (if the user saved one) becomes the operative plan. A failed promotion
// returns the finalized plan alongside a *PartialPipelineError.
func (e *Engine) SubmitEOD(ctx context.Context, planID uint, c *Closeout, notes string) (*SubmitResult, error) {
	plan, err := e.store.GetPlan(ctx, planID)
	if errors.Is(err, Store.ErrNotFound) {
		return nil, fmt.Errorf("plan %d: %w", planID, ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %d: %w", planID, err)
	}
	switch plan.Status {
	case Models.PlanStatusEODSubmitted:
		return nil, fmt.Errorf("plan %d: %w", planID, ErrAlreadySubmitted)
	case Models.PlanStatusDraft:
		return nil, fmt.Errorf("plan %d: %w", planID, ErrNotActive)
	}
	if c == nil || c.Len() != len(plan.MorningTasks) {
		return nil, fmt.Errorf("plan %d: %w", planID, ErrCloseoutMismatch)
	}

	now := e.now()
	part, err := c.Partition(now)
	if err != nil {
		return nil, err
	}

	finalized, err := e.store.UpdatePlan(ctx, plan.ID, &Models.DailyPlan{
		Status:            Models.PlanStatusEODSubmitted,
		MorningTasks:      Records(part.Morning),
		EODTasksCompleted: part.CompletedRecords(),
		EODTasksAdded:     Records(part.AdHoc),
		RolledOverTasks:   Records(part.RolledOver),
		NotesEOD:          notes,
		SubmittedAtEOD:    &now,
	}, "status", "morning_tasks", "eod_tasks_completed", "eod_tasks_added", "rolled_over_tasks", "notes_eod", "submitted_at_eod")
	if err != nil {
		return nil, fmt.Errorf("finalize plan %d: %w", plan.ID, err)
	}
	e.log.Info("plan finalized",
		zap.Uint("plan_id", finalized.ID),
		zap.Uint("user_id", finalized.UserID),
		zap.String("date", finalized.Date),
		zap.Int("completed", len(part.Completed)),
		zap.Int("rolled_over", len(part.RolledOver)),
		zap.Int("ad_hoc", len(part.AdHoc)),
	)

	result := &SubmitResult{Plan: finalized}
	promoted, perr := e.promoteNextDraft(ctx, finalized)
	if perr != nil {
		e.log.Error("draft promotion failed",
			zap.String("pipeline", "partial"),
			zap.Uint("plan_id", finalized.ID),
			zap.Uint("draft_id", perr.DraftID),
			zap.String("draft_date", perr.DraftDate),
			zap.Error(perr.Err),
		)
		e.notifier.PromotionFailed(ctx, finalized, perr)
		return result, perr
	}
	result.Promoted = promoted
	e.notifier.PlanSubmitted(ctx, finalized, promoted)
	return result, nil
}

func (e *Engine) promoteNextDraft(ctx context.Context, plan *Models.DailyPlan) (*Models.DailyPlan, *PartialPipelineError) {
	next, err := BusinessTime.NextDate(plan.Date)
	if err != nil {
		return nil, &PartialPipelineError{PlanID: plan.ID, DraftDate: plan.Date, Err: err}
	}
	draft, err := e.findOne(ctx, e.draftQuery(plan.UserID, next))
	if err != nil {
		return nil, &PartialPipelineError{PlanID: plan.ID, DraftDate: next, Err: err}
	}
	if draft == nil {
		return nil, nil
	}
	promoted, err := e.store.UpdatePlan(ctx, draft.ID, &Models.DailyPlan{Status: Models.PlanStatusNotStarted}, "status")
	if err != nil {
		return nil, &PartialPipelineError{PlanID: plan.ID, DraftID: draft.ID, DraftDate: next, Err: err}
	}
	e.log.Info("draft promoted", zap.Uint("plan_id", promoted.ID), zap.String("date", next))
	return promoted, nil
}

// History lists a user's plans dated inside [from, to], newest first. Empty
// bounds are open. Drafts are left out.
func (e *Engine) History(ctx context.Context, userID uint, from, to string, includeArchived bool) ([]Models.DailyPlan, error) {
	q := Store.Query{
		Where: map[string]interface{}{"user_id": userID},
		Filters: []Store.Filter{{
			Query: "status <> ?",
			Args:  []interface{}{string(Models.PlanStatusDraft)},
		}},
		Order: "date DESC, id DESC",
	}
	if from != "" {
		q.Filters = append(q.Filters, Store.Filter{Query: "date >= ?", Args: []interface{}{from}})
	}
	if to != "" {
		q.Filters = append(q.Filters, Store.Filter{Query: "date <= ?", Args: []interface{}{to}})
	}
	if !includeArchived {
		q.Where["archived"] = false
	}
	plans, err := e.store.FindPlans(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("plan history for user %d: %w", userID, err)
	}
	return plans, nil
}

// Archive hides a plan from the default history view.
func (e *Engine) Archive(ctx context.Context, planID uint) (*Models.DailyPlan, error) {
	plan, err := e.store.UpdatePlan(ctx, planID, &Models.DailyPlan{Archived: true}, "archived")
	if errors.Is(err, Store.ErrNotFound) {
		return nil, fmt.Errorf("plan %d: %w", planID, ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("archive plan %d: %w", planID, err)
	}
	return plan, nil
}

// Get loads a plan by id.
func (e *Engine) Get(ctx context.Context, planID uint) (*Models.DailyPlan, error) {
	plan, err := e.store.GetPlan(ctx, planID)
	if errors.Is(err, Store.ErrNotFound) {
		return nil, fmt.Errorf("plan %d: %w", planID, ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %d: %w", planID, err)
	}
	return plan, nil
}
