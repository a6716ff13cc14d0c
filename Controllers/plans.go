package Controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"Meridian/BusinessTime"
	"Meridian/Config"
	"Meridian/Models"
	"Meridian/Planner"
	"Meridian/middleware"
)

type taskInput struct {
	Title            string `json:"title" validate:"required,max=500"`
	Department       string `json:"department"`
	Priority         string `json:"priority"`
	SourceTaskID     *uint  `json:"source_task_id"`
	LinkedObjectType string `json:"linked_object_type" validate:"max=50"`
	LinkedObjectID   string `json:"linked_object_id" validate:"max=100"`
	CreatedFrom      string `json:"created_from" validate:"omitempty,oneof=manual copied rolled_over common"`
}

func (t taskInput) task() Planner.Task {
	return Planner.Task{
		Title:            t.Title,
		Department:       t.Department,
		Priority:         t.Priority,
		SourceTaskID:     t.SourceTaskID,
		LinkedObjectType: t.LinkedObjectType,
		LinkedObjectID:   t.LinkedObjectID,
		CreatedFrom:      t.CreatedFrom,
	}
}

type saveDraftRequest struct {
	Date            string      `json:"date" validate:"required,bizdate"`
	Tasks           []taskInput `json:"tasks" validate:"dive"`
	Notes           string      `json:"notes"`
	IncludeRollover bool        `json:"include_rollover"`
	CopyPrior       bool        `json:"copy_prior"`
	CommonTaskIDs   []uint      `json:"common_task_ids"`
}

type moveInput struct {
	From int `json:"from" validate:"min=0"`
	To   int `json:"to" validate:"min=0"`
}

// editDraftRequest changes a stored draft in place. Removal runs before the
// move, and indexes refer to the list as it stands at each step.
type editDraftRequest struct {
	Date   string      `json:"date" validate:"required,bizdate"`
	Remove *int        `json:"remove" validate:"omitempty,min=0"`
	Move   *moveInput  `json:"move"`
	Add    []taskInput `json:"add" validate:"dive"`
	Notes  *string     `json:"notes"`
}

type morningRequest struct {
	Tasks []taskInput `json:"tasks" validate:"dive"`
	Notes string      `json:"notes"`
}

type classificationInput struct {
	Index       int    `json:"index" validate:"min=0"`
	Disposition string `json:"disposition" validate:"required,oneof=completed rollover"`
	Reason      string `json:"reason"`
	Notes       string `json:"notes"`
}

type eodRequest struct {
	Classifications []classificationInput `json:"classifications" validate:"dive"`
	AdHoc           []taskInput           `json:"ad_hoc" validate:"dive"`
	Notes           string                `json:"notes"`
}

// PlanController serves the daily plan screens.
type PlanController struct {
	Engine  *Planner.Engine
	Catalog *Config.Catalog
	Log     *zap.Logger
}

func NewPlanController(engine *Planner.Engine, catalog *Config.Catalog, log *zap.Logger) *PlanController {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlanController{Engine: engine, Catalog: catalog, Log: log}
}

// checkTasks returns a message for the first task whose department or
// priority is not in the catalog. Empty values are allowed.
func (c *PlanController) checkTasks(tasks []taskInput) string {
	for _, t := range tasks {
		if t.Department != "" && !c.Catalog.ValidDepartment(t.Department) {
			return "Unknown department " + t.Department
		}
		if t.Priority != "" && !c.Catalog.ValidPriority(t.Priority) {
			return "Unknown priority " + t.Priority
		}
	}
	return ""
}

func (c *PlanController) planForDate(ctx *fiber.Ctx, date string) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not Logged In."})
	}
	plan, err := c.Engine.PlanFor(ctx.UserContext(), user.ID, date)
	if errors.Is(err, Planner.ErrPlanNotFound) {
		return ctx.JSON(fiber.Map{"date": date, "plan": nil})
	}
	if err != nil {
		return c.failed(ctx, "Failed to load plan", err)
	}
	return ctx.JSON(fiber.Map{"date": date, "plan": plan})
}

// Today returns the plan governing today's business date, if any.
func (c *PlanController) Today(ctx *fiber.Ctx) error {
	return c.planForDate(ctx, c.Engine.Today())
}

// Tomorrow returns tomorrow's plan, usually still a draft.
func (c *PlanController) Tomorrow(ctx *fiber.Ctx) error {
	return c.planForDate(ctx, c.Engine.Tomorrow())
}

func (c *PlanController) History(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	from, to := ctx.Query("from"), ctx.Query("to")
	for _, d := range []string{from, to} {
		if d != "" && !BusinessTime.ValidDate(d) {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
		}
	}
	plans, err := c.Engine.History(ctx.UserContext(), user.ID, from, to, ctx.Query("archived") == "true")
	if err != nil {
		return c.failed(ctx, "Failed to load plan history", err)
	}
	return ctx.JSON(plans)
}

// SaveDraft stores the draft for a date. The optional flags merge the prior
// plan, today's unfinished work and chosen common tasks after the tasks sent,
// skipping titles already present.
func (c *PlanController) SaveDraft(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	var req saveDraftRequest
	if resp := bind(ctx, &req); resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	if msg := c.checkTasks(req.Tasks); msg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	owner := Planner.OwnerOf(user)
	draft := Planner.NewDraft(owner, req.Date)
	for _, t := range req.Tasks {
		if err := draft.Add(t.task()); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	merged := fiber.Map{}
	if req.CopyPrior || req.IncludeRollover || len(req.CommonTaskIDs) > 0 {
		sources, err := c.Engine.ComposeDraftFromPrior(ctx.UserContext(), user.ID)
		if err != nil {
			return c.failed(ctx, "Failed to load draft sources", err)
		}
		if req.CopyPrior {
			merged["copied"] = draft.CopyFromPrior(sources.PriorTasks)
		}
		if req.IncludeRollover {
			merged["rolled_over"] = draft.AddRolloverCandidates(sources.RolloverCandidates)
		}
		if len(req.CommonTaskIDs) > 0 {
			var chosen []Planner.Planned
			for _, t := range sources.CommonTasks {
				if t.SourceTaskID != nil && slices.Contains(req.CommonTaskIDs, *t.SourceTaskID) {
					chosen = append(chosen, t)
				}
			}
			merged["common"] = draft.AddCommon(chosen...)
		}
	}

	plan, err := c.Engine.SaveDraft(ctx.UserContext(), owner, req.Date, draft.Tasks(), req.Notes)
	if errors.Is(err, Planner.ErrInvalidDate) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.failed(ctx, "Failed to save draft", err)
	}
	return ctx.JSON(fiber.Map{"plan": plan, "merged": merged})
}

// EditDraft removes, reorders or appends tasks on the caller's stored draft
// for a date.
func (c *PlanController) EditDraft(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	var req editDraftRequest
	if resp := bind(ctx, &req); resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	if msg := c.checkTasks(req.Add); msg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	stored, err := c.Engine.DraftFor(ctx.UserContext(), user.ID, req.Date)
	if err != nil {
		return c.planError(ctx, err)
	}
	owner := Planner.OwnerOf(user)
	draft := Planner.DraftFromPlan(owner, stored)
	if req.Remove != nil {
		if err := draft.Remove(*req.Remove); err != nil {
			return c.planError(ctx, err)
		}
	}
	if req.Move != nil {
		if err := draft.Move(req.Move.From, req.Move.To); err != nil {
			return c.planError(ctx, err)
		}
	}
	for _, t := range req.Add {
		if err := draft.Add(t.task()); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if req.Notes != nil {
		draft.Notes = *req.Notes
	}

	plan, err := c.Engine.SaveDraft(ctx.UserContext(), owner, req.Date, draft.Tasks(), draft.Notes)
	if err != nil {
		return c.failed(ctx, "Failed to save draft", err)
	}
	return ctx.JSON(fiber.Map{"plan": plan})
}

// SubmitMorning makes the tasks sent today's operative plan.
func (c *PlanController) SubmitMorning(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	var req morningRequest
	if resp := bind(ctx, &req); resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	if msg := c.checkTasks(req.Tasks); msg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	owner := Planner.OwnerOf(user)
	draft := Planner.NewDraft(owner, c.Engine.Today())
	for _, t := range req.Tasks {
		if err := draft.Add(t.task()); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	plan, err := c.Engine.SubmitMorning(ctx.UserContext(), owner, draft.Tasks(), req.Notes)
	if err != nil {
		return c.planError(ctx, err)
	}
	return ctx.JSON(plan)
}

// ownPlan loads the plan in the :id param and checks it belongs to the
// caller. It writes the error response itself and returns nil on failure.
func (c *PlanController) ownPlan(ctx *fiber.Ctx) (*Models.DailyPlan, error) {
	user, _ := middleware.CurrentUser(ctx)
	id, ok := idParam(ctx, "id")
	if !ok {
		return nil, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid plan ID"})
	}
	plan, err := c.Engine.Get(ctx.UserContext(), id)
	if err != nil {
		return nil, c.planError(ctx, err)
	}
	if plan.UserID != user.ID {
		return nil, ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This plan belongs to another user"})
	}
	return plan, nil
}

// closeout builds the EOD classification from the request. A non-empty map
// is a 400 response body.
func (c *PlanController) closeout(plan *Models.DailyPlan, req eodRequest) (*Planner.Closeout, fiber.Map) {
	co := Planner.NewCloseout(plan)
	for _, cls := range req.Classifications {
		var err error
		switch cls.Disposition {
		case "completed":
			err = co.MarkCompleted(cls.Index)
		case "rollover":
			if cls.Reason != "" && !c.Catalog.ValidReason(cls.Reason) {
				return nil, fiber.Map{"error": "Unknown rollover reason " + cls.Reason}
			}
			err = co.MarkRollover(cls.Index, cls.Reason, cls.Notes)
		}
		if err != nil {
			return nil, fiber.Map{"error": err.Error()}
		}
	}
	if msg := c.checkTasks(req.AdHoc); msg != "" {
		return nil, fiber.Map{"error": msg}
	}
	for _, t := range req.AdHoc {
		if err := co.AddAdHoc(t.task()); err != nil {
			return nil, fiber.Map{"error": err.Error()}
		}
	}
	return co, nil
}

// CheckEOD previews the closeout gate without writing anything.
func (c *PlanController) CheckEOD(ctx *fiber.Ctx) error {
	plan, err := c.ownPlan(ctx)
	if plan == nil {
		return err
	}
	var req eodRequest
	if resp := bind(ctx, &req); resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	co, resp := c.closeout(plan, req)
	if resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	blockers := co.Blockers()
	if blockers == nil {
		blockers = []Planner.Blocker{}
	}
	return ctx.JSON(fiber.Map{"can_submit": co.CanSubmit(), "blockers": blockers})
}

// SubmitEOD closes out the plan and promotes tomorrow's draft.
func (c *PlanController) SubmitEOD(ctx *fiber.Ctx) error {
	plan, err := c.ownPlan(ctx)
	if plan == nil {
		return err
	}
	var req eodRequest
	if resp := bind(ctx, &req); resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	co, resp := c.closeout(plan, req)
	if resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}

	result, err := c.Engine.SubmitEOD(ctx.UserContext(), plan.ID, co, req.Notes)
	var partial *Planner.PartialPipelineError
	if errors.As(err, &partial) {
		return ctx.Status(fiber.StatusMultiStatus).JSON(fiber.Map{
			"plan":    result.Plan,
			"warning": "Your day was submitted but tomorrow's draft could not be activated. Open it and submit it as your morning plan.",
			"message": partial.Error(),
		})
	}
	if err != nil {
		return c.planError(ctx, err)
	}
	return ctx.JSON(result)
}

// Compose lists what a new draft can be seeded from.
func (c *PlanController) Compose(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	sources, err := c.Engine.ComposeDraftFromPrior(ctx.UserContext(), user.ID)
	if err != nil {
		return c.failed(ctx, "Failed to load draft sources", err)
	}
	return ctx.JSON(sources)
}

// RolloverCandidates returns the unfinished work of today's open plan and
// what yesterday's closeout froze as rolled over.
func (c *PlanController) RolloverCandidates(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	today := c.Engine.Today()
	out := fiber.Map{"date": today, "candidates": []Models.TaskEntry{}, "snapshot": []Models.TaskEntry{}}

	plan, err := c.Engine.PlanFor(ctx.UserContext(), user.ID, today)
	if err != nil && !errors.Is(err, Planner.ErrPlanNotFound) {
		return c.failed(ctx, "Failed to load plan", err)
	}
	if plan != nil && plan.IsOpen() {
		out["candidates"] = Planner.Records(Planner.GetRolloverCandidates(plan))
	}

	yesterday, err := BusinessTime.PrevDate(today)
	if err != nil {
		return c.failed(ctx, "Failed to resolve yesterday", err)
	}
	prior, err := c.Engine.PlanFor(ctx.UserContext(), user.ID, yesterday)
	if err != nil && !errors.Is(err, Planner.ErrPlanNotFound) {
		return c.failed(ctx, "Failed to load plan", err)
	}
	if prior != nil {
		out["snapshot"] = Planner.Records(Planner.RolledOverSnapshot(prior))
	}
	return ctx.JSON(out)
}

// Archive hides a plan from history. Owners and managers may archive.
func (c *PlanController) Archive(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	id, ok := idParam(ctx, "id")
	if !ok {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid plan ID"})
	}
	plan, err := c.Engine.Get(ctx.UserContext(), id)
	if err != nil {
		return c.planError(ctx, err)
	}
	if plan.UserID != user.ID && user.Permission < Models.PermissionManager {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "This plan belongs to another user"})
	}
	archived, err := c.Engine.Archive(ctx.UserContext(), id)
	if err != nil {
		return c.planError(ctx, err)
	}
	return ctx.JSON(archived)
}

// Summary renders a printable view of one plan.
func (c *PlanController) Summary(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	id, ok := idParam(ctx, "id")
	if !ok {
		return ctx.Status(fiber.StatusBadRequest).SendString("Invalid plan ID")
	}
	plan, err := c.Engine.Get(ctx.UserContext(), id)
	if errors.Is(err, Planner.ErrPlanNotFound) {
		return ctx.Status(fiber.StatusNotFound).SendString("Plan not found")
	}
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).SendString("Failed to load plan")
	}
	if plan.UserID != user.ID && user.Permission < Models.PermissionManager {
		return ctx.Status(fiber.StatusForbidden).SendString("This plan belongs to another user")
	}
	return ctx.Render("plan_summary", fiber.Map{
		"Plan":      plan,
		"Submitted": plan.Status == Models.PlanStatusEODSubmitted,
	})
}

func (c *PlanController) planError(ctx *fiber.Ctx, err error) error {
	var blocked *Planner.ValidationError
	switch {
	case errors.As(err, &blocked):
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":    "Every morning task needs a completed or rollover mark, and \"other\" needs notes",
			"blockers": blocked.Blockers,
		})
	case errors.Is(err, Planner.ErrAlreadySubmitted):
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "This day has already been submitted"})
	case errors.Is(err, Planner.ErrPlanNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Plan not found"})
	case errors.Is(err, Planner.ErrNotActive),
		errors.Is(err, Planner.ErrCloseoutMismatch),
		errors.Is(err, Planner.ErrTaskIndex):
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.failed(ctx, "Failed to save plan", err)
}

// failed answers 500. The client keeps its state and may try again.
func (c *PlanController) failed(ctx *fiber.Ctx, msg string, err error) error {
	c.Log.Error(msg, zap.Error(err), zap.Any("request_id", ctx.Locals("request_id")))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   msg,
		"message": err.Error(),
	})
}
