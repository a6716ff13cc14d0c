package Controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/exp/slices"

	"Meridian/BusinessTime"
	"Meridian/Config"
	"Meridian/Models"
	"Meridian/Store"
	"Meridian/middleware"
)

type commonTaskRequest struct {
	Title            string `json:"title" validate:"required,max=500"`
	Description      string `json:"description"`
	Department       string `json:"department"`
	Priority         string `json:"priority"`
	LinkedObjectType string `json:"linked_object_type" validate:"max=50"`
	LinkedObjectID   string `json:"linked_object_id" validate:"max=100"`
}

// BoardTask is a department task as the board shows it.
type BoardTask struct {
	Models.Task
	Overdue bool `json:"overdue"`
}

// TaskController manages a user's common tasks and the department board.
type TaskController struct {
	Store   *Store.GormStore
	Catalog *Config.Catalog
	Now     func() time.Time
}

func NewTaskController(store *Store.GormStore, catalog *Config.Catalog) *TaskController {
	return &TaskController{Store: store, Catalog: catalog, Now: time.Now}
}

func (c *TaskController) checkRequest(req commonTaskRequest) string {
	if req.Department != "" && !c.Catalog.ValidDepartment(req.Department) {
		return "Unknown department " + req.Department
	}
	if req.Priority != "" && !c.Catalog.ValidPriority(req.Priority) {
		return "Unknown priority " + req.Priority
	}
	return ""
}

func (c *TaskController) ListCommon(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	tasks, err := c.Store.Tasks.Find(ctx.UserContext(), Store.Query{
		Where: map[string]interface{}{"created_by": user.ID, "is_common": true},
		Order: "title ASC",
	})
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve common tasks", "message": err.Error()})
	}
	return ctx.JSON(tasks)
}

func (c *TaskController) CreateCommon(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	var req commonTaskRequest
	if resp := bind(ctx, &req); resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	if msg := c.checkRequest(req); msg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	department := req.Department
	if department == "" {
		department = user.Department
	}
	task := Models.Task{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Department:       department,
		Priority:         req.Priority,
		Status:           Models.TaskStatusTodo,
		CreatedBy:        user.ID,
		IsCommon:         true,
		LinkedObjectType: req.LinkedObjectType,
		LinkedObjectID:   req.LinkedObjectID,
	}
	if err := c.Store.Tasks.Create(ctx.UserContext(), &task); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create common task", "message": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(task)
}

// ownCommon loads the common task in :id if the caller created it.
func (c *TaskController) ownCommon(ctx *fiber.Ctx) (*Models.Task, error) {
	user, _ := middleware.CurrentUser(ctx)
	id, ok := idParam(ctx, "id")
	if !ok {
		return nil, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}
	task, err := c.Store.Tasks.Get(ctx.UserContext(), id)
	if errors.Is(err, Store.ErrNotFound) || (err == nil && (!task.IsCommon || task.CreatedBy != user.ID)) {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Common task not found"})
	}
	if err != nil {
		return nil, ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve common task", "message": err.Error()})
	}
	return task, nil
}

func (c *TaskController) UpdateCommon(ctx *fiber.Ctx) error {
	task, err := c.ownCommon(ctx)
	if task == nil {
		return err
	}
	var req commonTaskRequest
	if resp := bind(ctx, &req); resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	if msg := c.checkRequest(req); msg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	updated, err := c.Store.Tasks.Update(ctx.UserContext(), task.ID, &Models.Task{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Department:       req.Department,
		Priority:         req.Priority,
		LinkedObjectType: req.LinkedObjectType,
		LinkedObjectID:   req.LinkedObjectID,
	}, "title", "description", "department", "priority", "linked_object_type", "linked_object_id")
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update common task", "message": err.Error()})
	}
	return ctx.JSON(updated)
}

func (c *TaskController) DeleteCommon(ctx *fiber.Ctx) error {
	task, err := c.ownCommon(ctx)
	if task == nil {
		return err
	}
	if err := c.Store.Tasks.Delete(ctx.UserContext(), task.ID); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete common task", "message": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "Common task deleted successfully"})
}

// Board lists the open tasks of a department, overdue ones first. It
// defaults to the caller's department.
func (c *TaskController) Board(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	department := ctx.Query("department", user.Department)
	if department == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "department is required"})
	}

	tasks, err := c.Store.Tasks.Find(ctx.UserContext(), Store.Query{
		Where: map[string]interface{}{"department": department, "is_common": false},
		Filters: []Store.Filter{{
			Query: "status <> ?",
			Args:  []interface{}{Models.TaskStatusDone},
		}},
		Order: "id ASC",
	})
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve tasks", "message": err.Error()})
	}

	at := c.Now()
	board := make([]BoardTask, 0, len(tasks))
	for _, t := range tasks {
		board = append(board, BoardTask{Task: t, Overdue: BusinessTime.IsOverdue(t.DueDate, at)})
	}
	slices.SortStableFunc(board, func(a, b BoardTask) int {
		if a.Overdue != b.Overdue {
			if a.Overdue {
				return -1
			}
			return 1
		}
		return strings.Compare(dueKey(a.DueDate), dueKey(b.DueDate))
	})

	overdue := 0
	for _, t := range board {
		if t.Overdue {
			overdue++
		}
	}
	return ctx.JSON(fiber.Map{
		"department": department,
		"date":       BusinessTime.ToBusinessDate(at),
		"overdue":    overdue,
		"tasks":      board,
	})
}

// dueKey sorts tasks without a due date last.
func dueKey(date string) string {
	if date == "" {
		return "9999-99-99"
	}
	return date
}
