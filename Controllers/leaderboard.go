package Controllers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"Meridian/BusinessTime"
	"Meridian/Config"
	"Meridian/Leaderboard"
	"Meridian/Models"
	"Meridian/Store"
	"Meridian/middleware"
)

type activityRequest struct {
	Kind       string                 `json:"kind" validate:"required,max=40"`
	OccurredAt *time.Time             `json:"occurred_at"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// LeaderboardController logs activities and ranks users by their points.
type LeaderboardController struct {
	Store   *Store.GormStore
	Catalog *Config.Catalog
	Now     func() time.Time
}

func NewLeaderboardController(store *Store.GormStore, catalog *Config.Catalog) *LeaderboardController {
	return &LeaderboardController{Store: store, Catalog: catalog, Now: time.Now}
}

// Get ranks users over ?period=today|week|month, or over explicit
// ?from=&to= business dates.
func (c *LeaderboardController) Get(ctx *fiber.Ctx) error {
	from, to := ctx.Query("from"), ctx.Query("to")
	if from == "" && to == "" {
		var err error
		from, to, err = Leaderboard.Window(ctx.Query("period", Leaderboard.PeriodWeek), c.Now())
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if (from != "" && !BusinessTime.ValidDate(from)) || (to != "" && !BusinessTime.ValidDate(to)) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
	}

	q := Store.Query{Order: "occurred_at ASC"}
	// Narrow the read to the window. Activities are stored in UTC and
	// Aggregate still buckets each one by its business date.
	if from != "" {
		start, _, _ := BusinessTime.DayBounds(from)
		q.Filters = append(q.Filters, Store.Filter{Query: "occurred_at >= ?", Args: []interface{}{start.UTC()}})
	}
	if to != "" {
		_, end, _ := BusinessTime.DayBounds(to)
		q.Filters = append(q.Filters, Store.Filter{Query: "occurred_at <= ?", Args: []interface{}{end.UTC()}})
	}
	activities, err := c.Store.Activities.Find(ctx.UserContext(), q)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve activities", "message": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"from":      from,
		"to":        to,
		"standings": Leaderboard.Aggregate(activities, c.Catalog.ActivityPoints, from, to),
	})
}

// LogActivity records an activity for the caller. Only kinds with a point
// value in the catalog are accepted.
func (c *LeaderboardController) LogActivity(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	var req activityRequest
	if resp := bind(ctx, &req); resp != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(resp)
	}
	if _, ok := c.Catalog.ActivityPoints[req.Kind]; !ok {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown activity kind " + req.Kind})
	}

	occurred := c.Now()
	if req.OccurredAt != nil {
		occurred = *req.OccurredAt
	}
	activity := Models.Activity{
		UserID:     user.ID,
		UserName:   user.Name,
		Kind:       req.Kind,
		OccurredAt: occurred.UTC(),
	}
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid metadata"})
		}
		activity.Metadata = datatypes.JSON(raw)
	}
	if err := c.Store.Activities.Create(ctx.UserContext(), &activity); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to log activity", "message": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"activity": activity,
		"points":   c.Catalog.ActivityPoints[req.Kind],
		"date":     BusinessTime.ToBusinessDate(occurred),
	})
}

// GetCatalog serves the pick lists the planning screens use.
func GetCatalog(catalog *Config.Catalog) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(catalog)
	}
}
