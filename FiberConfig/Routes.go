package FiberConfig

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"Meridian/Config"
	"Meridian/Controllers"
	"Meridian/Models"
	"Meridian/Planner"
	"Meridian/Store"
	"Meridian/middleware"
)

// Deps is what the handlers are built from.
type Deps struct {
	DB           *gorm.DB
	Store        *Store.GormStore
	Engine       *Planner.Engine
	Catalog      *Config.Catalog
	Log          *zap.Logger
	LogDir       string
	TemplatesDir string
}

// Views builds the html template engine over dir.
func Views(dir string) *html.Engine {
	if dir == "" {
		dir = "./Templates"
	}
	return html.New(dir, ".html")
}

// NewApp builds the Fiber app with its middleware and routes.
func NewApp(d Deps) *fiber.App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		Views:                 Views(d.TemplatesDir),
		DisableStartupMessage: true,
	})
	app.Use(middleware.RequestLogger(d.Log, d.LogDir))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, d)
	return app
}

func SetupRoutes(app *fiber.App, d Deps) {
	authController := Controllers.NewAuthController(d.DB)
	planController := Controllers.NewPlanController(d.Engine, d.Catalog, d.Log)
	taskController := Controllers.NewTaskController(d.Store, d.Catalog)
	leaderboardController := Controllers.NewLeaderboardController(d.Store, d.Catalog)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/api/Login", authController.Login)
	app.Post("/api/Logout", authController.Logout)
	app.Get("/api/User", middleware.Verify(Models.PermissionStaff), authController.User)
	app.Post("/api/RegisterUser", middleware.Verify(Models.PermissionAdmin), authController.RegisterUser)
	app.Post("/api/UpdateToken", middleware.Verify(Models.PermissionStaff), Models.UpdateToken)
	app.Get("/api/catalog", middleware.Verify(Models.PermissionStaff), Controllers.GetCatalog(d.Catalog))

	api := app.Group("/api", middleware.Verify(Models.PermissionStaff))

	// Daily plans
	plans := api.Group("/plans")
	plans.Get("/today", planController.Today)
	plans.Get("/tomorrow", planController.Tomorrow)
	plans.Get("/history", planController.History)
	plans.Get("/compose", planController.Compose)
	plans.Get("/rollover-candidates", planController.RolloverCandidates)
	plans.Get("/export", planController.Export)
	plans.Post("/draft", planController.SaveDraft)
	plans.Patch("/draft", planController.EditDraft)
	plans.Post("/morning", planController.SubmitMorning)
	plans.Post("/:id/eod/check", planController.CheckEOD)
	plans.Post("/:id/eod", planController.SubmitEOD)
	plans.Patch("/:id/archive", planController.Archive)

	// Common tasks and the department board
	tasks := api.Group("/tasks")
	tasks.Get("/common", taskController.ListCommon)
	tasks.Post("/common", taskController.CreateCommon)
	tasks.Put("/common/:id", taskController.UpdateCommon)
	tasks.Delete("/common/:id", taskController.DeleteCommon)
	tasks.Get("/board", taskController.Board)

	api.Get("/leaderboard", leaderboardController.Get)
	api.Post("/activities", leaderboardController.LogActivity)

	if d.LogDir != "" {
		logController := Controllers.NewLogController(filepath.Join(d.LogDir, "requests.log"))
		logs := app.Group("/api/logs", middleware.Verify(Models.PermissionAdmin))
		logs.Get("/", logController.GetLogs)
		logs.Get("/stats", logController.GetLogStats)
	}

	app.Get("/plans/:id/summary", middleware.Verify(Models.PermissionStaff), planController.Summary)
}
