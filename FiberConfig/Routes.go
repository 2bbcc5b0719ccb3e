package FiberConfig

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html"
	"github.com/sirupsen/logrus"

	"ProductionReport/Config"
	"ProductionReport/Controllers"
	"ProductionReport/middleware"
)

// Handlers bundles the controllers the routes point at.
type Handlers struct {
	Queue  *Controllers.QueueController
	Report *Controllers.ReportController
	System *Controllers.SystemController
}

func SetupRoutes(app *fiber.App, h Handlers) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/table")
	})
	app.Get("/table", func(c *fiber.Ctx) error {
		return c.Render("index_table", fiber.Map{})
	})
	app.Get("/print_page", h.Queue.PrintPage)

	// Lifecycle
	app.Get("/health", h.System.Health)
	app.Post("/api/heartbeat", h.System.Heartbeat)
	app.Post("/api/closing", h.System.Closing)
	app.Get("/shutdown", h.System.ShutdownNow)
	app.Post("/shutdown", h.System.ShutdownNow)

	api := app.Group("/api")

	// Report lookup
	api.Post("/query", h.Report.Query)
	api.Post("/export", h.Report.Export)

	// Modification queue
	api.Post("/save", h.Queue.Save)
	api.Post("/upload", h.Queue.Upload)
	api.Post("/print", h.Queue.Print)
	api.Get("/get_queue_types", h.Queue.GetQueueTypes)
	api.Get("/get_queue_status", h.Queue.GetQueueStatus)
	api.Post("/delete_queue_item", h.Queue.DeleteQueueItem)
	api.Post("/clear_queue", h.Queue.ClearQueue)
	api.Post("/clear_same_day_queue", h.Queue.ClearSameDayQueue)
	api.Post("/clear_different_day_queue", h.Queue.ClearDifferentDayQueue)
}

// NewApp builds the fiber app with views, middleware and routes.
func NewApp(cfg *Config.Configuration, log logrus.FieldLogger, h Handlers) *fiber.App {
	engine := html.New(cfg.TemplateDir, ".html")
	app := fiber.New(fiber.Config{
		Views:                 engine,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(middleware.LoggingMiddleware(middleware.LogConfig{
		Logger:    log,
		SkipPaths: cfg.SkipPaths(),
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://" + cfg.Address,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       300,
	}))
	app.Static("/static", cfg.StaticDir, fiber.Static{Compress: true, CacheDuration: time.Second * 10})

	SetupRoutes(app, h)
	return app
}
