package Controllers

import (
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"ProductionReport/CronJobs"
)

// SystemController covers liveness and the browser-driven lifecycle.
type SystemController struct {
	Idle *CronJobs.IdleMonitor
	// Shutdown stops the server; it is called on its own goroutine.
	Shutdown func()
	Log      logrus.FieldLogger
}

func NewSystemController(idle *CronJobs.IdleMonitor, shutdown func(), log logrus.FieldLogger) *SystemController {
	return &SystemController{Idle: idle, Shutdown: shutdown, Log: log}
}

// Health is what a second instance probes before starting.
// GET /health
func (sc *SystemController) Health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// Heartbeat keeps the idle monitor from shutting the service down.
// POST /api/heartbeat
func (sc *SystemController) Heartbeat(c *fiber.Ctx) error {
	sc.Idle.Touch()
	return c.JSON(fiber.Map{"success": true})
}

// Closing is sent when the page unloads; the next idle check shuts down.
// POST /api/closing
func (sc *SystemController) Closing(c *fiber.Ctx) error {
	sc.Idle.Expire()
	return c.JSON(fiber.Map{"success": true})
}

// ShutdownNow stops the service, loopback callers only.
// GET|POST /shutdown
func (sc *SystemController) ShutdownNow(c *fiber.Ctx) error {
	if !IsLoopback(c.IP()) {
		return c.Status(fiber.StatusForbidden).SendString("forbidden")
	}
	sc.Log.WithField("ip", c.IP()).Info("shutdown requested")
	go sc.Shutdown()
	return c.SendString("shutting down")
}

func IsLoopback(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}
