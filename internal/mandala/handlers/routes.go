package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Routes
// ============================================================

// Register вешает health-пробы и API сессий на приложение.
func Register(app *fiber.App, h *MandalaHandler, db Pinger) {
	app.Get("/health/live", LivenessProbe)
	app.Get("/health/ready", ReadinessProbe(db))
	app.Get("/health/startup", StartupProbe)

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Mandala API v1",
			"status":  "ok",
		})
	})

	api.Post("/sessions", h.CreateSession)
	api.Get("/sessions", h.ListSessions)
	api.Get("/sessions/:id", h.GetSession)
	api.Delete("/sessions/:id", h.DeleteSession)

	api.Post("/sessions/:id/frames", h.ProcessFrame)
	api.Get("/sessions/:id/settings", h.GetSettings)
	api.Put("/sessions/:id/settings", h.UpdateSettings)
	api.Post("/sessions/:id/resize", h.Resize)
	api.Post("/sessions/:id/clear", h.Clear)
	api.Post("/sessions/:id/reset", h.Reset)
	api.Get("/sessions/:id/canvas", h.Canvas)

	api.Post("/sessions/:id/export", h.Export)
	api.Get("/sessions/:id/exports", h.ListExports)
	api.Get("/exports/:exportID", h.DownloadExport)
}
