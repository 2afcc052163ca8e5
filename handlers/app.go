package handlers

import (
	"typing-challenge/game"
	"typing-challenge/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Tickets        *services.TicketService
	Stats          *services.StatsService
	Sentences      *game.Sentences
	ShareBaseURL   string
	AdminToken     string
	AllowedOrigins string
	AccessLog      bool
}

// NewApp builds the fiber app with middleware and every route registered.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "typing-challenge",
		BodyLimit: 64 * 1024,
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupUserRoutes(app, d.Tickets, d.Stats, d.ShareBaseURL)
	SetupReferralRoutes(app, d.Tickets)
	SetupGameRoutes(app, d.Sentences)
	SetupDiagnosticRoutes(app, d.Stats, d.AdminToken)

	return app
}
