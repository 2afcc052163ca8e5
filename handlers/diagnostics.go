// handlers/diagnostics.go
package handlers

import (
	"log"

	"typing-challenge/middleware"
	"typing-challenge/services"

	"github.com/gofiber/fiber/v2"
)

// SetupDiagnosticRoutes exposes read-only counters. Without an admin token the
// routes are not registered at all.
func SetupDiagnosticRoutes(app *fiber.App, statsService *services.StatsService, adminToken string) {
	if adminToken == "" {
		log.Println("⚠️  ADMIN_TOKEN not set, diagnostic routes disabled")
		return
	}

	diag := app.Group("/api/test", middleware.AdminTokenMiddleware(adminToken))

	diag.Get("/db", func(c *fiber.Ctx) error {
		snap, err := statsService.Snapshot(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Database connection OK",
			"data": fiber.Map{
				"users": fiber.Map{
					"count":  snap.Statistics.TotalUsers,
					"sample": snap.RecentData.Users,
				},
				"referrals": fiber.Map{
					"count":  snap.Statistics.TotalReferrals,
					"sample": snap.RecentData.Referrals,
				},
			},
		})
	})

	diag.Get("/game-flow", func(c *fiber.Ctx) error {
		snap, err := statsService.Snapshot(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":    true,
			"statistics": snap.Statistics,
			"recentData": snap.RecentData,
		})
	})
}
