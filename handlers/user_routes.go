// handlers/user_routes.go
package handlers

import (
	"typing-challenge/game"
	"typing-challenge/services"

	"github.com/gofiber/fiber/v2"
)

type userRequest struct {
	UserID string `json:"userId"`
}

type completeRequest struct {
	UserID    string   `json:"userId"`
	FinalTime *float64 `json:"finalTime"`
}

// SetupUserRoutes registers bootstrap, ticket, completion and share endpoints.
func SetupUserRoutes(app *fiber.App, ticketService *services.TicketService, statsService *services.StatsService, shareBaseURL string) {
	user := app.Group("/api/user")

	user.Post("/init", func(c *fiber.Ctx) error {
		var req userRequest
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		res, err := ticketService.Bootstrap(c.UserContext(), req.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	user.Get("/tickets", func(c *fiber.Ctx) error {
		tickets, err := ticketService.Tickets(c.UserContext(), c.Query("userId"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"tickets": tickets})
	})

	user.Post("/tickets", func(c *fiber.Ctx) error {
		var req userRequest
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		tickets, err := ticketService.ConsumeTicket(c.UserContext(), req.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"tickets": tickets,
		})
	})

	user.Post("/complete", func(c *fiber.Ctx) error {
		var req completeRequest
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		res, err := ticketService.RecordCompletion(c.UserContext(), req.UserID, req.FinalTime)
		if err != nil {
			return respondError(c, err)
		}

		body := fiber.Map{
			"success":     res.Success,
			"isCompleted": res.IsCompleted,
		}
		if res.LastTime != nil {
			body["lastTime"] = *res.LastTime
		}
		if req.FinalTime != nil {
			body["reward"] = game.RewardFor(*req.FinalTime)
		}
		return c.JSON(body)
	})

	user.Get("/share", func(c *fiber.Ctx) error {
		userID := c.Query("userId")
		if userID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId is required"})
		}
		link, err := game.ShareLink(shareBaseURL, userID)
		if err != nil {
			return respondError(c, err)
		}
		referred, err := statsService.ReferralCount(c.UserContext(), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"url":       link,
			"referrals": referred,
		})
	})
}
