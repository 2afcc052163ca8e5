// handlers/referral_routes.go
package handlers

import (
	"typing-challenge/services"

	"github.com/gofiber/fiber/v2"
)

type referralRequest struct {
	ReferrerID string `json:"referrerId"`
	ReferredID string `json:"referredId"`
}

func SetupReferralRoutes(app *fiber.App, ticketService *services.TicketService) {
	app.Post("/api/referral/process", func(c *fiber.Ctx) error {
		var req referralRequest
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}

		res, err := ticketService.ProcessReferral(c.UserContext(), req.ReferrerID, req.ReferredID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{
			"success":         res.Success,
			"message":         "Referral processed successfully",
			"ticketsAwarded":  res.TicketsAwarded,
			"referrerTickets": res.ReferrerTickets,
		})
	})
}
