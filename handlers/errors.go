package handlers

import (
	"errors"
	"log"

	"typing-challenge/services"

	"github.com/gofiber/fiber/v2"
)

// respondError turns a service error into the JSON failure body.
// Client faults are 400; store failures are 500 and carry the failing step.
func respondError(c *fiber.Ctx, err error) error {
	var (
		verr     *services.ValidationError
		conflict *services.ConflictError
		noTicket *services.InsufficientTicketsError
		serr     *services.StoreError
	)

	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": conflict.Error()})
	case errors.As(err, &noTicket):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   noTicket.Error(),
			"tickets": noTicket.Tickets,
		})
	case errors.As(err, &serr):
		log.Printf("❌ [STORE] %s %s: %v", c.Method(), c.Path(), serr)
		body := fiber.Map{
			"error":   serr.Message(),
			"details": serr.Err.Error(),
			"step":    serr.Step,
		}
		if code := serr.Code(); code != "" {
			body["code"] = code
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	default:
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
}

func badJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid JSON",
		"cause": err.Error(),
	})
}
