// handlers/game.go
package handlers

import (
	"typing-challenge/game"

	"github.com/gofiber/fiber/v2"
)

type checkRequest struct {
	Target string `json:"target"`
	Typed  string `json:"typed"`
}

func SetupGameRoutes(app *fiber.App, sentences *game.Sentences) {
	g := app.Group("/api/game")

	g.Get("/sentence", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"sentence": sentences.Pick()})
	})

	g.Post("/check", func(c *fiber.Ctx) error {
		var req checkRequest
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		if !sentences.Contains(req.Target) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown target sentence"})
		}
		return c.JSON(game.CheckAttempt(req.Target, req.Typed))
	})

	g.Get("/rewards", func(c *fiber.Ctx) error {
		return c.JSON(game.RewardTiers)
	})
}
