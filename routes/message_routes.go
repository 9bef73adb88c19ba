package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tellyousomeday/api/handlers"
	"github.com/tellyousomeday/api/middleware"
)

// Limiters holds one explicitly constructed rate limiter per surface.
type Limiters struct {
	General *middleware.IPRateLimiter
	Create  *middleware.IPRateLimiter
	Search  *middleware.IPRateLimiter
	Read    *middleware.IPRateLimiter
}

func MessageRoutes(app *fiber.App, h *handlers.MessageHandler, l Limiters, spamGate fiber.Handler) {
	api := app.Group("/api", l.General.Handler())

	messages := api.Group("/messages")
	messages.Post("/", l.Create.Handler(), spamGate, h.Create)
	messages.Get("/search/:senderName", l.Search.Handler(), h.Search)
	messages.Post("/read/:messageId", l.Read.Handler(), h.Read)
	messages.Get("/stats", h.Stats)

	api.Get("/health", h.Health)
}
