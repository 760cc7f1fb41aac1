package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/karthiknish/aroosi-onboarding/internal/staging"
)

// RegisterImageRoutes wires pending-image staging endpoints.
func RegisterImageRoutes(r fiber.Router, h *staging.Handler, limiter fiber.Handler) {
	r.Post("/wizard/images", limiter, h.Stage)
	r.Get("/wizard/images", h.List)
	r.Put("/wizard/images/order", h.Reorder)
	r.Delete("/wizard/images/:imageId", h.Remove)
}
