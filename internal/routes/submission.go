package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/karthiknish/aroosi-onboarding/internal/submission"
)

// RegisterSubmissionRoutes wires the finalize, status, and close endpoints.
func RegisterSubmissionRoutes(r fiber.Router, h *submission.Handler) {
	r.Post("/wizard/submit", h.Submit)
	r.Get("/wizard/submit", h.Status)
	r.Post("/wizard/close", h.Close)
}
