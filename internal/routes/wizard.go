package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/karthiknish/aroosi-onboarding/internal/wizard"
)

// RegisterWizardStart wires the public session-opening endpoint.
func RegisterWizardStart(r fiber.Router, h *wizard.Handler) {
	r.Post("/wizard/start", h.Start)
}

// RegisterWizardRoutes wires the session-scoped step-flow endpoints.
func RegisterWizardRoutes(r fiber.Router, h *wizard.Handler) {
	r.Post("/wizard/step", h.Step)
	r.Get("/wizard/state", h.State)
}
