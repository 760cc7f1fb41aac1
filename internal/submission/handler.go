package submission

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/karthiknish/aroosi-onboarding/internal/session"
	"github.com/karthiknish/aroosi-onboarding/internal/upload"
	"github.com/karthiknish/aroosi-onboarding/internal/wizard"
)

// Handler exposes the submission trigger over HTTP.
type Handler struct {
	orchestrator *Orchestrator
	persistence  *session.Persistence
}

// NewHandler builds a submission HTTP handler.
func NewHandler(orchestrator *Orchestrator, persistence *session.Persistence) *Handler {
	return &Handler{orchestrator: orchestrator, persistence: persistence}
}

type submitResponse struct {
	State          string          `json:"state"`
	ProfileID      string          `json:"profile_id,omitempty"`
	AlreadyExisted bool            `json:"already_existed,omitempty"`
	Images         *upload.Outcome `json:"images,omitempty"`
	MissingFields  []string        `json:"missing_fields,omitempty"`
	Message        string          `json:"message,omitempty"`
	Redirect       string          `json:"redirect,omitempty"`
}

// Submit delivers the authenticated-at-final-step event to the orchestrator.
func (h *Handler) Submit(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	identity, _ := c.Locals("identity").(string)
	if identity == "" {
		return fiber.NewError(http.StatusUnauthorized, "sign in required")
	}

	ctx := c.UserContext()
	draft, err := h.persistence.LoadDraft(ctx, sessionID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not load draft")
	}

	step := wizard.MaxStep
	if snap, ok, err := h.persistence.LoadSnapshot(ctx, sessionID); err == nil && ok {
		step = snap.Step
	}

	result, err := h.orchestrator.Authenticated(ctx, Input{
		SessionID: sessionID,
		Identity:  identity,
		Step:      step,
		Draft:     draft,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	status := http.StatusOK
	switch result.State {
	case StateSubmitting:
		status = http.StatusConflict
	case StateIdle:
		status = http.StatusBadRequest
	case StateFailed:
		// Failed without recovery currently means expired credentials.
		status = http.StatusUnauthorized
	}

	resp := submitResponse{
		State:          result.State.String(),
		ProfileID:      result.ProfileID,
		AlreadyExisted: result.AlreadyExisted,
		MissingFields:  result.MissingFields,
		Message:        result.Message,
		Redirect:       result.Redirect,
	}
	if len(result.Images.CreatedIDs) > 0 || len(result.Images.Failures) > 0 {
		images := result.Images
		resp.Images = &images
	}
	return c.Status(status).JSON(resp)
}

// Status reports the submission lifecycle state so a reloaded client can
// tell an in-flight or finished submission from a fresh one.
func (h *Handler) Status(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"state": h.orchestrator.State(sessionID).String()})
}

// Close discards the wizard session. Fire-and-forget: unload beacons do not
// read the response.
func (h *Handler) Close(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	h.orchestrator.Close(c.UserContext(), sessionID)
	return c.SendStatus(http.StatusNoContent)
}
