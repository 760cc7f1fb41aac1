package wizard

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/karthiknish/aroosi-onboarding/internal/auth"
	"github.com/karthiknish/aroosi-onboarding/internal/session"
)

// Handler exposes the wizard step-flow over HTTP.
type Handler struct {
	controller  *Controller
	persistence *session.Persistence
	secret      []byte
	sessionTTL  time.Duration
}

// NewHandler builds a wizard HTTP handler.
func NewHandler(controller *Controller, persistence *session.Persistence, secret []byte, sessionTTL time.Duration) *Handler {
	return &Handler{controller: controller, persistence: persistence, secret: secret, sessionTTL: sessionTTL}
}

type startRequest struct {
	HasBasicData bool   `json:"has_basic_data"`
	PhotosOnly   bool   `json:"photos_only"`
	Identity     string `json:"identity"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	Step      int    `json:"step"`
}

// Start opens a wizard session and returns its token and starting step.
func (h *Handler) Start(c *fiber.Ctx) error {
	var req startRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	sessionID := uuid.NewString()
	now := time.Now()
	token, err := auth.Sign(auth.Claims{
		SessionID: sessionID,
		Identity:  req.Identity,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(h.sessionTTL).Unix(),
	}, h.secret)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not open session")
	}

	step := NormalizeStartStep(req.HasBasicData)
	if req.PhotosOnly {
		// Photo management for an already-created profile bypasses the form
		// steps entirely.
		step = StepPhotosOnly
	}
	if err := h.persistence.SaveSnapshot(c.UserContext(), sessionID, session.Snapshot{Step: step}); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not persist session")
	}

	return c.Status(http.StatusCreated).JSON(startResponse{SessionID: sessionID, Token: token, Step: step})
}

type stepRequest struct {
	Step         int            `json:"step"`
	Direction    string         `json:"direction"`
	HasBasicData bool           `json:"has_basic_data"`
	Fields       map[string]any `json:"fields"`
}

type stepResponse struct {
	Step        int               `json:"step"`
	Moved       bool              `json:"moved"`
	FocusField  string            `json:"focus_field,omitempty"`
	Message     string            `json:"message,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// Step merges the submitted fields into the draft and attempts the transition.
func (h *Handler) Step(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	var req stepRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	direction := DirectionNext
	if req.Direction == "back" {
		direction = DirectionBack
	}

	ctx := c.UserContext()
	draft, err := h.persistence.LoadDraft(ctx, sessionID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not load draft")
	}

	ApplyFields(draft, req.Fields)
	if err := h.persistence.SaveDraft(ctx, sessionID, draft); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not save draft")
	}

	result := h.controller.Advance(req.Step, req.HasBasicData, direction, draft)
	if result.Moved {
		snap := session.Snapshot{Step: result.Step}
		if city, ok := draft["city"].(string); ok {
			snap.Fields = map[string]string{"city": city}
		}
		if err := h.persistence.SaveSnapshot(ctx, sessionID, snap); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "could not persist step")
		}
	}

	return c.Status(http.StatusOK).JSON(stepResponse{
		Step:        result.Step,
		Moved:       result.Moved,
		FocusField:  result.FocusField,
		Message:     result.Message,
		FieldErrors: result.FieldErrors,
	})
}

// State restores the wizard position for the session.
func (h *Handler) State(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	snap, ok, err := h.persistence.LoadSnapshot(c.UserContext(), sessionID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not load session")
	}
	if !ok {
		return fiber.NewError(http.StatusNotFound, "no wizard in progress")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"step": snap.Step, "fields": snap.Fields})
}
