package wizard

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/karthiknish/aroosi-onboarding/internal/middleware"
	"github.com/karthiknish/aroosi-onboarding/internal/session"
)

func setupWizardApp(t *testing.T) *fiber.App {
	t.Helper()
	secret := []byte("test-secret")
	persistence := session.NewPersistence(session.NewMemoryStore(), time.Hour)
	h := NewHandler(NewController(nil), persistence, secret, time.Hour)

	app := fiber.New()
	app.Post("/wizard/start", h.Start)
	protected := app.Group("", middleware.SessionAuth(secret))
	protected.Post("/wizard/step", h.Step)
	protected.Get("/wizard/state", h.State)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func TestStartIssuesSessionAndStep(t *testing.T) {
	app := setupWizardApp(t)

	status, body := postJSON(t, app, "/wizard/start", "", map[string]any{"has_basic_data": true})
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if body["step"] != float64(2) {
		t.Fatalf("expected start step 2 with basic data, got %v", body["step"])
	}
	if body["token"] == "" || body["session_id"] == "" {
		t.Fatalf("missing session credentials: %v", body)
	}
}

func TestStartPhotosOnly(t *testing.T) {
	app := setupWizardApp(t)

	status, body := postJSON(t, app, "/wizard/start", "", map[string]any{"photos_only": true})
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if body["step"] != float64(StepPhotosOnly) {
		t.Fatalf("expected photos-only step, got %v", body["step"])
	}
}

func TestStepRequiresSessionToken(t *testing.T) {
	app := setupWizardApp(t)

	status, _ := postJSON(t, app, "/wizard/step", "", map[string]any{"step": 2, "direction": "next"})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestStepValidationRoundTrip(t *testing.T) {
	app := setupWizardApp(t)

	_, started := postJSON(t, app, "/wizard/start", "", map[string]any{})
	token, _ := started["token"].(string)

	// Incomplete step 2 stays put and reports the focus field.
	status, body := postJSON(t, app, "/wizard/step", token, map[string]any{
		"step":      2,
		"direction": "next",
		"fields":    map[string]any{"city": "Kabul"},
	})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["moved"] != false {
		t.Fatalf("expected blocked transition: %v", body)
	}
	if body["focus_field"] != "height" {
		t.Fatalf("expected focus on height, got %v", body["focus_field"])
	}

	// Completing the fields advances; height is normalized on the way in.
	status, body = postJSON(t, app, "/wizard/step", token, map[string]any{
		"step":      2,
		"direction": "next",
		"fields":    map[string]any{"height": "170", "maritalStatus": "single"},
	})
	if status != fiber.StatusOK || body["moved"] != true || body["step"] != float64(3) {
		t.Fatalf("expected move to step 3: %d %v", status, body)
	}

	// The snapshot restores the new position.
	req := httptest.NewRequest(fiber.MethodGet, "/wizard/state", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	defer resp.Body.Close()
	var state map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state["step"] != float64(3) {
		t.Fatalf("expected restored step 3, got %v", state["step"])
	}
}
