package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/karthiknish/aroosi-onboarding/internal/backend"
	"github.com/karthiknish/aroosi-onboarding/internal/normalize"
	"github.com/karthiknish/aroosi-onboarding/internal/notification"
	"github.com/karthiknish/aroosi-onboarding/internal/session"
	"github.com/karthiknish/aroosi-onboarding/internal/staging"
	"github.com/karthiknish/aroosi-onboarding/internal/upload"
	"github.com/karthiknish/aroosi-onboarding/internal/wizard"
)

// State is the orchestrator's explicit lifecycle. Completed is terminal;
// failed releases the guard so the user is never permanently stuck.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateCompleted
	StateFailed
)

// String renders the state for responses and logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const maxEnumeratedFields = 5

// Orchestrator finalizes a wizard session exactly once. The guard is the only
// cross-invocation shared mutable state; it is checked and set under the lock
// before any network call, so a duplicate trigger observes submitting or
// completed, never idle.
type Orchestrator struct {
	api         backend.API
	pipeline    *upload.Pipeline
	blobs       staging.Repository
	persistence *session.Persistence
	notifier    notification.Notifier
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	state     State
	profileID string
}

// New builds an orchestrator.
func New(api backend.API, pipeline *upload.Pipeline, blobs staging.Repository, persistence *session.Persistence, notifier notification.Notifier, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		api:         api,
		pipeline:    pipeline,
		blobs:       blobs,
		persistence: persistence,
		notifier:    notifier,
		logger:      logger,
		sessions:    make(map[string]*sessionState),
	}
}

// Input is the authenticated-at-final-step event.
type Input struct {
	SessionID string
	Identity  string
	Step      int
	Draft     map[string]any
}

// Result reports the submission outcome to the caller.
type Result struct {
	State          State
	ProfileID      string
	AlreadyExisted bool
	Images         upload.Outcome
	MissingFields  []string
	Message        string
	Redirect       string
}

// State returns the current lifecycle state for a session.
func (o *Orchestrator) State(sessionID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.sessions[sessionID]; ok {
		return st.state
	}
	return StateIdle
}

// Authenticated delivers the submission trigger. At most one profile-creation
// call happens per session regardless of how many times the trigger fires.
func (o *Orchestrator) Authenticated(ctx context.Context, in Input) (Result, error) {
	if in.Identity == "" {
		return Result{State: StateIdle, Message: "authentication required"}, nil
	}
	if in.Step < wizard.MaxStep {
		return Result{State: StateIdle, Message: fmt.Sprintf("wizard is on step %d, not final", in.Step)}, nil
	}

	// Guard check-then-set happens synchronously, before the first await.
	o.mu.Lock()
	st, ok := o.sessions[in.SessionID]
	if !ok {
		st = &sessionState{}
		o.sessions[in.SessionID] = st
	}
	switch st.state {
	case StateSubmitting:
		o.mu.Unlock()
		return Result{State: StateSubmitting, Message: "submission already in progress"}, nil
	case StateCompleted:
		profileID := st.profileID
		o.mu.Unlock()
		return Result{State: StateCompleted, ProfileID: profileID, Redirect: "/search"}, nil
	}
	st.state = StateSubmitting
	o.mu.Unlock()

	result, err := o.submit(ctx, in)

	o.mu.Lock()
	st.state = result.State
	st.profileID = result.ProfileID
	o.mu.Unlock()

	return result, err
}

func (o *Orchestrator) submit(ctx context.Context, in Input) (Result, error) {
	// A previous attempt may have succeeded with the local guard lost, e.g.
	// after a reload. Re-check before creating anything. Photo-only sessions
	// land here too: staged images still drain to the existing profile.
	if existing, found, err := o.api.GetExistingProfile(ctx, in.Identity); err == nil && found {
		o.logger.Info("profile already exists, skipping creation", slog.String("identity", in.Identity))
		return o.finish(ctx, in, existing.ID, true, o.drainImages(ctx, in)), nil
	}

	cleaned := normalize.PruneEmpty(in.Draft)

	missing := missingRequiredFields(cleaned)
	if len(missing) > 0 {
		return Result{
			State:         StateIdle,
			MissingFields: missing,
			Message:       "missing required fields: " + enumerate(missing),
		}, nil
	}

	if raw, ok := cleaned["phoneNumber"].(string); ok {
		if phone, valid := normalize.Phone(raw); valid {
			cleaned["phoneNumber"] = phone
		}
		// Invalid format falls back to the raw value; submission is not
		// blocked on phone shape once required gating has passed.
	}

	profile, err := o.api.CreateProfile(ctx, cleaned)
	if err != nil {
		return o.recoverCreate(ctx, in, err)
	}

	outcome := o.drainImages(ctx, in)
	return o.finish(ctx, in, profile.ID, false, outcome), nil
}

// recoverCreate applies one consistent policy to creation errors: re-check
// for an existing profile first, then classify what remains.
func (o *Orchestrator) recoverCreate(ctx context.Context, in Input, createErr error) (Result, error) {
	if existing, found, err := o.api.GetExistingProfile(ctx, in.Identity); err == nil && found {
		return o.finish(ctx, in, existing.ID, true, o.drainImages(ctx, in)), nil
	}

	switch Classify(createErr) {
	case ClassConflict:
		// Conflict without a fetchable record still counts as created.
		return o.finish(ctx, in, "", true, o.drainImages(ctx, in)), nil
	case ClassAuthExpired:
		return Result{State: StateFailed, Message: "session expired, please sign in again"}, nil
	case ClassTransport:
		o.logger.Warn("profile creation unreachable", slog.Any("error", createErr))
		return Result{State: StateIdle, Message: "could not reach the server, please try again"}, nil
	default:
		o.logger.Error("profile creation failed", slog.Any("error", createErr))
		message := "something went wrong creating your profile"
		var upstream interface{ UserMessage() string }
		if errors.As(createErr, &upstream) && upstream.UserMessage() != "" {
			message = upstream.UserMessage()
		}
		return Result{State: StateIdle, Message: message}, nil
	}
}

func (o *Orchestrator) drainImages(ctx context.Context, in Input) upload.Outcome {
	images, err := o.blobs.List(ctx, in.SessionID)
	if err != nil {
		o.logger.Warn("list staged images", slog.Any("error", err))
		return upload.Outcome{}
	}
	if len(images) == 0 {
		return upload.Outcome{}
	}

	if order, err := o.persistence.LoadImageOrder(ctx, in.SessionID); err == nil && len(order) > 0 {
		images = reorder(images, order)
	}

	outcome := o.pipeline.UploadPendingImages(ctx, images, in.Identity)

	// Defensive: a local-only placeholder must never reach order persistence.
	ordered := make([]string, 0, len(outcome.CreatedIDs))
	for _, id := range outcome.CreatedIDs {
		if staging.IsLocalID(id) {
			continue
		}
		ordered = append(ordered, id)
	}
	if len(ordered) >= 2 {
		if err := o.api.PersistImageOrder(ctx, in.Identity, ordered); err != nil {
			o.logger.Warn("persist image order", slog.Any("error", err))
		}
	}

	if o.notifier != nil && (len(outcome.CreatedIDs) > 0 || len(outcome.Failures) > 0) {
		_ = o.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindImageSummary,
			Destination: in.Identity,
			Body:        outcome.Summary(),
		})
	}

	return outcome
}

// finish runs the success path: clear local persistence, release any leftover
// staged handles, notify, and mark the session completed.
func (o *Orchestrator) finish(ctx context.Context, in Input, profileID string, alreadyExisted bool, outcome upload.Outcome) Result {
	if err := o.persistence.ClearAll(ctx, in.SessionID); err != nil {
		o.logger.Warn("clear wizard persistence", slog.Any("error", err))
	}
	if err := o.blobs.ReleaseSession(ctx, in.SessionID); err != nil {
		o.logger.Warn("release staged images", slog.Any("error", err))
	}

	if o.notifier != nil && !alreadyExisted {
		_ = o.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindProfileCreated,
			Destination: in.Identity,
			Body:        "profile created",
		})
	}

	return Result{
		State:          StateCompleted,
		ProfileID:      profileID,
		AlreadyExisted: alreadyExisted,
		Images:         outcome,
		Redirect:       "/search",
	}
}

// Close clears all wizard persistence and staged images for the session.
// Serves the explicit close action and best-effort unload beacons.
func (o *Orchestrator) Close(ctx context.Context, sessionID string) {
	if err := o.persistence.ClearAll(ctx, sessionID); err != nil {
		o.logger.Warn("clear wizard persistence", slog.Any("error", err))
	}
	if err := o.blobs.ReleaseSession(ctx, sessionID); err != nil {
		o.logger.Warn("release staged images", slog.Any("error", err))
	}
}

func missingRequiredFields(draft map[string]any) []string {
	var missing []string
	for _, field := range wizard.AllRequiredFields() {
		if _, ok := draft[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

func enumerate(fields []string) string {
	if len(fields) > maxEnumeratedFields {
		return strings.Join(fields[:maxEnumeratedFields], ", ") + fmt.Sprintf(" and %d more", len(fields)-maxEnumeratedFields)
	}
	return strings.Join(fields, ", ")
}

// reorder applies the user-chosen ordering to the staged images; images not
// named in the order keep their selection order at the end.
func reorder(images []staging.PendingImage, order []string) []staging.PendingImage {
	byID := make(map[string]staging.PendingImage, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}
	result := make([]staging.PendingImage, 0, len(images))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if img, ok := byID[id]; ok {
			result = append(result, img)
			seen[id] = true
		}
	}
	for _, img := range images {
		if !seen[img.ID] {
			result = append(result, img)
		}
	}
	return result
}
