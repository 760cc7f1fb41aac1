package submission

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/karthiknish/aroosi-onboarding/internal/backend"
	"github.com/karthiknish/aroosi-onboarding/internal/logging"
	"github.com/karthiknish/aroosi-onboarding/internal/session"
	"github.com/karthiknish/aroosi-onboarding/internal/staging"
	"github.com/karthiknish/aroosi-onboarding/internal/upload"
	"github.com/karthiknish/aroosi-onboarding/internal/wizard"
)

type fakeAPI struct {
	createCalls    int
	createErr      error
	createdPayload map[string]any
	existing       *backend.Profile
	orderCalls     [][]string
	orderOwner     string
	confirmSeq     int
}

func (f *fakeAPI) RequestUploadTarget(context.Context) (string, error) {
	return "https://upload.test/target", nil
}

func (f *fakeAPI) Transfer(_ context.Context, _ string, data []byte, _ string, progress backend.ProgressFunc) (backend.TransferResult, error) {
	if progress != nil {
		progress(int64(len(data)), int64(len(data)))
	}
	f.confirmSeq++
	return backend.TransferResult{Status: 200, Body: []byte(fmt.Sprintf(`{"storageId":"st-%d"}`, f.confirmSeq))}, nil
}

func (f *fakeAPI) ConfirmMetadata(_ context.Context, meta backend.ImageMetadata) (string, error) {
	return "img-" + meta.StorageID, nil
}

func (f *fakeAPI) PersistImageOrder(_ context.Context, ownerID string, imageIDs []string) error {
	f.orderOwner = ownerID
	f.orderCalls = append(f.orderCalls, imageIDs)
	return nil
}

func (f *fakeAPI) CreateProfile(_ context.Context, payload map[string]any) (backend.Profile, error) {
	f.createCalls++
	if f.createErr != nil {
		return backend.Profile{}, f.createErr
	}
	f.createdPayload = payload
	return backend.Profile{ID: "p-1"}, nil
}

func (f *fakeAPI) GetExistingProfile(context.Context, string) (backend.Profile, bool, error) {
	if f.existing != nil {
		return *f.existing, true, nil
	}
	return backend.Profile{}, false, nil
}

func completeDraft() map[string]any {
	return map[string]any{
		"profileFor":    "self",
		"gender":        "female",
		"city":          "Kabul",
		"height":        "170 cm",
		"maritalStatus": "single",
		"education":     "bachelors",
		"occupation":    "engineer",
		"aboutMe":       "hello",
		"phoneNumber":   "(555) 123-4567",
	}
}

func newTestOrchestrator(api backend.API) (*Orchestrator, *session.Persistence, staging.Repository) {
	blobs := staging.NewMemoryRepository()
	persistence := session.NewPersistence(session.NewMemoryStore(), time.Hour)
	logger := logging.Discard()
	pipeline := upload.New(blobs, api, upload.DefaultGuards(), nil, logger)
	return New(api, pipeline, blobs, persistence, nil, logger), persistence, blobs
}

func TestSubmitHappyPathNoImages(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	o, persistence, _ := newTestOrchestrator(api)

	if err := persistence.SaveSnapshot(ctx, "s1", session.Snapshot{Step: 7}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	res, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()})
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if res.State != StateCompleted {
		t.Fatalf("expected completed, got %v", res.State)
	}
	if api.createCalls != 1 {
		t.Fatalf("expected 1 create call, got %d", api.createCalls)
	}
	if res.Redirect == "" {
		t.Fatal("expected redirect")
	}
	if _, ok, _ := persistence.LoadSnapshot(ctx, "s1"); ok {
		t.Fatal("local persistence not cleared")
	}
	if api.createdPayload["phoneNumber"] != "+5551234567" {
		t.Fatalf("phone not normalized: %v", api.createdPayload["phoneNumber"])
	}
}

func TestDuplicateTriggerCreatesOnce(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	o, _, _ := newTestOrchestrator(api)

	in := Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()}
	if _, err := o.Authenticated(ctx, in); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	res, err := o.Authenticated(ctx, in)
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if res.State != StateCompleted {
		t.Fatalf("expected completed, got %v", res.State)
	}
	if api.createCalls != 1 {
		t.Fatalf("duplicate trigger caused %d create calls", api.createCalls)
	}
}

func TestExistingProfileShortCircuits(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{existing: &backend.Profile{ID: "p-existing"}}
	o, _, _ := newTestOrchestrator(api)

	res, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()})
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if api.createCalls != 0 {
		t.Fatalf("expected no create call, got %d", api.createCalls)
	}
	if !res.AlreadyExisted || res.ProfileID != "p-existing" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Redirect == "" {
		t.Fatal("redirect still expected")
	}
}

func TestMissingRequiredFieldsBlocksSubmission(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	o, _, _ := newTestOrchestrator(api)

	draft := completeDraft()
	delete(draft, "aboutMe")
	draft["occupation"] = "   " // blank counts as missing after pruning

	res, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: draft})
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if api.createCalls != 0 {
		t.Fatal("no partial submission may be attempted")
	}
	if res.State != StateIdle {
		t.Fatalf("guard must be released, got %v", res.State)
	}
	if len(res.MissingFields) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", res.MissingFields)
	}

	// User corrects and retries successfully.
	res, err = o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()})
	if err != nil || res.State != StateCompleted {
		t.Fatalf("retry after correction failed: %+v %v", res, err)
	}
}

func TestTransportFailureIsRecoverable(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{createErr: fmt.Errorf("%w: connection refused", backend.ErrUnavailable)}
	o, _, _ := newTestOrchestrator(api)

	in := Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()}
	res, err := o.Authenticated(ctx, in)
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if res.State != StateIdle {
		t.Fatalf("transport failure must reset to idle, got %v", res.State)
	}

	api.createErr = nil
	res, err = o.Authenticated(ctx, in)
	if err != nil || res.State != StateCompleted {
		t.Fatalf("retry after transport recovery failed: %+v %v", res, err)
	}
	if api.createCalls != 2 {
		t.Fatalf("expected 2 create attempts, got %d", api.createCalls)
	}
}

type upstreamError struct{ msg string }

func (e *upstreamError) Error() string       { return "backend returned 422: " + e.msg }
func (e *upstreamError) UserMessage() string { return e.msg }

func TestFatalCreateErrorSurfacesUpstreamMessage(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{createErr: &upstreamError{msg: "height must be numeric"}}
	o, _, _ := newTestOrchestrator(api)

	in := Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()}
	res, err := o.Authenticated(ctx, in)
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if res.State != StateIdle {
		t.Fatalf("fatal error must release the guard, got %v", res.State)
	}
	if res.Message != "height must be numeric" {
		t.Fatalf("upstream message not surfaced: %q", res.Message)
	}

	// Errors without upstream text fall back to the generic message.
	api.createErr = fmt.Errorf("boom")
	res, err = o.Authenticated(ctx, in)
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if res.Message != "something went wrong creating your profile" {
		t.Fatalf("expected generic fallback, got %q", res.Message)
	}
}

func TestStateReflectsLifecycle(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	o, _, _ := newTestOrchestrator(api)

	if got := o.State("s1"); got != StateIdle {
		t.Fatalf("expected idle before any trigger, got %v", got)
	}
	if _, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()}); err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if got := o.State("s1"); got != StateCompleted {
		t.Fatalf("expected completed after submission, got %v", got)
	}
}

func TestPhotosOnlyFlowUploadsToExistingProfile(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{existing: &backend.Profile{ID: "p-existing"}}
	o, _, blobs := newTestOrchestrator(api)

	now := time.Now()
	for i, name := range []string{"a.png", "b.png"} {
		img := staging.PendingImage{
			ID:          staging.NewLocalID(),
			SessionID:   "s1",
			FileName:    name,
			ContentType: "image/png",
			UploadedAt:  now.Add(time.Duration(i) * time.Second),
		}
		if err := blobs.Put(ctx, img, testPNG(t, 300, 300)); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}

	res, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: wizard.StepPhotosOnly, Draft: map[string]any{}})
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if res.State != StateCompleted || !res.AlreadyExisted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if api.createCalls != 0 {
		t.Fatalf("photo-only flow must not create a profile, got %d calls", api.createCalls)
	}
	if len(res.Images.CreatedIDs) != 2 {
		t.Fatalf("expected both photos uploaded, got %+v", res.Images)
	}
	if len(api.orderCalls) != 1 {
		t.Fatalf("expected order persistence for the uploads, got %v", api.orderCalls)
	}
}

func TestConflictOnCreateIsSuccess(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{createErr: fmt.Errorf("%w", backend.ErrConflict)}
	o, _, _ := newTestOrchestrator(api)

	res, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()})
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if res.State != StateCompleted || !res.AlreadyExisted {
		t.Fatalf("conflict must be success-equivalent: %+v", res)
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestImagePartialFailurePersistsOrderOfSuccesses(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	o, _, blobs := newTestOrchestrator(api)

	now := time.Now()
	for i, tc := range []struct {
		name string
		w, h int
	}{
		{"one.png", 300, 300},
		{"tiny.png", 40, 40},
		{"three.png", 300, 400},
	} {
		img := staging.PendingImage{
			ID:          staging.NewLocalID(),
			SessionID:   "s1",
			FileName:    tc.name,
			ContentType: "image/png",
			UploadedAt:  now.Add(time.Duration(i) * time.Second),
		}
		if err := blobs.Put(ctx, img, testPNG(t, tc.w, tc.h)); err != nil {
			t.Fatalf("stage: %v", err)
		}
	}

	res, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()})
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if res.State != StateCompleted {
		t.Fatalf("expected completed, got %v (%s)", res.State, res.Message)
	}
	if len(res.Images.CreatedIDs) != 2 || len(res.Images.Failures) != 1 {
		t.Fatalf("unexpected image outcome: %+v", res.Images)
	}
	if len(api.orderCalls) != 1 {
		t.Fatalf("expected exactly one order persistence call, got %d", len(api.orderCalls))
	}
	if len(api.orderCalls[0]) != 2 {
		t.Fatalf("order must contain the 2 successful ids, got %v", api.orderCalls[0])
	}
	if api.orderCalls[0][0] != res.Images.CreatedIDs[0] || api.orderCalls[0][1] != res.Images.CreatedIDs[1] {
		t.Fatalf("order not preserved: %v vs %v", api.orderCalls[0], res.Images.CreatedIDs)
	}
	if api.orderOwner != "user-1" {
		t.Fatalf("order persisted for wrong owner %q", api.orderOwner)
	}
}

func TestSingleImageSkipsOrderPersistence(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	o, _, blobs := newTestOrchestrator(api)

	img := staging.PendingImage{ID: staging.NewLocalID(), SessionID: "s1", FileName: "a.png", ContentType: "image/png", UploadedAt: time.Now()}
	if err := blobs.Put(ctx, img, testPNG(t, 300, 300)); err != nil {
		t.Fatalf("stage: %v", err)
	}

	res, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 7, Draft: completeDraft()})
	if err != nil || res.State != StateCompleted {
		t.Fatalf("submit: %+v %v", res, err)
	}
	if len(api.orderCalls) != 0 {
		t.Fatalf("order persistence requires at least 2 ids, got calls %v", api.orderCalls)
	}
}

func TestNotFinalStepDoesNotFire(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	o, _, _ := newTestOrchestrator(api)

	res, err := o.Authenticated(ctx, Input{SessionID: "s1", Identity: "user-1", Step: 4, Draft: completeDraft()})
	if err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	if res.State != StateIdle || api.createCalls != 0 {
		t.Fatalf("submission must wait for the final step: %+v", res)
	}
}
