package backend

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrConflict indicates the profile already exists upstream. Callers treat
	// this as success-equivalent, not a failure.
	ErrConflict = errors.New("profile already exists")

	// ErrAuthExpired indicates the upstream rejected the session credentials.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrUnavailable wraps network and timeout failures. Retry is left to the
	// user re-triggering the flow.
	ErrUnavailable = errors.New("backend unavailable")
)

// ProgressFunc receives byte-level transfer progress.
type ProgressFunc func(loaded, total int64)

// TransferResult carries the raw outcome of a binary transfer.
type TransferResult struct {
	Status int
	Body   []byte
}

// StorageID extracts the server-assigned storage identifier from the transfer
// response. Absence is reported, not panicked on.
func (t TransferResult) StorageID() (string, bool) {
	var payload struct {
		StorageID string `json:"storageId"`
	}
	if err := json.Unmarshal(t.Body, &payload); err != nil {
		return "", false
	}
	if payload.StorageID == "" {
		return "", false
	}
	return payload.StorageID, true
}

// ImageMetadata describes an uploaded binary for server-side confirmation.
type ImageMetadata struct {
	OwnerID     string `json:"ownerId"`
	StorageID   string `json:"storageId"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Profile is the upstream profile record shape this service cares about.
type Profile struct {
	ID string `json:"profileId"`
}

// TokenSource supplies upstream credentials. The authentication provider
// itself (sign-in, refresh) lives outside this service.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed bearer token.
type StaticToken string

// Token returns the fixed token.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// API is the upstream surface consumed by the wizard.
type API interface {
	RequestUploadTarget(ctx context.Context) (string, error)
	Transfer(ctx context.Context, uploadURL string, data []byte, contentType string, progress ProgressFunc) (TransferResult, error)
	ConfirmMetadata(ctx context.Context, meta ImageMetadata) (string, error)
	PersistImageOrder(ctx context.Context, ownerID string, imageIDs []string) error
	CreateProfile(ctx context.Context, payload map[string]any) (Profile, error)
	GetExistingProfile(ctx context.Context, identity string) (Profile, bool, error)
}
