package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const keyPrefix = "onboarding:v1:"

// Snapshot is the minimal wizard state kept for restoring position across
// reloads. It is never the source of truth for submission.
type Snapshot struct {
	Step   int               `json:"step"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Persistence scopes wizard state to a session under namespaced keys. The
// snapshot, the working draft, and the pending-image order live under the same
// namespace and are removed together.
type Persistence struct {
	store Store
	ttl   time.Duration
}

// NewPersistence wraps a store with the session namespace and expiry.
func NewPersistence(store Store, ttl time.Duration) *Persistence {
	return &Persistence{store: store, ttl: ttl}
}

func snapshotKey(sessionID string) string {
	return keyPrefix + sessionID + ":snapshot"
}

func draftKey(sessionID string) string {
	return keyPrefix + sessionID + ":draft"
}

func imageOrderKey(sessionID string) string {
	return keyPrefix + sessionID + ":imageorder"
}

// SaveSnapshot overwrites the session snapshot. Called on every step change.
func (p *Persistence) SaveSnapshot(ctx context.Context, sessionID string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return p.store.Set(ctx, snapshotKey(sessionID), string(payload), p.ttl)
}

// LoadSnapshot restores the wizard position, reporting whether one exists.
func (p *Persistence) LoadSnapshot(ctx context.Context, sessionID string) (Snapshot, bool, error) {
	raw, err := p.store.Get(ctx, snapshotKey(sessionID))
	if err == ErrNotFound {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// SaveDraft stores the accumulated wizard draft.
func (p *Persistence) SaveDraft(ctx context.Context, sessionID string, draft map[string]any) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return p.store.Set(ctx, draftKey(sessionID), string(payload), p.ttl)
}

// LoadDraft fetches the accumulated wizard draft, returning an empty draft
// when none exists yet.
func (p *Persistence) LoadDraft(ctx context.Context, sessionID string) (map[string]any, error) {
	raw, err := p.store.Get(ctx, draftKey(sessionID))
	if err == ErrNotFound {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	var draft map[string]any
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return draft, nil
}

// SaveImageOrder persists the user-chosen ordering of pending images.
func (p *Persistence) SaveImageOrder(ctx context.Context, sessionID string, ids []string) error {
	payload, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode image order: %w", err)
	}
	return p.store.Set(ctx, imageOrderKey(sessionID), string(payload), p.ttl)
}

// LoadImageOrder fetches the pending-image ordering, empty when unset.
func (p *Persistence) LoadImageOrder(ctx context.Context, sessionID string) ([]string, error) {
	raw, err := p.store.Get(ctx, imageOrderKey(sessionID))
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode image order: %w", err)
	}
	return ids, nil
}

// ClearAll unconditionally removes every key for the session. Called on
// successful submission, explicit wizard close, and unload.
func (p *Persistence) ClearAll(ctx context.Context, sessionID string) error {
	return p.store.Remove(ctx, snapshotKey(sessionID), draftKey(sessionID), imageOrderKey(sessionID))
}
