package submission

import (
	"errors"

	"github.com/karthiknish/aroosi-onboarding/internal/backend"
)

// Class buckets a profile-creation failure for recovery decisions.
type Class int

const (
	// ClassTransport covers network and timeout failures; the user may simply
	// re-trigger the flow.
	ClassTransport Class = iota
	// ClassAuthExpired means the user must re-authenticate before retrying.
	ClassAuthExpired
	// ClassConflict means a profile already exists; treated as success.
	ClassConflict
	// ClassFatal is everything unclassified, surfaced with a generic message.
	ClassFatal
)

// Classify inspects the error shape once, at the orchestrator boundary.
func Classify(err error) Class {
	switch {
	case errors.Is(err, backend.ErrConflict):
		return ClassConflict
	case errors.Is(err, backend.ErrAuthExpired):
		return ClassAuthExpired
	case errors.Is(err, backend.ErrUnavailable):
		return ClassTransport
	default:
		return ClassFatal
	}
}
