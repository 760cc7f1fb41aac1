package staging

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// localIDPrefix marks identifiers minted before any remote id exists. Such
// ids must never reach the order-persistence API.
const localIDPrefix = "local-"

// NewLocalID mints a local-only identifier for a freshly selected image.
func NewLocalID() string {
	return localIDPrefix + uuid.NewString()
}

// IsLocalID reports whether the id is a local-only placeholder.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// PendingImage is a user-selected photo staged locally before upload. The
// binary lives behind the repository; the record is the revocable handle.
type PendingImage struct {
	ID          string
	SessionID   string
	FileName    string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}
