package staging

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu     sync.RWMutex
	images map[string]PendingImage
	blobs  map[string][]byte
}

// NewMemoryRepository builds an in-memory staging store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		images: make(map[string]PendingImage),
		blobs:  make(map[string][]byte),
	}
}

func (r *memoryRepository) Put(_ context.Context, img PendingImage, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[img.ID] = img
	r.blobs[img.ID] = data
	return nil
}

func (r *memoryRepository) List(_ context.Context, sessionID string) ([]PendingImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var images []PendingImage
	for _, img := range r.images {
		if img.SessionID == sessionID {
			images = append(images, img)
		}
	}
	sort.Slice(images, func(i, j int) bool {
		if images[i].UploadedAt.Equal(images[j].UploadedAt) {
			return images[i].ID < images[j].ID
		}
		return images[i].UploadedAt.Before(images[j].UploadedAt)
	})
	return images, nil
}

func (r *memoryRepository) Open(_ context.Context, id string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.blobs[id]
	if !ok {
		return nil, ErrReferenceRevoked
	}
	return data, nil
}

func (r *memoryRepository) Release(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.images, id)
	delete(r.blobs, id)
	return nil
}

func (r *memoryRepository) ReleaseSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, img := range r.images {
		if img.SessionID == sessionID {
			delete(r.images, id)
			delete(r.blobs, id)
		}
	}
	return nil
}
