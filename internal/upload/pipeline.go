package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/karthiknish/aroosi-onboarding/internal/backend"
	"github.com/karthiknish/aroosi-onboarding/internal/staging"
)

// ProgressFunc receives transfer progress keyed by the image's local id.
type ProgressFunc func(imageID string, loaded, total int64)

// Uploader is the remote surface the pipeline needs: target issuance, binary
// transfer, and metadata confirmation.
type Uploader interface {
	RequestUploadTarget(ctx context.Context) (string, error)
	Transfer(ctx context.Context, uploadURL string, data []byte, contentType string, progress backend.ProgressFunc) (backend.TransferResult, error)
	ConfirmMetadata(ctx context.Context, meta backend.ImageMetadata) (string, error)
}

// Pipeline drains a batch of staged images one at a time. Sequential on
// purpose: one decoded buffer in memory, one unambiguous progress indicator,
// and no thundering herd against the upload endpoint. A single image's
// failure never aborts the rest of the batch.
type Pipeline struct {
	blobs    staging.Repository
	api      Uploader
	guards   Guards
	progress ProgressFunc
	logger   *slog.Logger
}

// New builds a pipeline. The progress callback may be nil.
func New(blobs staging.Repository, api Uploader, guards Guards, progress ProgressFunc, logger *slog.Logger) *Pipeline {
	return &Pipeline{blobs: blobs, api: api, guards: guards, progress: progress, logger: logger}
}

// UploadPendingImages processes every image and returns exactly one result
// per input: a durable id in input order, or a failure record. Cancelling ctx
// aborts only the in-flight transfer; completed uploads stay uploaded.
func (p *Pipeline) UploadPendingImages(ctx context.Context, images []staging.PendingImage, ownerID string) Outcome {
	outcome := Outcome{CreatedIDs: make([]string, 0, len(images))}

	for i, img := range images {
		if ctx.Err() != nil {
			outcome.Failures = append(outcome.Failures, FailureRecord{Index: i, Name: img.FileName, Reason: "cancelled"})
			continue
		}

		imageID, err := p.uploadOne(ctx, img, ownerID)
		if err != nil {
			p.logger.Warn("image upload failed",
				slog.String("image_id", img.ID),
				slog.String("file_name", img.FileName),
				slog.Any("error", err))
			outcome.Failures = append(outcome.Failures, FailureRecord{Index: i, Name: img.FileName, Reason: err.Error()})
			continue
		}

		outcome.CreatedIDs = append(outcome.CreatedIDs, imageID)
	}

	return outcome
}

func (p *Pipeline) uploadOne(ctx context.Context, img staging.PendingImage, ownerID string) (string, error) {
	data, err := p.blobs.Open(ctx, img.ID)
	if err != nil {
		if errors.Is(err, staging.ErrReferenceRevoked) {
			return "", fmt.Errorf("invalid local reference")
		}
		return "", fmt.Errorf("resolve local reference: %v", err)
	}
	// The handle is consumed by this attempt either way; a failed image is
	// discarded, not retried.
	defer p.release(img.ID)

	if err := p.guards.check(data); err != nil {
		return "", err
	}

	uploadURL, err := p.api.RequestUploadTarget(ctx)
	if err != nil {
		return "", fmt.Errorf("request upload target: %v", err)
	}

	var transferProgress backend.ProgressFunc
	if p.progress != nil {
		localID := img.ID
		transferProgress = func(loaded, total int64) {
			p.progress(localID, loaded, total)
		}
	}

	result, err := p.api.Transfer(ctx, uploadURL, data, img.ContentType, transferProgress)
	if err != nil {
		return "", fmt.Errorf("transfer: %v", err)
	}
	if result.Status < 200 || result.Status >= 300 {
		reason := strings.TrimSpace(string(result.Body))
		if reason == "" {
			return "", fmt.Errorf("transfer rejected with status %d", result.Status)
		}
		return "", fmt.Errorf("transfer rejected with status %d: %s", result.Status, reason)
	}

	storageID, ok := result.StorageID()
	if !ok {
		return "", fmt.Errorf("transfer response missing storage id")
	}

	imageID, err := p.api.ConfirmMetadata(ctx, backend.ImageMetadata{
		OwnerID:     ownerID,
		StorageID:   storageID,
		FileName:    img.FileName,
		ContentType: img.ContentType,
		Size:        int64(len(data)),
	})
	if err != nil {
		return "", fmt.Errorf("confirm metadata: %v", err)
	}

	return imageID, nil
}

// release revokes the local reference. Best effort; the staged row expires
// with the session either way.
func (p *Pipeline) release(imageID string) {
	if err := p.blobs.Release(context.Background(), imageID); err != nil {
		p.logger.Warn("release staged image", slog.String("image_id", imageID), slog.Any("error", err))
	}
}
