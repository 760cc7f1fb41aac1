package staging

import (
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/karthiknish/aroosi-onboarding/internal/session"
)

// Handler exposes pending-image staging over HTTP.
type Handler struct {
	repo        Repository
	persistence *session.Persistence
	maxBytes    int64
}

// NewHandler builds a staging HTTP handler.
func NewHandler(repo Repository, persistence *session.Persistence, maxBytes int64) *Handler {
	return &Handler{repo: repo, persistence: persistence, maxBytes: maxBytes}
}

type imageResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Stage accepts a selected photo and holds it locally until submission.
func (h *Handler) Stage(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "photo file is required")
	}
	if fileHeader.Size > h.maxBytes {
		return fiber.NewError(http.StatusRequestEntityTooLarge, "photo exceeds size limit")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if int64(len(data)) > h.maxBytes {
		return fiber.NewError(http.StatusRequestEntityTooLarge, "photo exceeds size limit")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	img := PendingImage{
		ID:          NewLocalID(),
		SessionID:   sessionID,
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	}
	if err := h.repo.Put(c.UserContext(), img, data); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not stage photo")
	}

	return c.Status(http.StatusCreated).JSON(toImageResponse(img))
}

// List returns the session's staged photos in selection order.
func (h *Handler) List(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	images, err := h.repo.List(c.UserContext(), sessionID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not list photos")
	}

	out := make([]imageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, toImageResponse(img))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"images": out})
}

type orderRequest struct {
	ImageIDs []string `json:"image_ids"`
}

// Reorder records the user-chosen pending-image ordering.
func (h *Handler) Reorder(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	var req orderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	images, err := h.repo.List(ctx, sessionID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not list photos")
	}
	owned := make(map[string]bool, len(images))
	for _, img := range images {
		owned[img.ID] = true
	}
	ids := make([]string, 0, len(req.ImageIDs))
	for _, id := range req.ImageIDs {
		if owned[id] {
			ids = append(ids, id)
		}
	}

	if err := h.persistence.SaveImageOrder(ctx, sessionID, ids); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not save order")
	}
	return c.SendStatus(http.StatusNoContent)
}

// Remove discards a staged photo before it is ever uploaded.
func (h *Handler) Remove(c *fiber.Ctx) error {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	id := c.Params("imageId")
	images, err := h.repo.List(c.UserContext(), sessionID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not list photos")
	}
	for _, img := range images {
		if img.ID == id {
			if err := h.repo.Release(c.UserContext(), id); err != nil {
				return fiber.NewError(http.StatusInternalServerError, "could not remove photo")
			}
			return c.SendStatus(http.StatusNoContent)
		}
	}
	return fiber.NewError(http.StatusNotFound, "photo not found")
}

func toImageResponse(img PendingImage) imageResponse {
	return imageResponse{
		ID:          img.ID,
		FileName:    img.FileName,
		ContentType: img.ContentType,
		Size:        img.Size,
		UploadedAt:  img.UploadedAt,
	}
}
