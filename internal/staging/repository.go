package staging

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrReferenceRevoked indicates the staged binary is no longer resolvable,
// either released after upload or discarded by the user.
var ErrReferenceRevoked = errors.New("image reference revoked")

// Repository stages pending-image binaries and their metadata. Open resolves
// a handle to bytes; Release revokes it. Handles are never left dangling past
// the wizard session.
type Repository interface {
	Put(ctx context.Context, img PendingImage, data []byte) error
	List(ctx context.Context, sessionID string) ([]PendingImage, error)
	Open(ctx context.Context, id string) ([]byte, error)
	Release(ctx context.Context, id string) error
	ReleaseSession(ctx context.Context, sessionID string) error
}

// PostgresRepository stores staged images in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed staging repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Put inserts a staged image record with its binary.
func (r *PostgresRepository) Put(ctx context.Context, img PendingImage, data []byte) error {
	_, err := r.db.Exec(ctx, `INSERT INTO staged_images (id, session_id, file_name, content_type, size_bytes, data, uploaded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		img.ID, img.SessionID, img.FileName, img.ContentType, img.Size, data, img.UploadedAt.UTC())
	return err
}

// List returns the session's staged images in selection order.
func (r *PostgresRepository) List(ctx context.Context, sessionID string) ([]PendingImage, error) {
	rows, err := r.db.Query(ctx, `SELECT id, session_id, file_name, content_type, size_bytes, uploaded_at
        FROM staged_images WHERE session_id = $1 ORDER BY uploaded_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []PendingImage
	for rows.Next() {
		var img PendingImage
		var uploadedAt time.Time
		if err := rows.Scan(&img.ID, &img.SessionID, &img.FileName, &img.ContentType, &img.Size, &uploadedAt); err != nil {
			return nil, err
		}
		img.UploadedAt = uploadedAt.UTC()
		images = append(images, img)
	}
	return images, rows.Err()
}

// Open resolves a handle to the staged bytes.
func (r *PostgresRepository) Open(ctx context.Context, id string) ([]byte, error) {
	row := r.db.QueryRow(ctx, `SELECT data FROM staged_images WHERE id = $1`, id)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReferenceRevoked
		}
		return nil, err
	}
	return data, nil
}

// Release revokes a handle, deleting the staged binary.
func (r *PostgresRepository) Release(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM staged_images WHERE id = $1`, id)
	return err
}

// ReleaseSession revokes every handle belonging to the session.
func (r *PostgresRepository) ReleaseSession(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM staged_images WHERE session_id = $1`, sessionID)
	return err
}
