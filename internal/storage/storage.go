package storage

import "context"

// PayloadStore abstracts the blob backend holding snap images.
// Delete is idempotent: deleting a missing payload is a no-op so the
// sweep can retry safely.
type PayloadStore interface {
	Store(ctx context.Context, data []byte, mimeType, ownerID string) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
