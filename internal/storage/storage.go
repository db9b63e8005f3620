// Package storage holds uploaded blobs: message attachments, team files and
// avatars.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrExists is returned by Upload without upsert when the key is taken.
var ErrExists = errors.New("object already exists")

type ObjectStorage interface {
	// Upload stores body under key. With upsert false an existing object is
	// left alone and ErrExists returned.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string, upsert bool) error

	// Remove deletes keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error

	// PublicURL is the address clients fetch key from.
	PublicURL(key string) string
}
