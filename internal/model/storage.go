package model

import (
	"context"
	"io"
)

// Storage keeps uploaded profile images.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, reader io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns the public reference stored on the account.
	URL(key string) string
}
