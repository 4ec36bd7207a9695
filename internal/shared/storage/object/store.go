package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrSignedURLUnsupported is returned by stores that cannot mint signed URLs.
var ErrSignedURLUnsupported = errors.New("signed urls not supported by this store")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	// SignedURL returns a time-limited retrieval URL for the object, or
	// ErrSignedURLUnsupported when the backend has no signing facility.
	SignedURL(ctx context.Context, storageKey string, expires time.Duration) (string, error)
}
