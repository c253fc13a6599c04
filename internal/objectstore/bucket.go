package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotExist is returned by a Bucket when the key has no object.
var ErrObjectNotExist = errors.New("objectstore: object does not exist")

// ObjectAttrs is the stored metadata of one object.
type ObjectAttrs struct {
	ContentType string
	Size        int64
	Created     time.Time
}

// Bucket is the remote content bucket. Implementations must be safe for
// concurrent use.
type Bucket interface {
	Name() string
	Write(ctx context.Context, key, contentType string, r io.Reader) error
	MakePublic(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Attrs(ctx context.Context, key string) (*ObjectAttrs, error)
	NewReader(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// SignedURL issues a read-only link valid until expires.
	SignedURL(ctx context.Context, key string, expires time.Time) (string, error)
}
