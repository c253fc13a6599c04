package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures the Google Cloud Storage bucket.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string // empty uses application default credentials
	SignerEmail     string // service account used for v4 signing, optional
}

// GCSBucket is a Bucket backed by Google Cloud Storage.
type GCSBucket struct {
	client *storage.Client
	handle *storage.BucketHandle
	name   string
	signer string
}

var _ Bucket = (*GCSBucket)(nil)

// NewGCSBucket opens a client for cfg.Bucket. Close releases it.
func NewGCSBucket(ctx context.Context, cfg GCSConfig) (*GCSBucket, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSBucket{
		client: client,
		handle: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		signer: cfg.SignerEmail,
	}, nil
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}

func (b *GCSBucket) Name() string { return b.name }

func (b *GCSBucket) Write(ctx context.Context, key, contentType string, r io.Reader) error {
	w := b.handle.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *GCSBucket) MakePublic(ctx context.Context, key string) error {
	return b.handle.Object(key).ACL().Set(ctx, storage.AllUsers, storage.RoleReader)
}

func (b *GCSBucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.handle.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *GCSBucket) Attrs(ctx context.Context, key string) (*ObjectAttrs, error) {
	attrs, err := b.handle.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotExist
	}
	if err != nil {
		return nil, err
	}
	return &ObjectAttrs{ContentType: attrs.ContentType, Size: attrs.Size, Created: attrs.Created}, nil
}

func (b *GCSBucket) NewReader(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := b.handle.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotExist
	}
	return r, err
}

func (b *GCSBucket) Delete(ctx context.Context, key string) error {
	err := b.handle.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrObjectNotExist
	}
	return err
}

func (b *GCSBucket) SignedURL(_ context.Context, key string, expires time.Time) (string, error) {
	return b.handle.SignedURL(key, &storage.SignedURLOptions{
		GoogleAccessID: b.signer,
		Scheme:         storage.SigningSchemeV4,
		Method:         http.MethodGet,
		Expires:        expires,
	})
}
