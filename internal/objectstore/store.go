// Package objectstore performs audited binary-object operations against one
// remote bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/org/examvault/internal/fault"
	"github.com/org/examvault/pkg/models"
	"github.com/rs/zerolog/log"
)

// Recorder persists audit records.
type Recorder interface {
	Record(ctx context.Context, rec *models.AuditRecord) error
}

// Store mediates every object operation. It holds only read-mostly handles
// and is safe for concurrent use.
type Store struct {
	bucket Bucket
	audit  Recorder
	host   string
	cache  URLCache
	now    func() time.Time

	maxUpload int64
}

// Option configures a Store.
type Option func(*Store)

// WithHost overrides the public URL host.
func WithHost(host string) Option {
	return func(s *Store) {
		if host != "" {
			s.host = host
		}
	}
}

// WithURLCache caches signed URLs in c.
func WithURLCache(c URLCache) Option {
	return func(s *Store) { s.cache = c }
}

// WithMaxUploadBytes bounds request bodies accepted by UploadViaRequest.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over bucket. bucket may be nil, in which case every
// operation reports a missing bucket.
func New(bucket Bucket, rec Recorder, opts ...Option) *Store {
	s := &Store{bucket: bucket, audit: rec, host: DefaultHost, now: time.Now, maxUpload: DefaultMaxUploadBytes}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) bucketName() string {
	if s.bucket == nil {
		return ""
	}
	return s.bucket.Name()
}

// ready reports whether bucket, filename and folder are all present.
func (s *Store) ready(filename string, folder models.Folder) bool {
	return s.bucketName() != "" && strings.TrimSpace(filename) != "" && folder.Valid()
}

// Upload writes data under a fresh key in folder, makes it publicly readable
// and returns the stored object with its permanent URL.
func (s *Store) Upload(ctx context.Context, data []byte, filename string, folder models.Folder) (*models.StoredObject, error) {
	const op = "upload"
	rec := &models.AuditRecord{Event: models.EventObjectUpload, Operation: op, Folder: string(folder), Filename: filename}

	if !s.ready(filename, folder) {
		err := fault.New(fault.PreconditionMissing, op, "bucket, filename and folder are required")
		s.failed(ctx, rec, models.LevelError, err)
		return nil, err
	}

	now := s.now().UTC()
	name := ObjectName(now, filename)
	obj := &models.StoredObject{
		Folder:      folder,
		Key:         ObjectKey(folder, name),
		Name:        name,
		ContentType: ContentTypeFor(filename),
		Size:        int64(len(data)),
		CreatedAt:   now,
	}
	rec.Detail = obj.Key

	if err := s.bucket.Write(ctx, obj.Key, obj.ContentType, bytes.NewReader(data)); err != nil {
		ferr := fault.Wrap(fault.Transport, op, "failed to upload file", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return nil, ferr
	}
	if err := s.bucket.MakePublic(ctx, obj.Key); err != nil {
		ferr := fault.Wrap(fault.Transport, op, "failed to make file public", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return nil, ferr
	}

	obj.Public = true
	obj.URL = PublicURL(s.host, s.bucketName(), obj.Key)
	s.succeeded(ctx, rec)
	return obj, nil
}

// PublicURL computes the permanent link of filename in folder without a
// network call. Missing bucket, filename or folder yields ok == false.
func (s *Store) PublicURL(ctx context.Context, filename string, folder models.Folder) (url string, ok bool) {
	rec := &models.AuditRecord{Event: models.EventObjectURL, Operation: "public_url", Folder: string(folder), Filename: filename}
	if !s.ready(filename, folder) {
		rec.Level = models.LevelWarn
		rec.Detail = "bucket, filename or folder missing"
		s.record(ctx, rec)
		return "", false
	}
	url = PublicURL(s.host, s.bucketName(), ObjectKey(folder, filename))
	s.succeeded(ctx, rec)
	return url, true
}

// Delete removes filename from folder. The object must exist.
func (s *Store) Delete(ctx context.Context, filename string, folder models.Folder) error {
	const op = "delete"
	rec := &models.AuditRecord{Event: models.EventObjectDelete, Operation: op, Folder: string(folder), Filename: filename}

	if !s.ready(filename, folder) {
		err := fault.New(fault.PreconditionMissing, op, "bucket, filename and folder are required")
		s.failed(ctx, rec, models.LevelError, err)
		return err
	}
	key := ObjectKey(folder, filename)

	exists, err := s.bucket.Exists(ctx, key)
	if err != nil {
		ferr := fault.Wrap(fault.Transport, op, "failed to check file", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return ferr
	}
	if !exists {
		ferr := fault.New(fault.NotFound, op, "file not found")
		s.failed(ctx, rec, models.LevelWarn, ferr)
		return ferr
	}

	if err := s.bucket.Delete(ctx, key); err != nil {
		ferr := fault.Wrap(fault.Transport, op, "failed to delete file", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return ferr
	}
	s.succeeded(ctx, rec)
	return nil
}

// StreamTo writes the object's bytes to w. Every precondition is checked
// before any header or byte is written; a failure after streaming begins is
// returned but nothing more is written to w.
func (s *Store) StreamTo(ctx context.Context, w http.ResponseWriter, filename string, folder models.Folder) error {
	const op = "stream"
	rec := &models.AuditRecord{Event: models.EventObjectStream, Operation: op, Folder: string(folder), Filename: filename}

	if !s.ready(filename, folder) {
		err := fault.New(fault.PreconditionMissing, op, "bucket, filename and folder are required")
		s.failed(ctx, rec, models.LevelError, err)
		return err
	}
	key := ObjectKey(folder, filename)

	exists, err := s.bucket.Exists(ctx, key)
	if err != nil {
		ferr := fault.Wrap(fault.Transport, op, "failed to check file", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return ferr
	}
	if !exists {
		ferr := fault.New(fault.NotFound, op, "file not found")
		s.failed(ctx, rec, models.LevelWarn, ferr)
		return ferr
	}

	attrs, err := s.bucket.Attrs(ctx, key)
	switch {
	case errors.Is(err, ErrObjectNotExist):
		ferr := fault.New(fault.NotFound, op, "file not found")
		s.failed(ctx, rec, models.LevelWarn, ferr)
		return ferr
	case err != nil:
		ferr := fault.Wrap(fault.Transport, op, "failed to read file metadata", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return ferr
	case attrs == nil || attrs.ContentType == "":
		ferr := fault.New(fault.NotFound, op, "file metadata not found")
		s.failed(ctx, rec, models.LevelWarn, ferr)
		return ferr
	}

	r, err := s.bucket.NewReader(ctx, key)
	if err != nil {
		ferr := fault.Wrap(fault.Transport, op, "failed to open file", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return ferr
	}
	defer r.Close()

	w.Header().Set("Content-Type", attrs.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	n, err := io.Copy(w, r)
	rec.Detail = fmt.Sprintf("%d bytes", n)
	if err != nil {
		ferr := fault.Wrap(fault.Transport, op, "stream interrupted", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return ferr
	}
	s.succeeded(ctx, rec)
	return nil
}

// SignedLink is a temporary read link.
type SignedLink struct {
	URL     string    `json:"url"`
	Expires time.Time `json:"expires_at"`
}

// MaxSignedURLHours is the longest lifetime a V4 signed link may have.
const MaxSignedURLHours = 7 * 24

// SignedURL issues a read-only link to filename valid for hours hours.
// hours <= 0 means one hour; more than MaxSignedURLHours is rejected.
func (s *Store) SignedURL(ctx context.Context, filename string, folder models.Folder, hours int) (*SignedLink, error) {
	const op = "signed_url"
	rec := &models.AuditRecord{Event: models.EventObjectSignedURL, Operation: op, Folder: string(folder), Filename: filename}

	if hours <= 0 {
		hours = 1
	}
	if !s.ready(filename, folder) {
		err := fault.New(fault.PreconditionMissing, op, "bucket, filename and folder are required")
		s.failed(ctx, rec, models.LevelError, err)
		return nil, err
	}
	if hours > MaxSignedURLHours {
		err := fault.New(fault.PreconditionMissing, op, fmt.Sprintf("hours must be between 1 and %d", MaxSignedURLHours))
		s.failed(ctx, rec, models.LevelWarn, err)
		return nil, err
	}
	key := ObjectKey(folder, filename)
	cacheKey := fmt.Sprintf("%s/%s#%dh", s.bucketName(), key, hours)

	if s.cache != nil {
		link, ok, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("signed url cache lookup failed")
		} else if ok && link.URL != "" {
			rec.Detail = "cached; expires " + link.Expires.Format(time.RFC3339)
			s.succeeded(ctx, rec)
			return link, nil
		}
	}

	lifetime := time.Duration(hours) * time.Hour
	expires := s.now().UTC().Add(lifetime)
	url, err := s.bucket.SignedURL(ctx, key, expires)
	if err == nil && url == "" {
		err = errors.New("provider returned an empty URL")
	}
	if err != nil {
		ferr := fault.Wrap(fault.Transport, op, "failed to generate signed URL", err)
		s.failed(ctx, rec, models.LevelError, ferr)
		return nil, ferr
	}

	link := &SignedLink{URL: url, Expires: expires}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, link, lifetime/2); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("signed url cache store failed")
		}
	}
	rec.Detail = "expires " + expires.Format(time.RFC3339)
	s.succeeded(ctx, rec)
	return link, nil
}

func (s *Store) succeeded(ctx context.Context, rec *models.AuditRecord) {
	rec.Success = true
	rec.Level = models.LevelInfo
	s.record(ctx, rec)
}

func (s *Store) failed(ctx context.Context, rec *models.AuditRecord, level string, err error) {
	rec.Success = false
	rec.Level = level
	rec.Error = err.Error()
	s.record(ctx, rec)
}

func (s *Store) record(ctx context.Context, rec *models.AuditRecord) {
	if s.audit == nil {
		log.Warn().Str("event", rec.Event).Msg("object store has no audit sink")
		return
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		log.Error().Err(err).Str("event", rec.Event).Str("filename", rec.Filename).Msg("recording audit event")
	}
}
