// Package objectstoretest provides an in-memory objectstore.Bucket.
package objectstoretest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing/iotest"
	"time"

	"github.com/org/examvault/internal/objectstore"
)

// ErrInjected is the default failure returned by a method set to fail.
var ErrInjected = errors.New("injected bucket failure")

// Object is one stored payload.
type Object struct {
	Data        []byte
	ContentType string
	Public      bool
	Created     time.Time
}

// Bucket is an in-memory objectstore.Bucket with per-method failure
// injection and call counters. Method names used by Fail and Calls are
// "write", "public", "exists", "attrs", "read", "delete" and "sign".
type Bucket struct {
	mu      sync.Mutex
	name    string
	objects map[string]*Object
	fail    map[string]error
	calls   map[string]int
	// breakAfter, when >= 0, makes readers fail once that many bytes are read.
	breakAfter int
	// SignedURLOverride, when non-nil, replaces the generated signed URL.
	SignedURLOverride *string
}

var _ objectstore.Bucket = (*Bucket)(nil)

// New returns an empty bucket called name.
func New(name string) *Bucket {
	return &Bucket{
		name:    name,
		objects: map[string]*Object{},
		fail:    map[string]error{},
		calls:   map[string]int{},

		breakAfter: -1,
	}
}

// BreakReadsAfter makes every reader opened afterwards return ErrInjected
// once n bytes have been delivered.
func (b *Bucket) BreakReadsAfter(n int) {
	b.mu.Lock()
	b.breakAfter = n
	b.mu.Unlock()
}

// Fail makes method return err (ErrInjected when err is nil).
func (b *Bucket) Fail(method string, err error) {
	if err == nil {
		err = ErrInjected
	}
	b.mu.Lock()
	b.fail[method] = err
	b.mu.Unlock()
}

// Calls returns how many times method was invoked.
func (b *Bucket) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// Put stores an object directly, bypassing counters.
func (b *Bucket) Put(key, contentType string, data []byte) {
	b.mu.Lock()
	b.objects[key] = &Object{Data: data, ContentType: contentType, Created: time.Now()}
	b.mu.Unlock()
}

// Get returns a copy of the object at key.
func (b *Bucket) Get(key string) (Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[key]
	if !ok {
		return Object{}, false
	}
	return *o, true
}

// Len returns the number of stored objects.
func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func (b *Bucket) enter(method string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[method]++
	return b.fail[method]
}

func (b *Bucket) Name() string { return b.name }

func (b *Bucket) Write(_ context.Context, key, contentType string, r io.Reader) error {
	if err := b.enter("write"); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.Put(key, contentType, data)
	return nil
}

func (b *Bucket) MakePublic(_ context.Context, key string) error {
	if err := b.enter("public"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[key]
	if !ok {
		return objectstore.ErrObjectNotExist
	}
	o.Public = true
	return nil
}

func (b *Bucket) Exists(_ context.Context, key string) (bool, error) {
	if err := b.enter("exists"); err != nil {
		return false, err
	}
	_, ok := b.Get(key)
	return ok, nil
}

func (b *Bucket) Attrs(_ context.Context, key string) (*objectstore.ObjectAttrs, error) {
	if err := b.enter("attrs"); err != nil {
		return nil, err
	}
	o, ok := b.Get(key)
	if !ok {
		return nil, objectstore.ErrObjectNotExist
	}
	return &objectstore.ObjectAttrs{ContentType: o.ContentType, Size: int64(len(o.Data)), Created: o.Created}, nil
}

func (b *Bucket) NewReader(_ context.Context, key string) (io.ReadCloser, error) {
	if err := b.enter("read"); err != nil {
		return nil, err
	}
	o, ok := b.Get(key)
	if !ok {
		return nil, objectstore.ErrObjectNotExist
	}
	b.mu.Lock()
	limit := b.breakAfter
	b.mu.Unlock()
	if limit >= 0 && limit < len(o.Data) {
		return io.NopCloser(io.MultiReader(bytes.NewReader(o.Data[:limit]), iotest.ErrReader(ErrInjected))), nil
	}
	return io.NopCloser(bytes.NewReader(o.Data)), nil
}

func (b *Bucket) Delete(_ context.Context, key string) error {
	if err := b.enter("delete"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[key]; !ok {
		return objectstore.ErrObjectNotExist
	}
	delete(b.objects, key)
	return nil
}

func (b *Bucket) SignedURL(_ context.Context, key string, expires time.Time) (string, error) {
	if err := b.enter("sign"); err != nil {
		return "", err
	}
	if b.SignedURLOverride != nil {
		return *b.SignedURLOverride, nil
	}
	return fmt.Sprintf("https://signed.test/%s/%s?X-Goog-Expires=%d", b.name, key, expires.Unix()), nil
}
