/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

// BucketOpener returns a handle on the named bucket.
type BucketOpener func(ctx context.Context, bucket string) (*blob.Bucket, error)

// Datastore gives read/write access to objects addressed as
// scheme://bucket/key. Opened buckets are cached; a Datastore is safe for
// concurrent use.
type Datastore struct {
	name    string
	schemes []string // nil accepts any scheme
	open    BucketOpener

	mu      sync.Mutex
	buckets map[string]*blob.Bucket
}

// WriteOptions are attached to objects created through the Datastore.
type WriteOptions struct {
	ContentType     string
	ContentEncoding string
}

func newDatastore(name string, schemes []string, open BucketOpener) *Datastore {
	return &Datastore{
		name:    name,
		schemes: schemes,
		open:    open,
		buckets: make(map[string]*blob.Bucket),
	}
}

func (ds *Datastore) String() string {
	return ds.name
}

func (ds *Datastore) bucket(ctx context.Context, uri string) (*blob.Bucket, s3.Location, error) {
	loc, err := s3.ParseURI(uri)
	if err != nil {
		return nil, s3.Location{}, err
	}
	if ds.schemes != nil && !lo.Contains(ds.schemes, loc.Scheme) {
		return nil, s3.Location{}, fmt.Errorf("%s datastore cannot serve %q", ds.name, uri)
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	if b, ok := ds.buckets[loc.Bucket]; ok {
		return b, loc, nil
	}
	b, err := ds.open(ctx, loc.Bucket)
	if err != nil {
		return nil, s3.Location{}, fmt.Errorf("open bucket %s: %w", loc.Bucket, err)
	}
	log.Debugf("opened %s bucket %q", ds.name, loc.Bucket)
	ds.buckets[loc.Bucket] = b
	return b, loc, nil
}

func (ds *Datastore) objectBucket(ctx context.Context, uri string) (*blob.Bucket, string, error) {
	b, loc, err := ds.bucket(ctx, uri)
	if err != nil {
		return nil, "", err
	}
	if loc.Key == "" {
		return nil, "", fmt.Errorf("missing key in object url %q", uri)
	}
	return b, loc.Key, nil
}

// Open returns a reader over the object's content.
func (ds *Datastore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	b, key, err := ds.objectBucket(ctx, uri)
	if err != nil {
		return nil, err
	}
	r, err := b.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, wrapNotFound(err))
	}
	return r, nil
}

func (ds *Datastore) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	b, key, err := ds.objectBucket(ctx, uri)
	if err != nil {
		return nil, err
	}
	data, err := b.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, wrapNotFound(err))
	}
	return data, nil
}

// Create returns a writer for the object. The object only becomes visible
// once the writer is closed without error.
func (ds *Datastore) Create(ctx context.Context, uri string, opts WriteOptions) (io.WriteCloser, error) {
	b, key, err := ds.objectBucket(ctx, uri)
	if err != nil {
		return nil, err
	}
	w, err := b.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", uri, err)
	}
	return w, nil
}

func (ds *Datastore) WriteAll(ctx context.Context, uri string, data []byte, opts WriteOptions) error {
	b, key, err := ds.objectBucket(ctx, uri)
	if err != nil {
		return err
	}
	err = b.WriteAll(ctx, key, data, &blob.WriterOptions{
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", uri, err)
	}
	log.Infof("wrote %d bytes to %s", len(data), uri)
	return nil
}

func (ds *Datastore) Exists(ctx context.Context, uri string) (bool, error) {
	b, key, err := ds.objectBucket(ctx, uri)
	if err != nil {
		return false, err
	}
	return b.Exists(ctx, key)
}

func (ds *Datastore) FileSize(ctx context.Context, uri string) (int64, error) {
	b, key, err := ds.objectBucket(ctx, uri)
	if err != nil {
		return 0, err
	}
	attrs, err := b.Attributes(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", uri, wrapNotFound(err))
	}
	return attrs.Size, nil
}

// List returns the URIs of every object under the given prefix, recursively.
func (ds *Datastore) List(ctx context.Context, prefixURI string) ([]string, error) {
	b, loc, err := ds.bucket(ctx, prefixURI)
	if err != nil {
		return nil, err
	}
	var uris []string
	iter := b.List(&blob.ListOptions{Prefix: loc.Key})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefixURI, err)
		}
		if obj.IsDir {
			continue
		}
		uris = append(uris, s3.Location{Scheme: loc.Scheme, Bucket: loc.Bucket, Key: obj.Key}.String())
	}
	return uris, nil
}

// Glob returns the URIs under prefixURI whose key, relative to the prefix,
// matches pattern (path.Match syntax, "*" does not cross "/").
func (ds *Datastore) Glob(ctx context.Context, prefixURI string, pattern string) ([]string, error) {
	loc, err := s3.ParseURI(prefixURI)
	if err != nil {
		return nil, err
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	all, err := ds.List(ctx, prefixURI)
	if err != nil {
		return nil, err
	}
	base := loc.String()
	return lo.Filter(all, func(uri string, _ int) bool {
		matched, _ := path.Match(pattern, strings.TrimPrefix(uri, base))
		return matched
	}), nil
}

func (ds *Datastore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	var errs []error
	for name, b := range ds.buckets {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bucket %s: %w", name, err))
		}
	}
	ds.buckets = make(map[string]*blob.Bucket)
	return errors.Join(errs...)
}

// IsNotFound reports whether err is a missing-object error from any backend.
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist) || gcerrors.Code(err) == gcerrors.NotFound
}

func wrapNotFound(err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("%w: %v", os.ErrNotExist, err)
	}
	return err
}
