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

package datafile

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-ddbio/src/datastore"
	"github.com/yugabyte/yb-ddbio/src/ddbjson"
	"github.com/yugabyte/yb-ddbio/src/ionfile"
	"github.com/yugabyte/yb-ddbio/src/manifest"
	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

// Store is the subset of *datastore.Datastore used to move data files.
type Store interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	Create(ctx context.Context, uri string, opts datastore.WriteOptions) (io.WriteCloser, error)
}

// DataFile is one export data file as listed in manifest-files.json.
type DataFile struct {
	ItemCount int64
	MD5       string
	ETag      string
	S3Bucket  string
	S3Key     string
}

func FromManifest(bucket string, f manifest.File) DataFile {
	return DataFile{
		ItemCount: f.ItemCount,
		MD5:       f.MD5Checksum,
		ETag:      f.ETag,
		S3Bucket:  bucket,
		S3Key:     f.DataFileS3Key,
	}
}

func (d DataFile) URI() string {
	return s3.NewS3URI(d.S3Bucket, d.S3Key)
}

func (d DataFile) ReadItems(ctx context.Context, store Store) ([]ddbjson.Item, error) {
	items, err := ReadItems(ctx, store, d.URI())
	if err != nil {
		return nil, err
	}
	d.checkCount(len(items))
	return items, nil
}

func (d DataFile) checkCount(n int) {
	if d.ItemCount > 0 && int64(n) != d.ItemCount {
		log.Warnf("data file %s: manifest lists %d items, read %d", d.URI(), d.ItemCount, n)
	}
}

// ReadDataFileRecords reads one data file of an export into T. It is a
// function rather than a method because methods cannot be generic.
func ReadDataFileRecords[T any](ctx context.Context, store Store, d DataFile, format Format) ([]T, error) {
	records, err := ReadRecords[T](ctx, store, d.URI(), format)
	if err != nil {
		return nil, err
	}
	d.checkCount(len(records))
	return records, nil
}

// WalkIonLines calls fn with each record line of an Ion data file, exactly
// as the service wrote it minus the version markers. Annotations such as
// $dynamodb_SS:: survive, which a decode into Go values would drop.
func (d DataFile) WalkIonLines(ctx context.Context, store Store, fn func(line []byte) error) (int64, error) {
	r, err := store.Open(ctx, d.URI())
	if err != nil {
		return 0, err
	}
	defer r.Close()
	zr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("read %s: open gzip reader: %w", d.URI(), err)
	}
	defer zr.Close()
	log.Infof("reading Ion data file %s", d.URI())
	var count int64
	err = ionfile.ScanLines(zr, func(n int, line []byte) error {
		if err := ionfile.CheckRecord(line); err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		if err := fn(line); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("read %s: %w", d.URI(), err)
	}
	d.checkCount(int(count))
	return count, nil
}

func ReadItems(ctx context.Context, store Store, uri string) ([]ddbjson.Item, error) {
	r, err := store.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	log.Infof("reading DynamoDB JSON data file %s", uri)
	items, err := DecodeItems(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return items, nil
}

func ReadIon[T any](ctx context.Context, store Store, uri string) ([]T, error) {
	r, err := store.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	log.Infof("reading Ion data file %s", uri)
	records, err := DecodeIon[T](r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return records, nil
}

func ReadRecords[T any](ctx context.Context, store Store, uri string, format Format) ([]T, error) {
	r, err := store.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	log.Infof("reading %s data file %s", format, uri)
	records, err := DecodeRecords[T](r, format)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	return records, nil
}

func WriteItems(ctx context.Context, store Store, uri string, items []ddbjson.Item) error {
	return write(ctx, store, uri, DYNAMODB_JSON, func(w io.Writer) error {
		return EncodeItems(w, items)
	})
}

// WriteIon writes an Ion data file. Number attributes that DynamoDB should
// import as numbers must be *ion.Decimal; the service rejects Ion integers
// and floats.
func WriteIon[T any](ctx context.Context, store Store, uri string, records []T) error {
	return write(ctx, store, uri, ION, func(w io.Writer) error {
		return EncodeIon(w, records)
	})
}

func WriteRecords[T any](ctx context.Context, store Store, uri string, format Format, records []T) error {
	return write(ctx, store, uri, format, func(w io.Writer) error {
		return EncodeRecords(w, format, records)
	})
}

func write(ctx context.Context, store Store, uri string, format Format, encode func(io.Writer) error) error {
	// cancelling before Close discards a partially written object
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := store.Create(ctx, uri, datastore.WriteOptions{
		ContentType:     format.ContentType(),
		ContentEncoding: GZIP_CONTENT_ENCODING,
	})
	if err != nil {
		return err
	}
	if err := encode(w); err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("write %s: %w", uri, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", uri, err)
	}
	log.Infof("wrote %s data file %s", format, uri)
	return nil
}
