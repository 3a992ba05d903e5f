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
// Implementation of the datastore for when the data files are available on the
// machine running yb-ddbio, e.g. an export copied down with "aws s3 sync".
package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

// NewLocalDatastore maps scheme://bucket/key to rootDir/bucket/key for any
// scheme, so s3:// URIs of a synced export resolve to the local copy.
func NewLocalDatastore(rootDir string) *Datastore {
	return newDatastore("local", nil, func(ctx context.Context, bucket string) (*blob.Bucket, error) {
		dir := filepath.Join(rootDir, bucket)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
		return fileblob.OpenBucket(dir, nil)
	})
}
