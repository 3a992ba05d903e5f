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

	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

// NewMemDatastore keeps objects in memory for any scheme. It stands in for
// S3 in tests and dry runs.
func NewMemDatastore() *Datastore {
	return newDatastore("mem", nil, func(ctx context.Context, bucket string) (*blob.Bucket, error) {
		return memblob.OpenBucket(nil), nil
	})
}
