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
// Implementation of the datastore for when the data files are hosted on an s3 bucket.
package datastore

import (
	"context"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"gocloud.dev/blob"
	"gocloud.dev/blob/s3blob"

	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

func NewS3Datastore(client *awss3.Client) *Datastore {
	return newDatastore("s3", []string{s3.S3_SCHEME}, func(ctx context.Context, bucket string) (*blob.Bucket, error) {
		return s3blob.OpenBucketV2(ctx, client, bucket, nil)
	})
}
