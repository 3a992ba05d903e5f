//go:build unit

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
package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	loc, err := ParseURI("s3://my-bucket/folder/file.txt")
	require.NoError(t, err)
	assert.Equal(t, Location{Scheme: "s3", Bucket: "my-bucket", Key: "folder/file.txt"}, loc)

	loc, err = ParseURI("s3://my-bucket/")
	require.NoError(t, err)
	assert.Equal(t, "", loc.Key)

	loc, err = ParseURI("mem://bucket")
	require.NoError(t, err)
	assert.Equal(t, "mem", loc.Scheme)
	assert.Equal(t, "bucket", loc.Bucket)

	loc, err = ParseURI("s3://b/key?with#odd-chars")
	require.NoError(t, err)
	assert.Equal(t, "key?with#odd-chars", loc.Key)

	for _, bad := range []string{"", "my-bucket/key", "s3:///key", "://b/k"} {
		_, err = ParseURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitObjectPath(t *testing.T) {
	bucket, key, err := SplitObjectPath("s3://b/AWSDynamoDB/01/manifest-summary.json")
	require.NoError(t, err)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "AWSDynamoDB/01/manifest-summary.json", key)

	_, _, err = SplitObjectPath("s3://b/")
	assert.ErrorContains(t, err, "missing key")
}

func TestLocationStringAndJoin(t *testing.T) {
	loc := Location{Scheme: "s3", Bucket: "b", Key: "prefix/"}
	assert.Equal(t, "s3://b/prefix/", loc.String())
	assert.Equal(t, "s3://b/prefix/AWSDynamoDB/01/data/", loc.Join("AWSDynamoDB", "01", "data/").String())
	assert.Equal(t, "s3://b/prefix/manifest-files.json", loc.Join("manifest-files.json").String())

	root := Location{Scheme: "s3", Bucket: "b"}
	assert.Equal(t, "s3://b/x/y", root.Join("x", "y").String())
	assert.Equal(t, "s3://b/k", NewS3URI("b", "k"))
	assert.True(t, IsS3URI("s3://b/k"))
	assert.False(t, IsS3URI("mem://b/k"))
}
