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

package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/yb-ddbio/src/datafile"
	"github.com/yugabyte/yb-ddbio/src/datastore"
	"github.com/yugabyte/yb-ddbio/src/ddbjson"
	"github.com/yugabyte/yb-ddbio/src/exportjob"
	"github.com/yugabyte/yb-ddbio/src/manifest"
	"github.com/yugabyte/yb-ddbio/src/utils/s3"
)

const (
	readTestBucket = "exports-bucket"
	readTestArn    = "arn:aws:dynamodb:us-east-1:111122223333:table/orders/export/01672531200000-a1b2c3d4"
)

func completedExport(format datafile.Format) *exportjob.Job {
	return &exportjob.Job{
		Arn:      readTestArn,
		Status:   exportjob.COMPLETED,
		Format:   format,
		S3Bucket: readTestBucket,
		S3Prefix: "nightly/",
	}
}

// writeDataFiles stores one data file per batch plus manifest-files.json.
func writeDataFiles(t *testing.T, ds *datastore.Datastore, job *exportjob.Job, batches [][]string) {
	ctx := context.Background()
	dir := manifest.ExportDir(job.S3Prefix, job.ShortID())
	var files []manifest.File
	for i, ids := range batches {
		key := dir + manifest.DATA_DIR_NAME + string(rune('a'+i)) + job.Format.FileExtension()
		uri := s3.NewS3URI(readTestBucket, key)
		if job.Format == datafile.ION {
			records := make([]map[string]any, 0, len(ids))
			for _, id := range ids {
				records = append(records, map[string]any{"id": id})
			}
			require.NoError(t, datafile.WriteIon(ctx, ds, uri, records))
		} else {
			items := make([]ddbjson.Item, 0, len(ids))
			for _, id := range ids {
				items = append(items, ddbjson.Item{"id": &types.AttributeValueMemberS{Value: id}})
			}
			require.NoError(t, datafile.WriteItems(ctx, ds, uri, items))
		}
		files = append(files, manifest.File{ItemCount: int64(len(ids)), DataFileS3Key: key})
	}
	var buf bytes.Buffer
	require.NoError(t, manifest.WriteFiles(&buf, files))
	require.NoError(t, ds.WriteAll(ctx, job.S3URIManifestFiles(), buf.Bytes(), datastore.WriteOptions{}))
}

func TestReadExportDynamoDBJSON(t *testing.T) {
	ds := datastore.NewMemDatastore()
	defer ds.Close()
	job := completedExport(datafile.DYNAMODB_JSON)
	writeDataFiles(t, ds, job, [][]string{{"a", "b"}, {"c"}})

	var out bytes.Buffer
	count, err := readExport(context.Background(), job, nil, ds, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, []string{
		`{"Item":{"id":{"S":"a"}}}`,
		`{"Item":{"id":{"S":"b"}}}`,
		`{"Item":{"id":{"S":"c"}}}`,
	}, strings.Split(strings.TrimSpace(out.String()), "\n"))
}

func TestReadExportIon(t *testing.T) {
	ds := datastore.NewMemDatastore()
	defer ds.Close()
	job := completedExport(datafile.ION)
	writeDataFiles(t, ds, job, [][]string{{"a"}, {"b"}})

	var out bytes.Buffer
	count, err := readExport(context.Background(), job, nil, ds, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, "{Item:{id:\"a\"}}\n{Item:{id:\"b\"}}\n", out.String())
}

func TestReadExportMissingManifest(t *testing.T) {
	ds := datastore.NewMemDatastore()
	defer ds.Close()

	var out bytes.Buffer
	_, err := readExport(context.Background(), completedExport(datafile.DYNAMODB_JSON), nil, ds, &out)
	require.Error(t, err)
	assert.True(t, datastore.IsNotFound(err))
	assert.Empty(t, out.String())
}

func TestReadExportWrongFormat(t *testing.T) {
	ds := datastore.NewMemDatastore()
	defer ds.Close()
	job := completedExport(datafile.ION)
	writeDataFiles(t, ds, job, [][]string{{"a"}})

	job.Format = datafile.DYNAMODB_JSON
	var out bytes.Buffer
	_, err := readExport(context.Background(), job, nil, ds, &out)
	assert.Error(t, err)
}

// writeRawIonExport stores lines verbatim as a single gzipped Ion data file.
func writeRawIonExport(t *testing.T, ds *datastore.Datastore, job *exportjob.Job, lines []string) {
	ctx := context.Background()
	key := manifest.ExportDir(job.S3Prefix, job.ShortID()) + manifest.DATA_DIR_NAME + "raw" + job.Format.FileExtension()
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, ds.WriteAll(ctx, s3.NewS3URI(readTestBucket, key), gz.Bytes(), datastore.WriteOptions{}))

	var buf bytes.Buffer
	require.NoError(t, manifest.WriteFiles(&buf, []manifest.File{{ItemCount: int64(len(lines)), DataFileS3Key: key}}))
	require.NoError(t, ds.WriteAll(ctx, job.S3URIManifestFiles(), buf.Bytes(), datastore.WriteOptions{}))
}

func TestReadExportIonKeepsSetAnnotations(t *testing.T) {
	ds := datastore.NewMemDatastore()
	defer ds.Close()
	job := completedExport(datafile.ION)
	writeRawIonExport(t, ds, job, []string{
		`$ion_1_0 {Item:{id:"a",tags:$dynamodb_SS::["x","y"],n:$dynamodb_NS::[1.,2.]}}`,
		`$ion_1_0 {Item:{id:"b",blobs:$dynamodb_BS::[{{aGk=}}]}}`,
	})

	var out bytes.Buffer
	count, err := readExport(context.Background(), job, nil, ds, &out)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, []string{
		`{Item:{id:"a",tags:$dynamodb_SS::["x","y"],n:$dynamodb_NS::[1.,2.]}}`,
		`{Item:{id:"b",blobs:$dynamodb_BS::[{{aGk=}}]}}`,
	}, strings.Split(strings.TrimSpace(out.String()), "\n"))
}

func TestReadExportIonMalformedRecord(t *testing.T) {
	ds := datastore.NewMemDatastore()
	defer ds.Close()
	job := completedExport(datafile.ION)
	writeRawIonExport(t, ds, job, []string{
		`$ion_1_0 {Item:{id:"a"}}`,
		`$ion_1_0 {Item:{id:`,
	})

	var out bytes.Buffer
	count, err := readExport(context.Background(), job, nil, ds, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
	assert.Equal(t, int64(1), count)
}
