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

package datafile

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/amazon-ion/ion-go/ion"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/yb-ddbio/src/datastore"
	"github.com/yugabyte/yb-ddbio/src/ddbjson"
	"github.com/yugabyte/yb-ddbio/src/manifest"
)

type product struct {
	ID    string   `dynamodbav:"id" ion:"id"`
	Price float64  `dynamodbav:"price" ion:"price"`
	Tags  []string `dynamodbav:"tags,stringset" ion:"tags"`
}

var products = []product{
	{ID: "p-1", Price: 9.5, Tags: []string{"new"}},
	{ID: "p-2", Price: 20, Tags: []string{"a", "b"}},
}

func gzipString(t *testing.T, s string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("dynamodb_json")
	require.NoError(t, err)
	assert.Equal(t, DYNAMODB_JSON, f)
	f, err = ParseFormat(" ION ")
	require.NoError(t, err)
	assert.Equal(t, ION, f)
	_, err = ParseFormat("csv")
	assert.Error(t, err)

	assert.Equal(t, "application/json", DYNAMODB_JSON.ContentType())
	assert.Equal(t, "text/plain", ION.ContentType())
	assert.Equal(t, ".ion.gz", ION.FileExtension())
}

func TestDecodeExportedJSONFile(t *testing.T) {
	data := gzipString(t,
		`{"Item":{"id":{"S":"p-1"},"price":{"N":"9.5"}}}`+"\n"+
			`{"Item":{"id":{"S":"p-2"},"price":{"N":"20"}}}`+"\n")
	items, err := DecodeItems(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "p-1"}, items[0]["id"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "20"}, items[1]["price"])
}

func TestDecodeExportedIonFile(t *testing.T) {
	type priced struct {
		ID    string       `ion:"id"`
		Price *ion.Decimal `ion:"price"`
	}
	data := gzipString(t,
		"$ion_1_0 {Item:{id:\"p-1\",price:9.5}}\n"+
			"$ion_1_0 {Item:{id:\"p-2\",price:20.}}\n")
	got, err := DecodeRecords[priced](bytes.NewReader(data), ION)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-1", got[0].ID)
	assert.True(t, got[1].Price.Equal(ion.MustParseDecimal("20")))
}

func TestWalkIonLines(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemDatastore()
	defer store.Close()
	df := DataFile{ItemCount: 2, S3Bucket: "bkt", S3Key: "AWSDynamoDB/01/data/a.ion.gz"}
	require.NoError(t, store.WriteAll(ctx, df.URI(), gzipString(t,
		"$ion_1_0 {Item:{id:\"a\",tags:$dynamodb_SS::[\"x\"]}}\n"+
			"$ion_1_0 {Item:{id:\"b\"}}\n"), datastore.WriteOptions{}))

	var lines []string
	n, err := df.WalkIonLines(ctx, store, func(line []byte) error {
		lines = append(lines, string(line))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{`{Item:{id:"a",tags:$dynamodb_SS::["x"]}}`, `{Item:{id:"b"}}`}, lines)
}

func TestEncodeItemsLineFormat(t *testing.T) {
	items := []ddbjson.Item{{"id": &types.AttributeValueMemberS{Value: "x"}}}
	var buf bytes.Buffer
	require.NoError(t, EncodeItems(&buf, items))

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, `{"Item":{"id":{"S":"x"}}}`+"\n", string(raw))
}

func TestDecodeItemsErrors(t *testing.T) {
	_, err := DecodeItems(strings.NewReader("not gzip"))
	assert.Error(t, err)

	_, err = DecodeItems(bytes.NewReader(gzipString(t, `{"Item":{"id":{"S":"a"}}}`+"\n"+`{"Item":{"id":{"Q":1}}}`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = DecodeItems(bytes.NewReader(gzipString(t, `{"NewImage":{}}`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Item")

	_, err = DecodeItems(bytes.NewReader(gzipString(t, `{"Item":null}`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")

	_, err = DecodeItems(bytes.NewReader(gzipString(t, `{"Item":{"id":{"S":null}}}`)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S value is null")
}

func TestRecordsRoundTripBothFormats(t *testing.T) {
	for _, format := range []Format{DYNAMODB_JSON, ION} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeRecords(&buf, format, products))
			got, err := DecodeRecords[product](&buf, format)
			require.NoError(t, err)
			assert.Equal(t, products, got)
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, EncodeRecords(&buf, Format("CSV"), products))
	_, err := DecodeRecords[product](&buf, Format("CSV"))
	assert.Error(t, err)
}

func TestWriteAndReadThroughDatastore(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMemDatastore()
	defer store.Close()

	items := []ddbjson.Item{
		{"id": &types.AttributeValueMemberS{Value: "a"}, "n": &types.AttributeValueMemberN{Value: "1"}},
		{"id": &types.AttributeValueMemberS{Value: "b"}, "l": &types.AttributeValueMemberL{Value: []types.AttributeValue{}}},
	}
	uri := "s3://bucket/import/data/1.json.gz"
	require.NoError(t, WriteItems(ctx, store, uri, items))
	got, err := ReadItems(ctx, store, uri)
	require.NoError(t, err)
	assert.Equal(t, items, got)

	ionURI := "s3://bucket/import/data/1.ion.gz"
	require.NoError(t, WriteIon(ctx, store, ionURI, products))
	gotProducts, err := ReadIon[product](ctx, store, ionURI)
	require.NoError(t, err)
	assert.Equal(t, products, gotProducts)

	recURI := "s3://bucket/import/data/2.json.gz"
	require.NoError(t, WriteRecords(ctx, store, recURI, DYNAMODB_JSON, products))
	gotProducts, err = ReadRecords[product](ctx, store, recURI, DYNAMODB_JSON)
	require.NoError(t, err)
	assert.Equal(t, products, gotProducts)

	_, err = ReadItems(ctx, store, "s3://bucket/missing.json.gz")
	assert.True(t, datastore.IsNotFound(err))
}

type captureStore struct {
	opts  datastore.WriteOptions
	bytes.Buffer
}

func (c *captureStore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(c.Bytes())), nil
}

func (c *captureStore) Create(ctx context.Context, uri string, opts datastore.WriteOptions) (io.WriteCloser, error) {
	c.opts = opts
	return nopWriteCloser{&c.Buffer}, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestWriteSetsContentHeaders(t *testing.T) {
	ctx := context.Background()
	store := &captureStore{}
	require.NoError(t, WriteRecords(ctx, store, "mem://b/k", DYNAMODB_JSON, products))
	assert.Equal(t, datastore.WriteOptions{ContentType: "application/json", ContentEncoding: "gzip"}, store.opts)

	store = &captureStore{}
	require.NoError(t, WriteIon(ctx, store, "mem://b/k", products))
	assert.Equal(t, datastore.WriteOptions{ContentType: "text/plain", ContentEncoding: "gzip"}, store.opts)
}

func TestDataFileFromManifest(t *testing.T) {
	d := FromManifest("bkt", manifest.File{
		ItemCount:     2,
		MD5Checksum:   "md5",
		ETag:          "etag",
		DataFileS3Key: "p/AWSDynamoDB/01-ab/data/x.json.gz",
	})
	assert.Equal(t, "s3://bkt/p/AWSDynamoDB/01-ab/data/x.json.gz", d.URI())
	assert.Equal(t, int64(2), d.ItemCount)

	store := datastore.NewMemDatastore()
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, WriteRecords(ctx, store, d.URI(), DYNAMODB_JSON, products))
	items, err := d.ReadItems(ctx, store)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	recs, err := ReadDataFileRecords[product](ctx, store, d, DYNAMODB_JSON)
	require.NoError(t, err)
	assert.Equal(t, products, recs)
}
