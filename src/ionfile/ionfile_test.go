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

package ionfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/amazon-ion/ion-go/ion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID     int64    `ion:"id"`
	Name   string   `ion:"name"`
	Active bool     `ion:"active"`
	Tags   []string `ion:"tags"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	users := []user{
		{ID: 1, Name: "Alice", Active: true, Tags: []string{"admin"}},
		{ID: 2, Name: "Bob", Tags: []string{"a", "b"}},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, users))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "{Item:"), line)
	}

	got, err := DecodeAll[user](&buf)
	require.NoError(t, err)
	assert.Equal(t, users, got)
}

func TestDecodeExportLines(t *testing.T) {
	data := "$ion_1_0 {Item:{id:1,name:\"Alice\",active:true,tags:[\"x\"]}}\n" +
		"$ion_1_0 {Item:{id:2,name:\"Bob\",active:false,tags:[]}}\n"
	got, err := DecodeAll[user](strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, int64(2), got[1].ID)
}

func TestDecimalNumbers(t *testing.T) {
	type priced struct {
		Sku   string       `ion:"sku"`
		Price *ion.Decimal `ion:"price"`
	}
	line, err := MarshalRecord(priced{Sku: "a-1", Price: ion.MustParseDecimal("12.5")})
	require.NoError(t, err)
	assert.Contains(t, string(line), "12.5")
	assert.NotContains(t, string(line), "\n")

	got, err := UnmarshalRecord[priced](line)
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.Sku)
	assert.True(t, got.Price.Equal(ion.MustParseDecimal("12.5")))
}

func TestDecodeStopsOnCallbackError(t *testing.T) {
	data := "{Item:{id:1}}\n{Item:{id:2}}\n"
	stop := errors.New("stop")
	seen := 0
	err := Decode(strings.NewReader(data), func(u user) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := DecodeAll[user](strings.NewReader("{Item:{id:1}}\n{Item:{id:"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
}

func TestDecodeEmpty(t *testing.T) {
	got, err := DecodeAll[user](strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeVersionMarkerPlacement(t *testing.T) {
	type keyed struct {
		ID *ion.Decimal `ion:"id"`
	}
	tests := []struct {
		name string
		data string
		want []string
	}{
		{name: "first line only", data: "$ion_1_0\n{Item:{id:1.}}\n{Item:{id:2.}}\n", want: []string{"1", "2"}},
		{name: "mid stream", data: "{Item:{id:1.}}\n$ion_1_0 {Item:{id:2.}}\n", want: []string{"1", "2"}},
		{name: "every line", data: "$ion_1_0 {Item:{id:1.}}\n$ion_1_0 {Item:{id:2.}}\n", want: []string{"1", "2"}},
		{name: "single record", data: "$ion_1_0 {Item:{id:1.}}", want: []string{"1"}},
		{name: "repeated marker", data: "$ion_1_0 $ion_1_0 {Item:{id:3.}}\n", want: []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAll[keyed](strings.NewReader(tt.data))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.True(t, got[i].ID.Equal(ion.MustParseDecimal(want)), "record %d: %v", i+1, got[i].ID)
			}
		})
	}
}

func TestUnmarshalRecordWithMarker(t *testing.T) {
	got, err := UnmarshalRecord[user]([]byte(`$ion_1_0 {Item:{id:7,name:"Zed"}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "Zed", got.Name)
}

func TestStripVersionMarker(t *testing.T) {
	assert.Equal(t, "{Item:{}}", string(StripVersionMarker([]byte("$ion_1_0 {Item:{}}"))))
	assert.Equal(t, "{Item:{}}", string(StripVersionMarker([]byte("  $ion_1_0{Item:{}} \r"))))
	assert.Equal(t, "", string(StripVersionMarker([]byte("$ion_1_0"))))
	// a symbol that merely starts with the marker text is left alone
	assert.Equal(t, "$ion_1_0x", string(StripVersionMarker([]byte("$ion_1_0x"))))
}

func TestScanLinesKeepsAnnotations(t *testing.T) {
	data := "$ion_1_0 {Item:{id:\"a\",tags:$dynamodb_SS::[\"x\",\"y\"]}}\n\n$ion_1_0\n{Item:{id:\"b\"}}\n"
	var lines []string
	var nums []int
	err := ScanLines(strings.NewReader(data), func(n int, line []byte) error {
		nums = append(nums, n)
		lines = append(lines, string(line))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, nums)
	assert.Equal(t, []string{
		`{Item:{id:"a",tags:$dynamodb_SS::["x","y"]}}`,
		`{Item:{id:"b"}}`,
	}, lines)
}

func TestCheckRecord(t *testing.T) {
	assert.NoError(t, CheckRecord([]byte(`{Item:{id:"a",n:$dynamodb_NS::[1.,2.]}}`)))
	assert.Error(t, CheckRecord([]byte(`"just a string"`)))
	assert.Error(t, CheckRecord([]byte(`{Item:{}} {Item:{}}`)))
	assert.Error(t, CheckRecord([]byte(`{Item:{id:`)))
	assert.Error(t, CheckRecord(nil))
}
