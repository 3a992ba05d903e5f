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
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	"github.com/yugabyte/yb-ddbio/src/ddbjson"
	"github.com/yugabyte/yb-ddbio/src/ionfile"
)

const maxLineSize = 64 * 1024 * 1024

type jsonRecord struct {
	Item json.RawMessage `json:"Item"`
}

// EncodeItems writes items as a gzip compressed DynamoDB JSON data file.
func EncodeItems(w io.Writer, items []ddbjson.Item) error {
	zw := gzip.NewWriter(w)
	for i, item := range items {
		data, err := ddbjson.MarshalItem(item)
		if err != nil {
			zw.Close()
			return fmt.Errorf("encode item %d: %w", i, err)
		}
		var line bytes.Buffer
		line.Grow(len(data) + 10)
		line.WriteString(`{"Item":`)
		line.Write(data)
		line.WriteString("}\n")
		if _, err := zw.Write(line.Bytes()); err != nil {
			zw.Close()
			return fmt.Errorf("write item %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip writer: %w", err)
	}
	return nil
}

// DecodeItems reads a gzip compressed DynamoDB JSON data file.
func DecodeItems(r io.Reader) ([]ddbjson.Item, error) {
	var items []ddbjson.Item
	err := decodeItemsFunc(r, func(item ddbjson.Item) error {
		items = append(items, item)
		return nil
	})
	return items, err
}

func decodeItemsFunc(r io.Reader, fn func(ddbjson.Item) error) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec jsonRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if len(rec.Item) == 0 || bytes.Equal(rec.Item, []byte("null")) {
			return fmt.Errorf("line %d: record has no Item", lineNum)
		}
		item, err := ddbjson.UnmarshalItem(rec.Item)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read data file: %w", err)
	}
	return nil
}

// EncodeIon writes records as a gzip compressed Ion data file.
func EncodeIon[T any](w io.Writer, records []T) error {
	zw := gzip.NewWriter(w)
	if err := ionfile.Encode(zw, records); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close gzip writer: %w", err)
	}
	return nil
}

// DecodeIon reads a gzip compressed Ion data file.
func DecodeIon[T any](r io.Reader) ([]T, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()
	return ionfile.DecodeAll[T](zr)
}

// EncodeRecords converts records to the given format. DynamoDB JSON records
// go through attributevalue.MarshalMap, so T uses dynamodbav tags for that
// format and ion tags for Ion.
func EncodeRecords[T any](w io.Writer, format Format, records []T) error {
	switch format {
	case DYNAMODB_JSON:
		items := make([]ddbjson.Item, 0, len(records))
		for i, rec := range records {
			item, err := attributevalue.MarshalMap(rec)
			if err != nil {
				return fmt.Errorf("convert record %d: %w", i, err)
			}
			items = append(items, item)
		}
		return EncodeItems(w, items)
	case ION:
		return EncodeIon(w, records)
	default:
		return fmt.Errorf("unsupported data file format %q", format)
	}
}

func DecodeRecords[T any](r io.Reader, format Format) ([]T, error) {
	switch format {
	case DYNAMODB_JSON:
		var records []T
		err := decodeItemsFunc(r, func(item ddbjson.Item) error {
			var rec T
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return fmt.Errorf("convert item: %w", err)
			}
			records = append(records, rec)
			return nil
		})
		return records, err
	case ION:
		return DecodeIon[T](r)
	default:
		return nil, fmt.Errorf("unsupported data file format %q", format)
	}
}
