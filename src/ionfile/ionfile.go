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

// Package ionfile reads and writes the Amazon Ion text records found in
// DynamoDB exports and accepted by DynamoDB imports:
//
//	$ion_1_0 {Item:{id:1.,name:"Alice"}}
//
// Ref: https://docs.aws.amazon.com/amazondynamodb/latest/developerguide/S3DataExport.Output.html
package ionfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/amazon-ion/ion-go/ion"
)

const (
	versionMarker = "$ion_1_0"
	maxLineSize   = 64 * 1024 * 1024
)

// Record wraps one item the way the service frames it.
type Record[T any] struct {
	Item T `ion:"Item"`
}

// MarshalRecord renders item as a single line of Ion text, without the
// trailing newline.
func MarshalRecord[T any](item T) ([]byte, error) {
	data, err := ion.MarshalText(Record[T]{Item: item})
	if err != nil {
		return nil, fmt.Errorf("marshal ion record: %w", err)
	}
	data = bytes.TrimSpace(data)
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte(versionMarker)))
	return data, nil
}

// UnmarshalRecord decodes one record line. A leading version marker is
// allowed.
func UnmarshalRecord[T any](data []byte) (T, error) {
	var rec Record[T]
	if err := ion.Unmarshal(StripVersionMarker(data), &rec); err != nil {
		return rec.Item, fmt.Errorf("unmarshal ion record: %w", err)
	}
	return rec.Item, nil
}

// Encode writes one record per line.
func Encode[T any](w io.Writer, items []T) error {
	for i, item := range items {
		line, err := MarshalRecord(item)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("write ion record %d: %w", i, err)
		}
	}
	return nil
}

// StripVersionMarker removes the "$ion_1_0" markers the service writes in
// front of each record line. The Ion decoder reads a textual marker as a
// symbol value, so it has to go before unmarshalling.
func StripVersionMarker(line []byte) []byte {
	line = bytes.TrimSpace(line)
	for bytes.HasPrefix(line, []byte(versionMarker)) {
		rest := line[len(versionMarker):]
		if len(rest) > 0 && !isIonSpace(rest[0]) && rest[0] != '{' {
			break
		}
		line = bytes.TrimSpace(rest)
	}
	return line
}

func isIonSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// ScanLines calls fn with every record line of r, version markers removed.
// Blank and marker-only lines are skipped. n counts records from 1; line is
// only valid until fn returns.
func ScanLines(r io.Reader, fn func(n int, line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for scanner.Scan() {
		line := StripVersionMarker(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		n++
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ion records: %w", err)
	}
	return nil
}

// CheckRecord verifies that line holds exactly one Ion struct.
func CheckRecord(line []byte) error {
	r := ion.NewReaderBytes(line)
	if !r.Next() {
		if r.Err() != nil {
			return r.Err()
		}
		return fmt.Errorf("empty ion record")
	}
	if r.Type() != ion.StructType {
		return fmt.Errorf("ion record is a %s, not a struct", r.Type())
	}
	if r.Next() {
		return fmt.Errorf("more than one ion value on the line")
	}
	return r.Err()
}

// Decode streams records from r, one per line, and calls fn for each item.
func Decode[T any](r io.Reader, fn func(T) error) error {
	return ScanLines(r, func(n int, line []byte) error {
		var rec Record[T]
		if err := ion.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decode ion record %d: %w", n, err)
		}
		return fn(rec.Item)
	})
}

func DecodeAll[T any](r io.Reader) ([]T, error) {
	var items []T
	err := Decode(r, func(item T) error {
		items = append(items, item)
		return nil
	})
	return items, err
}
