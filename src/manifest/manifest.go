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

// Package manifest models the two index files DynamoDB writes next to an
// export's data files: manifest-summary.json and manifest-files.json.
//
// Ref: https://docs.aws.amazon.com/amazondynamodb/latest/developerguide/S3DataExport.Output.html
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	SUMMARY_FILE_NAME = "manifest-summary.json"
	FILES_FILE_NAME   = "manifest-files.json"
	DATA_DIR_NAME     = "data/"
	EXPORT_ROOT_DIR   = "AWSDynamoDB/"

	// TIME_FORMAT is how the service renders timestamps in manifests.
	TIME_FORMAT = "2006-01-02T15:04:05.000Z"
	// any number of fractional digits is accepted when parsing
	timeParseFormat = "2006-01-02T15:04:05Z"
)

// Summary is the content of manifest-summary.json. Optional keys that are
// absent in the file stay absent when it is written back; s3SseKmsKeyId and
// s3Prefix keep an explicit null.
type Summary struct {
	Version            string  `json:"version"`
	ExportArn          string  `json:"exportArn"`
	StartTime          string  `json:"startTime"`
	EndTime            string  `json:"endTime"`
	TableArn           string  `json:"tableArn"`
	TableId            string  `json:"tableId"`
	ExportTime         string  `json:"exportTime,omitempty"`
	ExportFromTime     string  `json:"exportFromTime,omitempty"`
	ExportToTime       string  `json:"exportToTime,omitempty"`
	S3Bucket           string  `json:"s3Bucket"`
	S3Prefix           *string `json:"s3Prefix"`
	S3SseAlgorithm     string  `json:"s3SseAlgorithm,omitempty"`
	S3SseKmsKeyId      *string `json:"s3SseKmsKeyId"`
	ManifestFilesS3Key string  `json:"manifestFilesS3Key"`
	BilledSizeBytes    int64   `json:"billedSizeBytes"`
	ItemCount          int64   `json:"itemCount"`
	OutputFormat       string  `json:"outputFormat"`
	OutputView         string  `json:"outputView,omitempty"`
	ExportType         string  `json:"exportType,omitempty"`
}

func ParseSummary(data []byte) (*Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SUMMARY_FILE_NAME, err)
	}
	return &s, nil
}

func (s *Summary) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func (s *Summary) Prefix() string {
	if s.S3Prefix == nil {
		return ""
	}
	return *s.S3Prefix
}

func (s *Summary) StartedAt() (time.Time, error)  { return ParseTime(s.StartTime) }
func (s *Summary) EndedAt() (time.Time, error)    { return ParseTime(s.EndTime) }
func (s *Summary) ExportedAt() (time.Time, error) { return ParseTime(s.ExportTime) }
func (s *Summary) ExportFrom() (time.Time, error) { return ParseTime(s.ExportFromTime) }
func (s *Summary) ExportTo() (time.Time, error)   { return ParseTime(s.ExportToTime) }

// ParseTime parses a manifest timestamp into UTC. An empty string yields the
// zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeParseFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse manifest time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TIME_FORMAT)
}

// File is one line of manifest-files.json.
type File struct {
	ItemCount     int64  `json:"itemCount"`
	MD5Checksum   string `json:"md5Checksum"`
	ETag          string `json:"etag"`
	DataFileS3Key string `json:"dataFileS3Key"`
}

// ParseFiles reads newline-delimited manifest entries. Blank lines are skipped.
func ParseFiles(r io.Reader) ([]File, error) {
	var files []File
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var f File
		if err := json.Unmarshal(line, &f); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", FILES_FILE_NAME, lineNum, err)
		}
		files = append(files, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", FILES_FILE_NAME, err)
	}
	return files, nil
}

func WriteFiles(w io.Writer, files []File) error {
	enc := json.NewEncoder(w)
	for _, f := range files {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("write %s: %w", FILES_FILE_NAME, err)
		}
	}
	return nil
}

// ExportDir returns the key of an export's root directory below prefix,
// e.g. "prefix/AWSDynamoDB/01672531200000-a1b2c3d4/".
func ExportDir(prefix string, shortID string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + EXPORT_ROOT_DIR + shortID + "/"
}

// SplitExportDir is the inverse of ExportDir. It accepts the directory key
// with or without the trailing slash.
func SplitExportDir(dir string) (prefix string, shortID string, err error) {
	dir = strings.TrimSuffix(dir, "/")
	idx := strings.LastIndex(dir, EXPORT_ROOT_DIR)
	if idx < 0 || (idx > 0 && dir[idx-1] != '/') {
		return "", "", fmt.Errorf("%q is not an export directory: missing %s", dir, EXPORT_ROOT_DIR)
	}
	shortID = dir[idx+len(EXPORT_ROOT_DIR):]
	if shortID == "" || strings.Contains(shortID, "/") {
		return "", "", fmt.Errorf("%q is not an export directory: bad export id %q", dir, shortID)
	}
	return dir[:idx], shortID, nil
}
