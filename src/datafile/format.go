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
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Format is the record encoding of a data file. It is always given
// explicitly and never sniffed from the content.
type Format string

const (
	DYNAMODB_JSON Format = "DYNAMODB_JSON"
	ION           Format = "ION"

	GZIP_CONTENT_ENCODING = "gzip"
	JSON_CONTENT_TYPE     = "application/json"
	ION_CONTENT_TYPE      = "text/plain"
)

var supportedFormats = []Format{DYNAMODB_JSON, ION}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimSpace(s)))
	if !lo.Contains(supportedFormats, f) {
		return "", fmt.Errorf("unsupported data file format %q: expected one of %v", s, supportedFormats)
	}
	return f, nil
}

func (f Format) ContentType() string {
	if f == ION {
		return ION_CONTENT_TYPE
	}
	return JSON_CONTENT_TYPE
}

// FileExtension is the suffix the service gives data files of this format.
func (f Format) FileExtension() string {
	if f == ION {
		return ".ion.gz"
	}
	return ".json.gz"
}
