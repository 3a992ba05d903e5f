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
	"fmt"
	"strings"
)

const S3_SCHEME = "s3"

// Location is an object (or object prefix) addressed as scheme://bucket/key.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseURI splits "s3://my-bucket/folder/file.txt" into its scheme, bucket
// and key. The key may be empty ("s3://my-bucket" or "s3://my-bucket/").
// Keys are taken verbatim: characters such as '?' and '#' are legal in
// object keys, so the URI is not run through url.Parse.
func ParseURI(uri string) (Location, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return Location{}, fmt.Errorf("missing scheme in object url %q", uri)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("missing bucket in object url %q", uri)
	}
	return Location{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

// SplitObjectPath returns the bucket and key of an object url. Unlike
// ParseURI, the key must be present.
func SplitObjectPath(objectPath string) (string, string, error) {
	loc, err := ParseURI(objectPath)
	if err != nil {
		return "", "", err
	}
	if loc.Key == "" {
		return "", "", fmt.Errorf("missing key in object url %q", objectPath)
	}
	return loc.Bucket, loc.Key, nil
}

func ValidateObjectURL(datadir string) error {
	_, err := ParseURI(datadir)
	return err
}

func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, S3_SCHEME+"://")
}

// NewS3URI builds "s3://bucket/key".
func NewS3URI(bucket string, key string) string {
	return Location{Scheme: S3_SCHEME, Bucket: bucket, Key: key}.String()
}

func (l Location) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// Join appends path elements to the key with "/" (filepath.Join would turn
// "s3://" into "s3:/"). A trailing "/" on the last element is kept.
func (l Location) Join(elem ...string) Location {
	parts := make([]string, 0, len(elem)+1)
	if l.Key != "" {
		parts = append(parts, strings.TrimSuffix(l.Key, "/"))
	}
	for _, e := range elem {
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	key := strings.Join(parts, "/")
	if len(elem) > 0 && strings.HasSuffix(elem[len(elem)-1], "/") {
		key += "/"
	}
	return Location{Scheme: l.Scheme, Bucket: l.Bucket, Key: key}
}
