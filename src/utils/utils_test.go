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
package utils

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTrailingSlash(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"exports", "exports/"},
		{"exports/", "exports/"},
		{"a/b/c", "a/b/c/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, WithTrailingSlash(tt.input), tt.input)
	}
}

func TestFileOrFolderExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, FileOrFolderExists(dir))
	assert.False(t, FileOrFolderExists(filepath.Join(dir, "missing")))
}

func TestErrExitUsesHook(t *testing.T) {
	var buf bytes.Buffer
	oldStderr := stderr
	stderr = &buf
	defer func() { stderr = oldStderr }()

	code := -1
	SetExitHook(func(c int) { code = c })
	defer SetExitHook(nil)

	ErrExit("describe export %q: %w", "arn-1", assert.AnError)
	assert.Equal(t, 1, code)
	assert.ErrorIs(t, LastExitErr, assert.AnError)
	assert.Contains(t, buf.String(), `describe export "arn-1"`)
}

func TestPrintAndLogAppendsNewline(t *testing.T) {
	var buf bytes.Buffer
	oldStdout := stdout
	stdout = &buf
	defer func() { stdout = oldStdout }()

	PrintAndLog("export %s started", "01")
	assert.Equal(t, "export 01 started\n", buf.String())
}
