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
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

var (
	// LastExitErr is the error ErrExit reported, with %w wrapping intact.
	LastExitErr error

	exitHook = atexit.Exit

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetExitHook replaces the process exit used by ErrExit, so tests can
// observe CLI failures. nil restores atexit.Exit.
func SetExitHook(h func(code int)) {
	if h == nil {
		exitHook = atexit.Exit
	} else {
		exitHook = h
	}
}

// ErrExit reports a CLI failure on stderr and in the log file, then exits
// with status 1.
func ErrExit(format string, args ...interface{}) {
	LastExitErr = fmt.Errorf(format, args...)

	format = strings.Replace(format, "%w", "%s", -1)
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	fmt.Fprintf(stderr, format, args...)
	log.Errorf(format, args...)

	exitHook(1)
}

// PrintAndLog writes a user-facing result line to stdout and keeps a copy in
// the log file.
func PrintAndLog(formatString string, args ...interface{}) {
	log.Infof(formatString, args...)
	if !strings.HasSuffix(formatString, "\n") {
		formatString = formatString + "\n"
	}
	fmt.Fprintf(stdout, formatString, args...)
}
