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

package errs

import (
	"errors"
	"fmt"
	"time"
)

const (
	// job kinds
	EXPORT_JOB = "export"
	IMPORT_JOB = "import"
)

var (
	// ErrWaitTimeout is matched by every *TimeoutError.
	ErrWaitTimeout = errors.New("timed out waiting for job")
	// ErrJobFailed is matched by every *JobFailedError.
	ErrJobFailed = errors.New("job did not complete")
	// ErrJobNotFound is returned when describing an ARN the service does not know.
	ErrJobNotFound = errors.New("job not found")
)

// TimeoutError is raised locally when the caller's wait budget runs out.
// It says nothing about the state of the job on the service side.
type TimeoutError struct {
	Timeout  time.Duration
	Elapsed  time.Duration
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out in %s after %d attempts (elapsed %s)",
		e.Timeout, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrWaitTimeout
}

// JobFailedError is a service-side outcome: the job reached a terminal status
// other than COMPLETED (or is being cancelled).
type JobFailedError struct {
	Kind           string
	Arn            string
	Status         string
	FailureCode    string
	FailureMessage string
}

func (e *JobFailedError) Error() string {
	msg := fmt.Sprintf("%s %s ended with status %s", e.Kind, e.Arn, e.Status)
	if e.FailureCode != "" {
		msg += fmt.Sprintf(" (%s)", e.FailureCode)
	}
	if e.FailureMessage != "" {
		msg += ": " + e.FailureMessage
	}
	return msg
}

func (e *JobFailedError) Is(target error) bool {
	return target == ErrJobFailed
}

// NewJobNotFoundError wraps the service's not-found exception so that it
// matches ErrJobNotFound while keeping the original error reachable.
func NewJobNotFoundError(kind string, arn string, cause error) error {
	return &jobNotFoundError{kind: kind, arn: arn, cause: cause}
}

type jobNotFoundError struct {
	kind  string
	arn   string
	cause error
}

func (e *jobNotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.kind, e.arn, ErrJobNotFound)
}

func (e *jobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

func (e *jobNotFoundError) Unwrap() error {
	return e.cause
}
