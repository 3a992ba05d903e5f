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

package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutAndFailureAreDistinct(t *testing.T) {
	var timeoutErr error = &TimeoutError{Timeout: time.Second, Elapsed: time.Second, Attempts: 3}
	var failedErr error = &JobFailedError{Kind: EXPORT_JOB, Arn: "arn", Status: "FAILED"}

	assert.ErrorIs(t, timeoutErr, ErrWaitTimeout)
	assert.NotErrorIs(t, timeoutErr, ErrJobFailed)
	assert.ErrorIs(t, failedErr, ErrJobFailed)
	assert.NotErrorIs(t, failedErr, ErrWaitTimeout)

	wrapped := fmt.Errorf("wait for export: %w", timeoutErr)
	var te *TimeoutError
	assert.True(t, errors.As(wrapped, &te))
	assert.Equal(t, 3, te.Attempts)
}

func TestJobFailedErrorMessage(t *testing.T) {
	err := &JobFailedError{
		Kind:           IMPORT_JOB,
		Arn:            "arn:aws:dynamodb:us-east-1:111122223333:table/t/import/01",
		Status:         "FAILED",
		FailureCode:    "ValidationError",
		FailureMessage: "bad input",
	}
	assert.Equal(t,
		"import arn:aws:dynamodb:us-east-1:111122223333:table/t/import/01 ended with status FAILED (ValidationError): bad input",
		err.Error())

	err = &JobFailedError{Kind: IMPORT_JOB, Arn: "a", Status: "CANCELLED"}
	assert.Equal(t, "import a ended with status CANCELLED", err.Error())
}

func TestJobNotFoundError(t *testing.T) {
	cause := errors.New("ExportNotFoundException: not here")
	err := NewJobNotFoundError(EXPORT_JOB, "arn-1", cause)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "export arn-1: job not found", err.Error())
}
