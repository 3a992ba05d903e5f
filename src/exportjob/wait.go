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

package exportjob

import (
	"context"
	"time"

	"github.com/yugabyte/yb-ddbio/src/errs"
	"github.com/yugabyte/yb-ddbio/src/waiter"
)

// WaitUntilTerminal polls DescribeExport until the export is COMPLETED or
// FAILED and returns that snapshot. w may be nil for the default 10s delay
// and 15m timeout. Running out of time returns *errs.TimeoutError.
func WaitUntilTerminal(ctx context.Context, api API, arn string, w *waiter.Waiter) (*Job, error) {
	if w == nil {
		w = waiter.New("export "+arn, 0, 0)
	}
	var job *Job
	err := w.Wait(ctx, func(ctx context.Context, attempt int, elapsed time.Duration) (bool, error) {
		var err error
		job, err = Describe(ctx, api, arn)
		if err != nil {
			return false, err
		}
		return job.IsTerminal(), nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// WaitUntilComplete is WaitUntilTerminal that also turns a FAILED export
// into *errs.JobFailedError. The failed snapshot is returned alongside.
func WaitUntilComplete(ctx context.Context, api API, arn string, w *waiter.Waiter) (*Job, error) {
	job, err := WaitUntilTerminal(ctx, api, arn, w)
	if err != nil {
		return nil, err
	}
	if !job.IsCompleted() {
		return job, &errs.JobFailedError{
			Kind:           errs.EXPORT_JOB,
			Arn:            job.Arn,
			Status:         string(job.Status),
			FailureCode:    job.FailureCode,
			FailureMessage: job.FailureMessage,
		}
	}
	return job, nil
}
