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

package waiter

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-ddbio/src/errs"
)

const (
	DEFAULT_DELAY   = 10 * time.Second
	DEFAULT_TIMEOUT = 15 * time.Minute
)

// CheckFunc performs one poll. It returns done=true to stop waiting.
// A non-nil error aborts the wait and is returned as is.
type CheckFunc func(ctx context.Context, attempt int, elapsed time.Duration) (done bool, err error)

type Waiter struct {
	Name    string
	Delay   time.Duration
	Timeout time.Duration
	// Instant runs the first check without sleeping.
	Instant bool
	// Progress, if set, receives one line per attempt.
	Progress io.Writer

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(name string, delay time.Duration, timeout time.Duration) *Waiter {
	if delay <= 0 {
		delay = DEFAULT_DELAY
	}
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return &Waiter{
		Name:    name,
		Delay:   delay,
		Timeout: timeout,
		Instant: true,
	}
}

// Wait polls check until it reports done, returns an error, the context is
// cancelled or the timeout is exhausted. The final sleep is clipped to the
// remaining budget, so Wait returns no later than Timeout plus one Delay.
func (w *Waiter) Wait(ctx context.Context, check CheckFunc) error {
	now := w.now
	if now == nil {
		now = time.Now
	}
	sleep := w.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	start := now()
	attempt := 0
	first := true
	for {
		if !(first && w.Instant) {
			remaining := w.Timeout - now().Sub(start)
			if remaining <= 0 {
				return w.timeoutError(now().Sub(start), attempt)
			}
			if err := sleep(ctx, min(w.Delay, remaining)); err != nil {
				return err
			}
		}
		first = false
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt++
		elapsed := now().Sub(start)
		log.Infof("%s: attempt %d, elapsed %s, remaining %s", w.Name, attempt,
			elapsed.Round(time.Millisecond), (w.Timeout - elapsed).Round(time.Millisecond))
		done, err := check(ctx, attempt, elapsed)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if w.Progress != nil {
			fmt.Fprintf(w.Progress, "%s: waiting (attempt %d, elapsed %s)\n",
				w.Name, attempt, elapsed.Round(time.Second))
		}
		if now().Sub(start) >= w.Timeout {
			return w.timeoutError(now().Sub(start), attempt)
		}
	}
}

func (w *Waiter) timeoutError(elapsed time.Duration, attempts int) error {
	log.Warnf("%s: timed out after %d attempts (elapsed %s)", w.Name, attempts, elapsed)
	return &errs.TimeoutError{Timeout: w.Timeout, Elapsed: elapsed, Attempts: attempts}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
