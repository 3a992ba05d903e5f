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

package waiter

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yugabyte/yb-ddbio/src/errs"
)

type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func newFakeWaiter(delay, timeout time.Duration, instant bool) (*Waiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	w := New("test", delay, timeout)
	w.Instant = instant
	w.now = clock.now
	w.sleep = clock.sleep
	return w, clock
}

func TestWaitStopsWhenDone(t *testing.T) {
	w, clock := newFakeWaiter(10*time.Second, time.Minute, true)
	calls := 0
	err := w.Wait(context.Background(), func(ctx context.Context, attempt int, elapsed time.Duration) (bool, error) {
		calls++
		assert.Equal(t, calls, attempt)
		return attempt == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, clock.sleeps)
}

func TestWaitInstantFalseSleepsFirst(t *testing.T) {
	w, clock := newFakeWaiter(5*time.Second, time.Minute, false)
	err := w.Wait(context.Background(), func(ctx context.Context, attempt int, elapsed time.Duration) (bool, error) {
		assert.Equal(t, 5*time.Second, elapsed)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.sleeps)
}

func TestWaitTimesOutWithinBound(t *testing.T) {
	cases := []struct {
		delay   time.Duration
		timeout time.Duration
	}{
		{10 * time.Second, 25 * time.Second},
		{10 * time.Second, 30 * time.Second},
		{7 * time.Second, 3 * time.Second},
		{time.Second, 15 * time.Minute},
	}
	for _, tc := range cases {
		for _, instant := range []bool{true, false} {
			w, clock := newFakeWaiter(tc.delay, tc.timeout, instant)
			start := clock.t
			calls := 0
			err := w.Wait(context.Background(), func(ctx context.Context, attempt int, elapsed time.Duration) (bool, error) {
				calls++
				return false, nil
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrWaitTimeout)
			assert.NotErrorIs(t, err, errs.ErrJobFailed)

			var te *errs.TimeoutError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, calls, te.Attempts)
			assert.Equal(t, tc.timeout, te.Timeout)
			assert.LessOrEqual(t, clock.t.Sub(start), tc.timeout+tc.delay)
			assert.GreaterOrEqual(t, clock.t.Sub(start), tc.timeout)
		}
	}
}

func TestWaitPropagatesCheckError(t *testing.T) {
	w, _ := newFakeWaiter(time.Second, time.Minute, true)
	boom := errors.New("describe failed")
	err := w.Wait(context.Background(), func(ctx context.Context, attempt int, elapsed time.Duration) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, errs.ErrWaitTimeout)
}

func TestWaitHonoursContextCancellation(t *testing.T) {
	w, _ := newFakeWaiter(time.Second, time.Minute, true)
	ctx, cancel := context.WithCancel(context.Background())
	err := w.Wait(ctx, func(ctx context.Context, attempt int, elapsed time.Duration) (bool, error) {
		if attempt == 2 {
			cancel()
		}
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitWritesProgress(t *testing.T) {
	w, _ := newFakeWaiter(time.Second, time.Minute, true)
	var buf bytes.Buffer
	w.Progress = &buf
	err := w.Wait(context.Background(), func(ctx context.Context, attempt int, elapsed time.Duration) (bool, error) {
		return attempt == 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "test: waiting (attempt 1, elapsed 0s)\n", buf.String())
}

func TestRealSleepIsInterruptible(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := sleepCtx(ctx, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestNewAppliesDefaults(t *testing.T) {
	w := New("x", 0, -1)
	assert.Equal(t, DEFAULT_DELAY, w.Delay)
	assert.Equal(t, DEFAULT_TIMEOUT, w.Timeout)
	assert.True(t, w.Instant)
}
