package assistant

import (
	"context"
	"errors"
	"time"
)

// ErrPollCeiling is returned by Poll when the ceiling is reached before the
// check reports done.
var ErrPollCeiling = errors.New("poll ceiling reached")

// PollFunc is called once per interval. Returning done=true stops polling.
// A non-nil error also stops polling and is returned as is.
type PollFunc func(ctx context.Context, attempt int) (done bool, err error)

// Poll sleeps for interval, then calls check, until check reports done or the
// number of elapsed intervals reaches ceiling/interval, rounded up. check runs
// at least once even when the ceiling is shorter than one interval. Time spent
// inside check does not count towards the ceiling.
func Poll(ctx context.Context, interval, ceiling time.Duration, check PollFunc) error {
	if interval <= 0 {
		interval = time.Second
	}
	maxAttempts := int((ceiling + interval - 1) / interval)
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		timer.Reset(interval)
	}
	return ErrPollCeiling
}
