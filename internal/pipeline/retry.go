package pipeline

import (
	"context"
	"time"
)

// RetryPolicy is the bounded backoff applied to Analysis Service and
// Filter Executor calls (and the single Grading Advisor call). Delays[i]
// is the wait before attempt i, so {0, short, long} means three attempts:
// the first immediate, the second after a short fixed delay, the third
// after a longer one.
type RetryPolicy struct {
	Delays []time.Duration
}

// NewRetryPolicy builds the standard three-attempt schedule.
func NewRetryPolicy(short, long time.Duration) RetryPolicy {
	return RetryPolicy{Delays: []time.Duration{0, short, long}}
}

// Do runs op until it succeeds, fails permanently, or the attempt budget
// is exhausted. Only transient failures are retried. The last error is
// returned on exhaustion.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	var err error
	for _, delay := range p.Delays {
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
	}
	return err
}
