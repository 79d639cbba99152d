package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy retries an operation a fixed number of times with a fixed delay
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts int

	// Delay is the wait between two attempts
	Delay time.Duration

	// Sleep waits for d or until ctx is done. Defaults to a timer select.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each new attempt with the error of the previous one
	OnRetry func(attempt int, err error)
}

// PowerDownPolicy is applied to power down updates, which race with node
// state transitions happening inside the scheduler
func PowerDownPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       1500 * time.Millisecond,
	}
}

// BackOff returns the constant backoff described by the policy, bound to ctx
func (p Policy) BackOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Do runs fn until it succeeds or MaxAttempts is reached, returning the last error.
// A cancelled wait aborts the retries and wraps the last error seen.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var (
		attempts int
		lastErr  error
		timer    *sleepTimer
	)
	if p.Sleep != nil {
		timer = &sleepTimer{ctx: ctx, sleep: p.Sleep, c: make(chan time.Time, 1)}
	}

	operation := func() error {
		if timer != nil && timer.err != nil {
			return backoff.Permanent(timer.err)
		}
		attempts++
		lastErr = fn(ctx)
		return lastErr
	}
	notify := func(err error, _ time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempts+1, err)
		}
	}

	var err error
	if timer != nil {
		err = backoff.RetryNotifyWithTimer(operation, p.BackOff(ctx), notify, timer)
	} else {
		err = backoff.RetryNotify(operation, p.BackOff(ctx), notify)
	}
	if err != nil && lastErr != nil && err != lastErr {
		return fmt.Errorf("retry aborted after %d attempts: %w", attempts, lastErr)
	}
	return err
}

// sleepTimer drives backoff waits through a Policy.Sleep function
type sleepTimer struct {
	ctx   context.Context
	sleep func(ctx context.Context, d time.Duration) error
	c     chan time.Time
	err   error
}

func (t *sleepTimer) Start(d time.Duration) {
	t.err = t.sleep(t.ctx, d)
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time {
	return t.c
}
