package export

import (
	"context"
	"time"
)

// Throttle spaces out remote calls: each call waits until at least the
// configured delay has passed since the previous call finished, whether that
// call succeeded or not.
type Throttle struct {
	delay time.Duration
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	lastDone time.Time
	started  bool
}

func NewThrottle(delay time.Duration) *Throttle {
	if delay < 0 {
		delay = 0
	}
	return &Throttle{
		delay: delay,
		now:   time.Now,
		sleep: sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (t *Throttle) Delay() time.Duration {
	return t.delay
}

// Wait blocks until the next call may start. The first call never waits.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || !t.started || t.delay == 0 {
		return nil
	}
	remaining := t.lastDone.Add(t.delay).Sub(t.now())
	if remaining <= 0 {
		return nil
	}
	return t.sleep(ctx, remaining)
}

// Done marks the end of a call attempt.
func (t *Throttle) Done() {
	if t == nil {
		return
	}
	t.lastDone = t.now()
	t.started = true
}

// Do runs fn between Wait and Done.
func (t *Throttle) Do(ctx context.Context, fn func() error) error {
	if err := t.Wait(ctx); err != nil {
		return err
	}
	defer t.Done()
	return fn()
}
