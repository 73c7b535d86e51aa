package hal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RenderError is returned once a panel stayed busy for all attempts.
type RenderError struct {
	Attempts int
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("display refresh failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// RefreshGate enforces the minimum time between two refreshes of a panel.
type RefreshGate struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
	wait func(time.Duration)
}

func NewRefreshGate(interval time.Duration) *RefreshGate {
	return &RefreshGate{Interval: interval, now: time.Now, wait: time.Sleep}
}

// Remaining is the time until the next refresh is allowed.
func (g *RefreshGate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return 0
	}
	if d := g.Interval - g.now().Sub(g.last); d > 0 {
		return d
	}
	return 0
}

// Wait blocks until a refresh is allowed and marks the refresh as done.
func (g *RefreshGate) Wait(ctx context.Context) error {
	if d := g.Remaining(); d > 0 {
		log.Debugf("Waiting %v for the panel", d)
		if err := ctx.Err(); err != nil {
			return err
		}
		g.wait(d)
	}

	g.mu.Lock()
	g.last = g.now()
	g.mu.Unlock()
	return nil
}

// RetryBusy runs a panel operation until it succeeds, fails with something
// other than ErrBusy, or the attempts are used up.
func RetryBusy(ctx context.Context, attempts int, interval time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	tries := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if !errors.Is(err, ErrBusy) {
			return struct{}{}, backoff.Permanent(err)
		}
		log.Debugf("Display busy, attempt %d of %d", tries, attempts)
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(interval)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		return &RenderError{Attempts: tries, Err: err}
	}
	return nil
}
