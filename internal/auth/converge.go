package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Converger keeps dismissing interstitials ("Stay signed in?", security info
// prompts, cookie notices) until the page lands on the target location.
type Converger struct {
	driver  Driver
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewConverger creates a convergence loop. A zero timeout disables the
// deadline and a zero pollInterval lets the driver's own waits pace the loop.
func NewConverger(driver Driver, timeout, pollInterval time.Duration, logger *zap.Logger) *Converger {
	limit := rate.Inf
	if pollInterval > 0 {
		limit = rate.Every(pollInterval)
	}
	return &Converger{
		driver:  driver,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Converge returns the number of dismiss cycles it took to reach target
func (c *Converger) Converge(ctx context.Context, target Location) (int, error) {
	loopCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var last Location
	for cycles := 0; ; cycles++ {
		loc, err := currentLocation(loopCtx, c.driver)
		if err == nil {
			if loc == target {
				c.logger.Debug("Landed on target", zap.Stringer("location", loc), zap.Int("cycles", cycles))
				return cycles, nil
			}
			if loc != last {
				c.logger.Debug("Waiting for redirect", zap.Stringer("location", loc), zap.Stringer("target", target))
				last = loc
			}
		} else {
			c.logger.Debug("Could not read current location", zap.Error(err))
		}

		if err := c.limiter.Wait(loopCtx); err != nil {
			// The limiter gives up early when the next tick is past the deadline
			<-loopCtx.Done()
			return cycles, c.stopped(ctx, loopCtx, target, last)
		}
		if loopCtx.Err() != nil {
			return cycles, c.stopped(ctx, loopCtx, target, last)
		}

		if err := c.driver.DismissKnownDialogs(loopCtx); err != nil {
			c.logger.Debug("Dismissing dialogs failed", zap.Error(err))
		}
	}
}

// stopped tells a caller cancellation apart from our own deadline
func (c *Converger) stopped(parent, loopCtx context.Context, target, last Location) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if errors.Is(loopCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: stuck at %s, want %s", ErrConvergenceTimeout, c.timeout, last, target)
	}
	return fmt.Errorf("%w: stuck at %s, want %s", ErrConvergenceTimeout, last, target)
}
