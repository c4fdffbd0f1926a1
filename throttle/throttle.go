// Package throttle limits how fast a backend starts transfers, using a
// token bucket.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Limiter gates transfer dispatch. A nil *Limiter never waits.
type Limiter struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	logger  *slog.Logger
}

// New returns a Limiter allowing rps transfers per second with the given
// burst capacity. A nil logger disables the exhaustion log lines.
func New(rps, burst int, logger *slog.Logger) (*Limiter, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		logger:  logger,
	}, nil
}

// Wait blocks until a token is available for target or ctx ends.
func (l *Limiter) Wait(ctx context.Context, target string) error {
	if l == nil {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if l.logger != nil && l.limiter.Tokens() < 1 {
		l.logger.Info("throttle tokens exhausted", "rate", l.rps, "burst", l.burst, "target", target)

		start := time.Now()
		defer func() {
			l.logger.Info("throttle wait complete", "waited", time.Since(start).String(), "rate", l.rps, "burst", l.burst)
		}()
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return nil
}
