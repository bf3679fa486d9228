package panapi

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/isoshare/internal/logging"
	"github.com/dmitrijs2005/isoshare/internal/netx"
)

// RetryPolicy bounds how transient failures are repeated.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithJitterPercent(20, b)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(p.Attempts-1), b)
}

// Do runs fn until it succeeds, fails permanently or the attempt budget is
// spent. Attempts <= 1 runs fn exactly once.
func (p RetryPolicy) Do(ctx context.Context, log logging.Logger, op string, fn func(ctx context.Context) error) error {
	if p.Attempts <= 1 || p.BaseDelay <= 0 {
		return fn(ctx)
	}

	attempt := 0
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && transient(err) {
			log.Warn(ctx, "transient failure, will retry", "op", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// transient reports whether err is worth another attempt. Transport errors
// count only when they are timeouts, refused or reset connections or a
// response cut short. TLS, DNS and malformed URL failures do not.
func transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var statusErr *netx.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
