package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/orgadmin/internal/apierr"
	"go.uber.org/zap"
)

// RetryPolicy controls retries of failed requests. The zero value never
// retries.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) enabled() bool { return p.MaxRetries > 0 }

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// retryable reports whether a failed attempt may be repeated. 429 is
// retried for every method; 5xx and transport failures only for methods
// that cannot create duplicates.
func retryable(method string, err error) bool {
	if apiErr, ok := apierr.AsAPIError(err); ok {
		if apiErr.Status == http.StatusTooManyRequests {
			return true
		}
		return apiErr.Status >= http.StatusInternalServerError && safeToRepeat(method)
	}
	var transportErr *apierr.TransportError
	if errors.As(err, &transportErr) {
		return safeToRepeat(method)
	}
	return false
}

func safeToRepeat(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}

func (c *Client) withRetry(ctx context.Context, method string, attempt func() error) error {
	if !c.retry.enabled() {
		return attempt()
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := attempt()
		if err == nil {
			return struct{}{}, nil
		}
		if !retryable(method, err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(c.retry.backOff()),
		backoff.WithMaxTries(uint(c.retry.MaxRetries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.metrics.RecordRetry(method)
			c.log.Debug("retrying request",
				zap.String("method", method),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
