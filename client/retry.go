package client

import (
	"context"
	"errors"
	"math"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy decides which failed attempts are repeated. The zero value
// makes a single attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int `json:"maxAttempts" validate:"gte=0"`

	// RetrySend retries transport failures.
	RetrySend bool `json:"retrySend"`

	// RetryStatuses lists response statuses that are retried.
	RetryStatuses []int `json:"retryStatuses" validate:"dive,gte=400,lte=599"`

	// RetryMutating allows POST, PUT, PATCH and DELETE to be retried.
	RetryMutating bool `json:"retryMutating"`

	InitialBackoff time.Duration `json:"initialBackoff" validate:"gte=0"`
	MaxBackoff     time.Duration `json:"maxBackoff" validate:"gte=0"`
	Multiplier     float64       `json:"multiplier" validate:"gte=0"`
	Jitter         float64       `json:"jitter" validate:"gte=0,lte=1"`

	// RetryIf, when set, overrides RetrySend and RetryStatuses. It is still
	// subject to RetryMutating.
	RetryIf func(*Error) bool `json:"-"`
}

// DefaultRetryPolicy retries transport failures, 429 and 502-504 up to
// three attempts in total. Mutating requests are not retried.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		RetrySend:   true,
		RetryStatuses: []int{
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2,
		Jitter:         0.1,
	}
}

func (p RetryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

func (p RetryPolicy) shouldRetry(err *Error) bool {
	if err.Method.IsMutating() && !p.RetryMutating {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if p.RetryIf != nil {
		return p.RetryIf(err)
	}

	switch err.Kind {
	case KindSend:
		return p.RetrySend
	case KindStatus:
		return slices.Contains(p.RetryStatuses, err.StatusCode())
	}

	return false
}

// newBackOff returns the wait sequence for one call.
func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialBackoff,
		RandomizationFactor: p.Jitter,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxBackoff,
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	if b.MaxInterval <= 0 {
		b.MaxInterval = backoff.DefaultMaxInterval
	}
	b.Reset()

	return b
}

// maxRetryAfterSecs is the largest Retry-After that fits in a Duration.
const maxRetryAfterSecs = math.MaxInt64 / int64(time.Second)

// wait returns how long to pause before retrying err. A Retry-After
// header in seconds takes precedence, capped by MaxBackoff.
func (p RetryPolicy) wait(b *backoff.ExponentialBackOff, err *Error) time.Duration {
	next := b.NextBackOff()

	if resp := err.Response(); resp != nil {
		if secs, perr := strconv.ParseInt(resp.Header.Get("Retry-After"), 10, 64); perr == nil && secs >= 0 {
			next = time.Duration(min(secs, maxRetryAfterSecs)) * time.Second
		}
	}

	if p.MaxBackoff > 0 {
		next = min(next, p.MaxBackoff)
	}

	return next
}

// sleep pauses for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
