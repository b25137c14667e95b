package client

import (
	"net/http"
	"net/url"
	"testing"
	"time"
)

func statusErr(retryAfter string) *Error {
	u, _ := url.Parse("https://api.example.test/items")

	return newError(MethodGet, u, KindStatus, &ErrorResponse{
		ResponseParts: ResponseParts{
			URL:        u,
			Method:     MethodGet,
			StatusCode: http.StatusServiceUnavailable,
			Header:     http.Header{"Retry-After": {retryAfter}},
		},
	})
}

func TestRetryPolicy_Wait(t *testing.T) {
	tests := []struct {
		name       string
		maxBackoff time.Duration
		retryAfter string
		exp        time.Duration
	}{
		{name: "retry after seconds", retryAfter: "3", exp: 3 * time.Second},
		{name: "capped by max backoff", maxBackoff: 2 * time.Second, retryAfter: "30", exp: 2 * time.Second},
		{name: "huge value saturates", retryAfter: "99999999999999", exp: time.Duration(maxRetryAfterSecs) * time.Second},
		{name: "huge value capped", maxBackoff: time.Minute, retryAfter: "99999999999999", exp: time.Minute},
		{name: "beyond int64 falls back to backoff", retryAfter: "99999999999999999999", exp: 100 * time.Millisecond},
		{name: "negative ignored", retryAfter: "-1", exp: 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := RetryPolicy{MaxAttempts: 2, InitialBackoff: 100 * time.Millisecond, MaxBackoff: tt.maxBackoff}

			got := p.wait(p.newBackOff(), statusErr(tt.retryAfter))
			if got != tt.exp {
				t.Errorf("expected wait %v, got %v", tt.exp, got)
			}
			if got <= 0 {
				t.Errorf("expected a positive wait, got %v", got)
			}
		})
	}
}
