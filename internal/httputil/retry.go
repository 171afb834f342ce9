// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the remote clients.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultMaxRetries = 2

// Throttle is invoked before every attempt, including retries. A non-nil
// error aborts the call without further retries.
type Throttle func(ctx context.Context) error

// DoWithRetry executes an HTTP request and retries transport errors, HTTP 429
// and HTTP 5xx with exponential backoff: RetryBaseDelay, then double per
// attempt. When maxRetries is 0 the default (2) is used.
//
// Requests with a body must be built so that GetBody is set (as
// http.NewRequest does for bytes and strings readers); the body is rewound
// for every attempt. After exhausting retries the last retryable response is
// returned so the caller can inspect its status; a final transport error is
// returned as is. If the context is cancelled during a backoff wait the
// function returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, throttle Throttle) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		if throttle != nil {
			if err := throttle(ctx); err != nil {
				return nil, err
			}
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			if ctx.Err() != nil || attempt >= maxRetries {
				return nil, err
			}
		} else {
			if !Retryable(resp.StatusCode) || attempt >= maxRetries {
				return resp, nil
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Retryable reports whether an HTTP status is worth retrying.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
