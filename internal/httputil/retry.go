// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by connectors and enrichers.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 800 * time.Millisecond

// MaxRetryAfter caps how long a server-supplied Retry-After may stall us.
var MaxRetryAfter = 10 * time.Second

const defaultMaxRetries = 2

// Retryable reports whether the status code is worth another attempt:
// 429 and the 5xx gateway family.
func Retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoWithRetry executes an HTTP request and retries on 429 and 5xx responses
// and on transport errors with exponential backoff starting at
// RetryBaseDelay. A numeric Retry-After header replaces the computed delay,
// bounded by MaxRetryAfter.
//
// When maxRetries is 0 the default (2) is used. If the context is cancelled
// the function returns ctx.Err(). After exhausting retries the last response
// is returned so the caller can inspect it; a final transport error is
// returned as-is.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= maxRetries {
				return nil, err
			}
		} else {
			if !Retryable(resp.StatusCode) || attempt >= maxRetries {
				return resp, nil
			}
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		if resp != nil {
			if ra := retryAfter(resp.Header.Get("Retry-After")); ra > 0 {
				backoff = ra
			}
			// Drain and close the body before retrying.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > MaxRetryAfter {
		d = MaxRetryAfter
	}
	return d
}

// NewClient returns an http.Client with the given timeout, defaulting to 8s.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
