// Package b2api implements the HTTP transport for the B2 native JSON API.
//
// Requests flow through an ordered pipeline of interceptors. Each interceptor
// either passes the request through, short-circuits with an error, or retries
// with a modified request. The standard chain is auth-refresh wrapping retry
// wrapping the raw HTTP client; uploads to grant URLs skip auth-refresh
// because grant tokens are replaced by the caller, not the account token.
package b2api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Doer performs one HTTP round trip. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(*http.Request) (*http.Response, error)

// Do implements Doer.
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Interceptor wraps a Doer with additional behavior.
type Interceptor func(Doer) Doer

// Chain composes interceptors around base. The first interceptor is the
// outermost: Chain(base, a, b) produces a(b(base)).
func Chain(base Doer, interceptors ...Interceptor) Doer {
	d := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		d = interceptors[i](d)
	}
	return d
}

// RetryPolicy bounds transient-failure retries. Delay grows linearly:
// the nth retry waits n times Interval.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt
	MaxRetries int

	// Interval is the base delay unit
	Interval time.Duration
}

// linearBackOff implements backoff.BackOff with delay = attempt x interval.
type linearBackOff struct {
	interval time.Duration
	max      int
	attempt  int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.attempt++
	if l.attempt > l.max {
		return backoff.Stop
	}
	return time.Duration(l.attempt) * l.interval
}

func (l *linearBackOff) Reset() {
	l.attempt = 0
}

// transientStatusError marks a 5xx response consumed during retries so the
// final error still carries the response body for diagnostics.
type transientStatusError struct {
	Status int
	Body   []byte
}

func (e *transientStatusError) Error() string {
	return http.StatusText(e.Status)
}

// Retry retries network failures and 5xx responses with linear backoff.
// 4xx responses pass through untouched; requests whose body cannot be
// replayed are never retried.
func Retry(policy RetryPolicy, log *slog.Logger) Interceptor {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			var res *http.Response
			var lastErr error
			attempt := 0

			operation := func() error {
				attempt++
				r := req
				if attempt > 1 {
					if req.GetBody == nil && req.Body != nil {
						// One-shot body; surface the previous failure.
						return backoff.Permanent(lastErr)
					}
					r = req.Clone(req.Context())
					if req.GetBody != nil {
						body, err := req.GetBody()
						if err != nil {
							return backoff.Permanent(err)
						}
						r.Body = body
					}
				}

				resp, err := next.Do(r)
				if err != nil {
					lastErr = err
					log.Warn("b2: request failed, will retry",
						"path", req.URL.Path, "attempt", attempt, "error", err)
					return err
				}
				if resp.StatusCode >= 500 {
					body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
					resp.Body.Close()
					lastErr = &transientStatusError{Status: resp.StatusCode, Body: body}
					log.Warn("b2: server error, will retry",
						"path", req.URL.Path, "attempt", attempt, "status", resp.StatusCode)
					return lastErr
				}
				res = resp
				return nil
			}

			bo := backoff.WithContext(
				&linearBackOff{interval: policy.Interval, max: policy.MaxRetries},
				req.Context(),
			)
			if err := backoff.Retry(operation, bo); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

// AuthRefresh retries a request exactly once after a 401 response, with a
// freshly obtained account token. A second consecutive 401 passes through to
// the caller.
func AuthRefresh(token func() string, refresh func(req *http.Request) error, log *slog.Logger) Interceptor {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			res, err := next.Do(req)
			if err != nil || res.StatusCode != http.StatusUnauthorized {
				return res, err
			}
			if req.GetBody == nil && req.Body != nil {
				// One-shot body; cannot replay.
				return res, nil
			}

			io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
			res.Body.Close()

			log.Warn("b2: authorization rejected, re-authorizing", "path", req.URL.Path)
			if err := refresh(req); err != nil {
				return nil, err
			}

			retryReq := req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				retryReq.Body = body
			}
			retryReq.Header.Set("Authorization", token())
			return next.Do(retryReq)
		})
	}
}
