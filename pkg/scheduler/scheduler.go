package scheduler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxConcurrency bounds the number of in-flight requests when no
	// override is given.
	DefaultMaxConcurrency = 10

	// maxAttempts is the total number of executions per request, including
	// the first one.
	maxAttempts = 5

	defaultRetryAfter = 60 * time.Second
	retryAfterMargin  = time.Second
)

// RequestFunc performs a single HTTP call. The scheduler may invoke it more
// than once, so every invocation must build and issue a fresh request.
type RequestFunc func(ctx context.Context) (*http.Response, error)

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Scheduler executes request closures under a fixed concurrency bound and
// transparently retries rate-limited responses using the server's advertised
// Retry-After window. A slot is held from execution start until final
// settlement, internal retries included, so a rate-limit episode never
// amplifies load.
type Scheduler struct {
	sem     chan struct{}
	limiter *rate.Limiter
	sleep   SleepFunc

	mu         sync.Mutex
	limited    bool
	retryAfter time.Duration
}

type Option func(*Scheduler)

// WithMaxConcurrency overrides the number of scheduler slots.
func WithMaxConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.sem = make(chan struct{}, n)
		}
	}
}

// WithRequestsPerSecond adds a client-side pacer in front of every attempt,
// smoothing the issue rate below the server's enforcement threshold.
func WithRequestsPerSecond(rps float64, burst int) Option {
	return func(s *Scheduler) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithSleepFunc replaces the backoff wait, letting tests drive retries with a
// fake clock.
func WithSleepFunc(sleep SleepFunc) Option {
	return func(s *Scheduler) {
		s.sleep = sleep
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		sem:   make(chan struct{}, DefaultMaxConcurrency),
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs fn under the concurrency bound and blocks until the request
// settles. Rate-limited responses are retried internally; the caller always
// receives either a response or a transport error, never both. After retry
// exhaustion the final 429 response is returned with a nil error, so callers
// must classify the result themselves. No ordering is guaranteed between
// concurrent submissions.
func (s *Scheduler) Submit(ctx context.Context, fn RequestFunc) (*http.Response, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	return s.execute(ctx, fn)
}

// RateLimitState reports whether the account is currently rate-limited and
// the wait applied before the next retry. Advisory only.
func (s *Scheduler) RateLimitState() (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.limited, s.retryAfter
}

func (s *Scheduler) execute(ctx context.Context, fn RequestFunc) (*http.Response, error) {
	l := ctxzap.Extract(ctx)

	for attempt := 1; ; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		// Transport-level failures are not retried; only 429 is.
		resp, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		if Classify(resp.StatusCode) != RateLimited {
			s.setRateLimited(false, 0)
			return resp, nil
		}

		wait := retryAfterDuration(resp.Header.Get("Retry-After"))
		s.setRateLimited(true, wait)

		if attempt == maxAttempts {
			return resp, nil
		}

		discard(resp)
		l.Warn("orgchart-explorer: rate limited, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
		)

		if err := s.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (s *Scheduler) setRateLimited(limited bool, retryAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.limited = limited
	s.retryAfter = retryAfter
}

// retryAfterDuration turns a Retry-After header into the backoff wait: the
// advertised window plus a one-second safety margin, with a 60-second window
// assumed when the header is absent or unusable.
func retryAfterDuration(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return defaultRetryAfter + retryAfterMargin
	}
	return time.Duration(seconds)*time.Second + retryAfterMargin
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
