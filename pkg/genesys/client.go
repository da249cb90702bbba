package genesys

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sync"

	"github.com/conductorone/baton-sdk/pkg/uhttp"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"orgchart-explorer/pkg/scheduler"
)

// Client talks to the Genesys Cloud public API for one region and one bearer
// token. The token and region come from the external auth collaborator; the
// client never refreshes them. All calls go through the scheduler, so the
// caller sees rate-limit episodes only as latency and the advisory flag.
type Client struct {
	region      string
	accessToken string
	baseURL     string
	httpClient  *http.Client
	base        *uhttp.BaseHttpClient
	sched       *scheduler.Scheduler
	users       *Cache[*User]
	roster      *Roster

	mutex      sync.Mutex
	me         *User
	authFailed bool
}

type Option func(*Client)

// WithScheduler replaces the default scheduler, typically to share one
// instance with the UI layer that reads its rate-limit state.
func WithScheduler(sched *scheduler.Scheduler) Option {
	return func(c *Client) {
		c.sched = sched
	}
}

// WithBaseURL overrides the https://api.<region> base. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func NewClient(ctx context.Context, region, accessToken string, opts ...Option) (*Client, error) {
	if region == "" {
		region = DefaultRegion
	}

	httpClient, err := uhttp.NewClient(ctx, uhttp.WithLogger(true, ctxzap.Extract(ctx)))
	if err != nil {
		return nil, err
	}

	base, err := uhttp.NewBaseHttpClientWithContext(ctx, httpClient)
	if err != nil {
		return nil, err
	}

	c := &Client{
		region:      region,
		accessToken: accessToken,
		httpClient:  httpClient,
		base:        base,
		users:       NewCache[*User](),
		roster:      NewRoster(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sched == nil {
		c.sched = scheduler.New()
	}

	return c, nil
}

func (c *Client) Region() string {
	return c.region
}

// Roster exposes the accumulated direct-report set for export and for the
// resolver to clear on recenter.
func (c *Client) Roster() *Roster {
	return c.roster
}

func (c *Client) Scheduler() *scheduler.Scheduler {
	return c.sched
}

// AuthFailed reports whether the last self-fetch failed for a reason other
// than rate limiting, i.e. the token is missing, expired or invalid.
func (c *Client) AuthFailed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.authFailed
}

func (c *Client) setAuthFailed(failed bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.authFailed = failed
}

func (c *Client) apiURL(segments ...string) (*url.URL, error) {
	p := path.Join(append([]string{"/api/v2"}, segments...)...)
	if c.baseURL == "" {
		return &url.URL{
			Scheme: "https",
			Host:   "api." + c.region,
			Path:   p,
		}, nil
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, p)
	return u, nil
}

// do submits one API call through the scheduler and decodes a successful
// response into res. A non-success status after the scheduler settles is not
// an error: it returns ok=false with the status so callers can surface an
// absent result, logging the status out-of-band.
func (c *Client) do(ctx context.Context, method string, u *url.URL, body interface{}, res interface{}) (bool, int, error) {
	l := ctxzap.Extract(ctx)

	resp, err := c.sched.Submit(ctx, func(ctx context.Context) (*http.Response, error) {
		reqOpts := []uhttp.RequestOption{
			uhttp.WithBearerToken(c.accessToken),
			uhttp.WithContentTypeJSONHeader(),
		}
		if body != nil {
			reqOpts = append(reqOpts, uhttp.WithJSONBody(body))
		}

		req, err := c.base.NewRequest(ctx, method, u, reqOpts...)
		if err != nil {
			return nil, err
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()

	if scheduler.Classify(resp.StatusCode) != scheduler.Success {
		_, _ = io.Copy(io.Discard, resp.Body)
		l.Warn("orgchart-explorer: request did not succeed",
			zap.String("method", method),
			zap.String("url", u.String()),
			zap.Int("status", resp.StatusCode),
		)
		return false, resp.StatusCode, nil
	}

	if res != nil {
		if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
			return false, resp.StatusCode, fmt.Errorf("orgchart-explorer: error decoding response: %w", err)
		}
	}

	return true, resp.StatusCode, nil
}

func (c *Client) cacheUsers(users ...*User) {
	for _, u := range users {
		if u == nil || u.ID == "" {
			continue
		}
		c.users.Set(u.ID, u)
	}
}
