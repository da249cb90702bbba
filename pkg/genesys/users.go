package genesys

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"unicode/utf8"
)

const (
	searchTermMinLength = 3
	searchPageSize      = 15
)

// Me fetches the authenticated user and seeds the cache with it.
// Calls GET /api/v2/users/me
//
// A non-429 failure marks the session as not authorized; the caller is
// expected to hand off to the external auth flow.
func (c *Client) Me(ctx context.Context) (*User, error) {
	u, err := c.apiURL("users", "me")
	if err != nil {
		return nil, err
	}

	me := &User{}
	ok, status, err := c.do(ctx, http.MethodGet, u, nil, me)
	if err != nil {
		return nil, fmt.Errorf("orgchart-explorer: error fetching current user: %w", err)
	}
	if !ok {
		if status != http.StatusTooManyRequests {
			c.setAuthFailed(true)
		}
		return nil, nil
	}

	c.setAuthFailed(false)
	c.cacheUsers(me)

	c.mutex.Lock()
	c.me = me
	c.mutex.Unlock()

	return me, nil
}

// IsAuthorized probes the API with a self-fetch and reports whether the
// bearer token is accepted.
func (c *Client) IsAuthorized(ctx context.Context) (bool, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return false, err
	}
	return me != nil, nil
}

// AuthenticatedUser returns the self user from the last successful Me call.
func (c *Client) AuthenticatedUser() *User {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.me
}

// SearchUsers runs a name-contains search, first page only.
// Calls POST /api/v2/users/search
//
// Terms shorter than three characters resolve to an absent result without a
// network call; anything broader would be a prohibitively expensive query.
// Search results are transient and are not cached individually.
func (c *Client) SearchUsers(ctx context.Context, term string) (*UserSearchResponse, error) {
	if utf8.RuneCountInString(term) < searchTermMinLength {
		return nil, nil
	}

	u, err := c.apiURL("users", "search")
	if err != nil {
		return nil, err
	}

	req := &UserSearchRequest{
		PageSize:   searchPageSize,
		PageNumber: 1,
		Query: []*UserSearchCriteria{
			{
				Type:   "CONTAINS",
				Fields: []string{"name"},
				Value:  term,
			},
		},
	}

	res := &UserSearchResponse{}
	ok, _, err := c.do(ctx, http.MethodPost, u, req, res)
	if err != nil {
		return nil, fmt.Errorf("orgchart-explorer: error searching users: %w", err)
	}
	if !ok {
		return nil, nil
	}

	return res, nil
}

// DirectReports fetches the users reporting directly to userID, caching each
// one and appending them to the roster.
// Calls GET /api/v2/users/{id}/directreports
func (c *Client) DirectReports(ctx context.Context, userID string) ([]*User, error) {
	if userID == "" {
		return nil, nil
	}

	u, err := c.apiURL("users", url.PathEscape(userID), "directreports")
	if err != nil {
		return nil, err
	}

	var reports []*User
	ok, _, err := c.do(ctx, http.MethodGet, u, nil, &reports)
	if err != nil {
		return nil, fmt.Errorf("orgchart-explorer: error fetching direct reports: %w", err)
	}
	if !ok {
		return nil, nil
	}

	c.cacheUsers(reports...)
	c.roster.Add(reports...)

	return reports, nil
}

// Superiors fetches the management chain above userID, immediate manager
// first, caching each user. Callers reverse the slice for top-down display.
// Calls GET /api/v2/users/{id}/superiors
func (c *Client) Superiors(ctx context.Context, userID string) ([]*User, error) {
	if userID == "" {
		return nil, nil
	}

	u, err := c.apiURL("users", url.PathEscape(userID), "superiors")
	if err != nil {
		return nil, err
	}

	var superiors []*User
	ok, _, err := c.do(ctx, http.MethodGet, u, nil, &superiors)
	if err != nil {
		return nil, fmt.Errorf("orgchart-explorer: error fetching superiors: %w", err)
	}
	if !ok {
		return nil, nil
	}

	c.cacheUsers(superiors...)

	return superiors, nil
}

// UserByID returns the cached user when present, fetching and caching it
// otherwise.
// Calls GET /api/v2/users/{id}
func (c *Client) UserByID(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, nil
	}

	if cached, ok := c.users.Get(userID); ok {
		return cached, nil
	}

	u, err := c.apiURL("users", url.PathEscape(userID))
	if err != nil {
		return nil, err
	}

	user := &User{}
	ok, _, err := c.do(ctx, http.MethodGet, u, nil, user)
	if err != nil {
		return nil, fmt.Errorf("orgchart-explorer: error fetching user: %w", err)
	}
	if !ok {
		return nil, nil
	}

	c.cacheUsers(user)

	return user, nil
}
