package genesys

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"orgchart-explorer/pkg/scheduler"
)

type fakeDirectory struct {
	me            *User
	users         map[string]*User
	directReports map[string][]*User
	superiors     map[string][]*User
	searchResults []*User

	mu           sync.Mutex
	requests     int64
	searchBodies []*UserSearchRequest
	meStatus     int
	bearerSeen   string
}

func (f *fakeDirectory) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.requests, 1)
		f.mu.Lock()
		f.bearerSeen = r.Header.Get("Authorization")
		f.mu.Unlock()

		switch {
		case r.URL.Path == "/api/v2/users/me":
			if f.meStatus != 0 {
				w.WriteHeader(f.meStatus)
				return
			}
			writeJSON(t, w, f.me)
		case r.URL.Path == "/api/v2/users/search" && r.Method == http.MethodPost:
			body := &UserSearchRequest{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(body))
			f.mu.Lock()
			f.searchBodies = append(f.searchBodies, body)
			f.mu.Unlock()
			writeJSON(t, w, &UserSearchResponse{
				Total:      len(f.searchResults),
				PageCount:  1,
				PageSize:   body.PageSize,
				PageNumber: body.PageNumber,
				Results:    f.searchResults,
			})
		case strings.HasSuffix(r.URL.Path, "/directreports"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v2/users/"), "/directreports")
			writeJSON(t, w, f.directReports[id])
		case strings.HasSuffix(r.URL.Path, "/superiors"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v2/users/"), "/superiors")
			writeJSON(t, w, f.superiors[id])
		default:
			id := strings.TrimPrefix(r.URL.Path, "/api/v2/users/")
			u, ok := f.users[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			writeJSON(t, w, u)
		}
	})
}

func (f *fakeDirectory) authHeader() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bearerSeen
}

func (f *fakeDirectory) searches() []*UserSearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchBodies
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, dir *fakeDirectory) (*Client, *httptest.Server) {
	srv := httptest.NewServer(dir.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), "", "test-token",
		WithBaseURL(srv.URL),
		WithScheduler(scheduler.New()),
	)
	require.NoError(t, err)

	return c, srv
}

func TestMeCachesSelf(t *testing.T) {
	dir := &fakeDirectory{
		me: &User{ID: "me-1", Name: "Ada Example", Title: "Engineer"},
	}
	c, _ := newTestClient(t, dir)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	require.NotNil(t, me)
	require.Equal(t, "me-1", me.ID)
	require.Equal(t, "Bearer test-token", dir.authHeader())
	require.False(t, c.AuthFailed())
	require.Equal(t, me, c.AuthenticatedUser())

	// The self user lands in the cache, so a lookup needs no network call.
	before := atomic.LoadInt64(&dir.requests)
	cached, err := c.UserByID(context.Background(), "me-1")
	require.NoError(t, err)
	require.Same(t, me, cached)
	require.Equal(t, before, atomic.LoadInt64(&dir.requests))
}

func TestMeAuthFailure(t *testing.T) {
	dir := &fakeDirectory{meStatus: http.StatusUnauthorized}
	c, _ := newTestClient(t, dir)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Nil(t, me)
	require.True(t, c.AuthFailed())

	authorized, err := c.IsAuthorized(context.Background())
	require.NoError(t, err)
	require.False(t, authorized)
}

func TestSearchUsersShortTermSkipsNetwork(t *testing.T) {
	dir := &fakeDirectory{}
	c, _ := newTestClient(t, dir)

	// The threshold counts characters, not bytes: a two-rune CJK term is
	// still too short even though it is six bytes long.
	for _, term := range []string{"", "a", "ab", "日", "日本"} {
		res, err := c.SearchUsers(context.Background(), term)
		require.NoError(t, err)
		require.Nil(t, res)
	}
	require.Zero(t, atomic.LoadInt64(&dir.requests))
}

func TestSearchUsersCountsRunes(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: []*User{{ID: "u-1", Name: "日本語"}},
	}
	c, _ := newTestClient(t, dir)

	res, err := c.SearchUsers(context.Background(), "日本語")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, int64(1), atomic.LoadInt64(&dir.requests))
}

func TestSearchUsersPostsContainsQuery(t *testing.T) {
	dir := &fakeDirectory{
		searchResults: []*User{{ID: "u-1", Name: "Abc Def"}},
	}
	c, _ := newTestClient(t, dir)

	res, err := c.SearchUsers(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, res.Results, 1)
	require.Equal(t, int64(1), atomic.LoadInt64(&dir.requests))

	bodies := dir.searches()
	require.Len(t, bodies, 1)
	body := bodies[0]
	require.Equal(t, searchPageSize, body.PageSize)
	require.Equal(t, 1, body.PageNumber)
	require.Len(t, body.Query, 1)
	require.Equal(t, "CONTAINS", body.Query[0].Type)
	require.Equal(t, []string{"name"}, body.Query[0].Fields)
	require.Equal(t, "abc", body.Query[0].Value)
}

func TestDirectReportsAccumulateInRoster(t *testing.T) {
	shared := &User{ID: "u-3", Name: "Shared Report"}
	dir := &fakeDirectory{
		directReports: map[string][]*User{
			"mgr-1": {{ID: "u-1"}, {ID: "u-2"}, shared},
			"mgr-2": {{ID: "u-3"}, {ID: "u-4"}},
		},
	}
	c, _ := newTestClient(t, dir)

	_, err := c.DirectReports(context.Background(), "mgr-1")
	require.NoError(t, err)
	_, err = c.DirectReports(context.Background(), "mgr-2")
	require.NoError(t, err)

	snapshot := c.Roster().Snapshot()
	ids := make([]string, 0, len(snapshot))
	for _, u := range snapshot {
		ids = append(ids, u.ID)
	}
	require.Equal(t, []string{"u-1", "u-2", "u-3", "u-4"}, ids)
}

func TestDirectReportsEmptyID(t *testing.T) {
	dir := &fakeDirectory{}
	c, _ := newTestClient(t, dir)

	reports, err := c.DirectReports(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, reports)
	require.Zero(t, atomic.LoadInt64(&dir.requests))
}

func TestSuperiorsOrderPreserved(t *testing.T) {
	dir := &fakeDirectory{
		superiors: map[string][]*User{
			"u-1": {{ID: "mgr"}, {ID: "vp"}, {ID: "ceo"}},
		},
	}
	c, _ := newTestClient(t, dir)

	chain, err := c.Superiors(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	require.Equal(t, "mgr", chain[0].ID)
	require.Equal(t, "ceo", chain[2].ID)

	// Every superior is cached under its own ID.
	before := atomic.LoadInt64(&dir.requests)
	vp, err := c.UserByID(context.Background(), "vp")
	require.NoError(t, err)
	require.NotNil(t, vp)
	require.Equal(t, before, atomic.LoadInt64(&dir.requests))
}

func TestUserByIDCacheFirst(t *testing.T) {
	dir := &fakeDirectory{
		users: map[string]*User{"u-9": {ID: "u-9", Name: "Cached Once"}},
	}
	c, _ := newTestClient(t, dir)

	first, err := c.UserByID(context.Background(), "u-9")
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, int64(1), atomic.LoadInt64(&dir.requests))

	second, err := c.UserByID(context.Background(), "u-9")
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, int64(1), atomic.LoadInt64(&dir.requests))
}

func TestUserByIDAbsentOnFailure(t *testing.T) {
	dir := &fakeDirectory{}
	c, _ := newTestClient(t, dir)

	user, err := c.UserByID(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, user)
}
