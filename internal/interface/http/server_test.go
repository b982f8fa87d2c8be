package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/application/command"
	"github.com/travy/admin-hub/internal/application/page"
	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/infrastructure/metrics"
	"github.com/travy/admin-hub/internal/infrastructure/persistence/memory"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeGateway struct {
	mu          sync.Mutex
	users       []*directory.User
	influencers []*directory.Influencer
	mutateErr   error
	calls       []string
}

func (g *fakeGateway) record(call string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
	return g.mutateErr
}

func (g *fakeGateway) ListUsers(context.Context) ([]*directory.User, error) { return g.users, nil }
func (g *fakeGateway) BlockUser(_ context.Context, id string) error       { return g.record("block:" + id) }
func (g *fakeGateway) UnblockUser(_ context.Context, id string) error     { return g.record("unblock:" + id) }
func (g *fakeGateway) DeleteInfluencer(_ context.Context, id string) error {
	return g.record("delete:" + id)
}

func (g *fakeGateway) ListInfluencers(context.Context) ([]*directory.Influencer, error) {
	return g.influencers, nil
}

func (g *fakeGateway) TopInfluencers(context.Context) ([]*directory.Influencer, error) {
	return g.influencers[:1], nil
}

func (g *fakeGateway) InfluencerProfile(context.Context) (directory.Profile, error) {
	return directory.Profile{ID: "9", Name: "Ivy", ReferralCount: 2, TotalEarnings: decimal.NewFromInt(40)}, nil
}

func (g *fakeGateway) ReferredUsers(context.Context) ([]*directory.User, error) { return g.users, nil }

type stubAuth struct {
	token string
	err   error
}

func (s *stubAuth) Authenticate(context.Context, string, string, string) (string, error) {
	return s.token, s.err
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func newGateway(t *testing.T) *fakeGateway {
	t.Helper()
	var users []*directory.User
	for _, p := range []directory.UserParams{
		{ID: "1", Name: "Alice", Email: "alice@example.com", Status: directory.StatusActive},
		{ID: "2", Name: "Bob", Email: "bob@example.com", Status: directory.StatusBlocked},
		{ID: "3", Name: "Carol", Email: "carol@example.com"},
	} {
		u, err := directory.NewUser(p)
		require.NoError(t, err)
		users = append(users, u)
	}
	var infs []*directory.Influencer
	for _, p := range []directory.InfluencerParams{
		{ID: "10", Name: "Ivy", Email: "ivy@example.com", ReferralCount: 12, ReferralLink: "https://travy.io/r/ivy"},
		{ID: "11", Name: "Max", Email: "max@example.com", ReferralCount: 3},
	} {
		inf, err := directory.NewInfluencer(p)
		require.NoError(t, err)
		infs = append(infs, inf)
	}
	return &fakeGateway{users: users, influencers: infs}
}

type harness struct {
	t       *testing.T
	server  *Server
	gateway *fakeGateway
	auth    *stubAuth
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	clock := func() time.Time { return testNow }
	owner := session.NewOwner(memory.NewSessionStore(clock), session.NewTokenDecoder(""), session.Policy{}, clock, nil)
	gw := newGateway(t)
	auth := &stubAuth{token: token(t, "admin")}
	m := metrics.New()

	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 0
	cfg.EnableCompression = false
	if mutate != nil {
		mutate(&cfg)
	}

	srv := NewServer(cfg, Dependencies{
		Sessions:   owner,
		Login:      command.NewLoginHandler(auth, owner, nil),
		Logout:     command.NewLogoutHandler(owner, nil),
		Workspaces: NewWorkspaces(func(string) Gateway { return gw }, page.Options{Now: clock}, 0),
		Metrics:    m,
		Now:        clock,
	})
	return &harness{t: t, server: srv, gateway: gw, auth: auth, metrics: m}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func (h *harness) do(method, path, sid string, body any) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.Header.Set(SessionHeader, sid)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (h *harness) login(role string) string {
	h.t.Helper()
	rec, env := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@travy.io", "password": "pw", "role": role,
	})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var res command.LoginResult
	require.NoError(h.t, json.Unmarshal(env.Data, &res))
	return res.SessionID
}

type userView struct {
	Items []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"items"`
	Page       int                       `json:"page"`
	TotalItems int                       `json:"totalItems"`
	Counts     map[string]map[string]int `json:"counts"`
	Banner     *notice.Banner            `json:"banner"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH
// ══════════════════════════════════════════════════════════════════════════════

func TestLogin_SetsCookieAndMe(t *testing.T) {
	h := newHarness(t, nil)

	rec, env := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@travy.io", "password": "pw", "role": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[command.LoginResult](t, env.Data)
	require.NotEmpty(t, res.SessionID)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, res.SessionID, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	_, env = h.do(http.MethodGet, "/api/v1/auth/me", res.SessionID, nil)
	me := decode[map[string]any](t, env.Data)
	assert.Equal(t, "admin", me["role"])
	assert.Equal(t, "ops@travy.io", me["email"])
	assert.NotContains(t, string(env.Data), h.auth.token)
}

func TestLogin_Rejected(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.err = errors.New("dial tcp: connection refused")

	rec, env := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@travy.io", "password": "pw", "role": "admin",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, notice.MsgLoginFailed, env.Error.Message)
}

func TestLogin_UnknownRole(t *testing.T) {
	h := newHarness(t, nil)

	rec, _ := h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@travy.io", "password": "pw", "role": "root",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuard(t *testing.T) {
	h := newHarness(t, nil)

	rec, _ := h.do(http.MethodGet, "/api/v1/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = h.do(http.MethodGet, "/api/v1/admin/users", "missing", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h.auth.token = token(t, "influencer")
	sid := h.login("influencer")
	rec, env := h.do(http.MethodGet, "/api/v1/admin/users", sid, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Error.Code)

	rec, _ = h.do(http.MethodGet, "/api/v1/influencer/dashboard", sid, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout_DropsWorkspace(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login("admin")

	h.do(http.MethodGet, "/api/v1/admin/users", sid, nil)
	assert.Equal(t, 1, h.server.deps.Workspaces.Len())

	rec, _ := h.do(http.MethodPost, "/api/v1/auth/logout", sid, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, h.server.deps.Workspaces.Len())

	rec, _ = h.do(http.MethodGet, "/api/v1/admin/users", sid, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS PAGE
// ══════════════════════════════════════════════════════════════════════════════

func TestUsersView_QueryAndPage(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login("admin")

	rec, env := h.do(http.MethodGet, "/api/v1/admin/users", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[userView](t, env.Data)
	assert.Equal(t, 3, v.TotalItems)
	assert.Equal(t, 2, v.Counts["status"]["active"])

	_, env = h.do(http.MethodPatch, "/api/v1/admin/users/view/query", sid, map[string]string{"status": "blocked"})
	v = decode[userView](t, env.Data)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "2", v.Items[0].ID)

	rec, _ = h.do(http.MethodPatch, "/api/v1/admin/users/view/query", sid, map[string]string{"sortBy": "age"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = h.do(http.MethodPut, "/api/v1/admin/users/view/page", sid, map[string]int{"page": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, env = h.do(http.MethodPut, "/api/v1/admin/users/view/page", sid, map[string]int{"page": 5})
	assert.Equal(t, 1, decode[userView](t, env.Data).Page)

	_, env = h.do(http.MethodDelete, "/api/v1/admin/users/view/query", sid, nil)
	assert.Equal(t, 3, decode[userView](t, env.Data).TotalItems)
}

func TestUserBlock(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login("admin")
	h.do(http.MethodGet, "/api/v1/admin/users", sid, nil)

	rec, env := h.do(http.MethodPut, "/api/v1/admin/users/1/block", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[struct {
		User struct {
			Status string `json:"status"`
		} `json:"user"`
		View userView `json:"view"`
	}](t, env.Data)
	assert.Equal(t, "blocked", res.User.Status)
	assert.Equal(t, 2, res.View.Counts["status"]["blocked"])
	assert.Equal(t, []string{"block:1"}, h.gateway.calls)

	_, env = h.do(http.MethodPost, "/api/v1/admin/users/1/toggle", sid, nil)
	assert.Contains(t, string(env.Data), `"status":"active"`)
	assert.Equal(t, []string{"block:1", "unblock:1"}, h.gateway.calls)
}

func TestUserBlock_Failure(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login("admin")
	h.do(http.MethodGet, "/api/v1/admin/users", sid, nil)
	h.gateway.mutateErr = errors.New("boom")

	rec, env := h.do(http.MethodPut, "/api/v1/admin/users/1/block", sid, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, notice.MsgUpdateStatusFailed, env.Error.Message)

	_, env = h.do(http.MethodGet, "/api/v1/admin/users", sid, nil)
	v := decode[userView](t, env.Data)
	require.NotNil(t, v.Banner)
	assert.Equal(t, notice.MsgUpdateStatusFailed, v.Banner.Message)
	assert.Equal(t, 1, v.Counts["status"]["blocked"])

	_, env = h.do(http.MethodDelete, "/api/v1/admin/users/view/banner", sid, nil)
	assert.Nil(t, decode[userView](t, env.Data).Banner)
}

// ══════════════════════════════════════════════════════════════════════════════
// INFLUENCERS PAGE
// ══════════════════════════════════════════════════════════════════════════════

func TestInfluencerDelete_RequiresConfirmation(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login("admin")
	h.do(http.MethodGet, "/api/v1/admin/influencers", sid, nil)

	rec, env := h.do(http.MethodDelete, "/api/v1/admin/influencers/11", sid, nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	assert.Equal(t, notice.MsgConfirmDelete, env.Error.Message)
	assert.Empty(t, h.gateway.calls)

	rec, env = h.do(http.MethodDelete, "/api/v1/admin/influencers/11?confirm=true", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[userView](t, env.Data).TotalItems)
	assert.Equal(t, []string{"delete:11"}, h.gateway.calls)
}

func TestInfluencerLink(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login("admin")
	h.do(http.MethodGet, "/api/v1/admin/influencers", sid, nil)

	_, env := h.do(http.MethodGet, "/api/v1/admin/influencers/10/link", sid, nil)
	assert.Equal(t, "https://travy.io/r/ivy", decode[map[string]string](t, env.Data)["referralLink"])

	rec, _ := h.do(http.MethodGet, "/api/v1/admin/influencers/99/link", sid, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARDS
// ══════════════════════════════════════════════════════════════════════════════

func TestAdminDashboard(t *testing.T) {
	h := newHarness(t, nil)
	sid := h.login("admin")

	rec, env := h.do(http.MethodGet, "/api/v1/admin/dashboard", sid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[map[string]any](t, env.Data)
	assert.EqualValues(t, 3, d["totalUsers"])
	assert.EqualValues(t, 2, d["totalInfluencers"])
}

func TestInfluencerDashboard_BadPage(t *testing.T) {
	h := newHarness(t, nil)
	h.auth.token = token(t, "influencer")
	sid := h.login("influencer")

	rec, _ := h.do(http.MethodGet, "/api/v1/influencer/dashboard?page=x", sid, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// INFRASTRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil)

	rec, _ := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	h.do(http.MethodGet, "/api/v1/admin/users", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(mrec, req)
	assert.Equal(t, http.StatusOK, mrec.Code)
	assert.Contains(t, mrec.Body.String(), "admin_hub_http_requests_total")
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.RateLimitPerSecond = 0.001
		c.RateLimitBurst = 2
	})

	for i := 0; i < 2; i++ {
		rec, _ := h.do(http.MethodGet, "/live", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := h.do(http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", env.Error.Code)
}

func TestRecoveryFromPanic(t *testing.T) {
	h := newHarness(t, nil)
	h.server.router.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec, env := h.do(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_server_error", env.Error.Code)
}
