package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/application/command"
	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/internal/infrastructure/persistence/file"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

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
	return directory.Profile{ID: "10", Name: "Ivy", ReferralCount: 2, TotalEarnings: decimal.NewFromInt(40)}, nil
}

func (g *fakeGateway) ReferredUsers(context.Context) ([]*directory.User, error) { return g.users, nil }

type stubAuth struct{ token string }

func (s *stubAuth) Authenticate(context.Context, string, string, string) (string, error) {
	return s.token, nil
}

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Role:             role,
		Email:            role + "@travy.io",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour))},
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

type harness struct {
	t         *testing.T
	env       Env
	auth      *stubAuth
	gateway   *fakeGateway
	clipboard *fakeClipboard
	out       *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := func() time.Time { return testNow }
	store := file.NewSessionStore(filepath.Join(t.TempDir(), "session.yaml"), clock)
	owner := session.NewOwner(store, session.NewTokenDecoder(""), session.Policy{}, clock, nil)

	joined := testNow.Add(-3 * 24 * time.Hour)
	var users []*directory.User
	for _, p := range []directory.UserParams{
		{ID: "1", Name: "Alice", Email: "alice@example.com", Status: directory.StatusActive, CreatedAt: &joined},
		{ID: "2", Name: "Bob", Email: "bob@example.com", Status: directory.StatusBlocked},
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

	h := &harness{
		t:         t,
		auth:      &stubAuth{token: token(t, "admin")},
		gateway:   &fakeGateway{users: users, influencers: infs},
		clipboard: &fakeClipboard{},
		out:       &bytes.Buffer{},
	}
	h.env = Env{
		Sessions:        owner,
		Login:           command.NewLoginHandler(h.auth, owner, nil),
		Logout:          command.NewLogoutHandler(owner, nil),
		Gateway:         func(string) Gateway { return h.gateway },
		Clipboard:       h.clipboard,
		Now:             clock,
		Out:             h.out,
		CopyToClipboard: true,
		AllowDelete:     true,
	}
	return h
}

// run executes one adminctl invocation with stdin set to input.
func (h *harness) run(input string, args ...string) (string, error) {
	h.t.Helper()
	h.out.Reset()
	env := h.env
	env.In = strings.NewReader(input)
	err := NewApp(env).Run(context.Background(), append([]string{"adminctl"}, args...))
	return h.out.String(), err
}

func (h *harness) login(role string) {
	h.t.Helper()
	h.auth.token = token(h.t, role)
	_, err := h.run("", "login", "--email", role+"@travy.io", "--password", "secret", "--role", role)
	require.NoError(h.t, err)
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "whoami")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	h.login("admin")

	out, err := h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@travy.io")
	assert.Contains(t, out, "admin")

	_, err = h.run("", "logout")
	require.NoError(t, err)

	_, err = h.run("", "users", "list")
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestLogin_PasswordFromEnv(t *testing.T) {
	h := newHarness(t)
	t.Setenv(PasswordEnv, "from-env")

	out, err := h.run("", "login", "--email", "admin@travy.io")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as admin@travy.io")
}

func TestUsersList_Filters(t *testing.T) {
	h := newHarness(t)
	h.login("admin")

	out, err := h.run("", "users", "list", "--status", "blocked")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob")
	assert.NotContains(t, out, "Alice")
	assert.Contains(t, out, "Page 1 of 1")

	out, err = h.run("", "users", "list", "--search", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "No users match the current filters.")

	out, err = h.run("", "users", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "No users")
	assert.Contains(t, out, "Jun 12, 2024 (3 days ago)")

	_, err = h.run("", "users", "list", "--sort-by", "salary")
	assert.True(t, shared.IsValidation(err))
}

func TestUserBlock(t *testing.T) {
	h := newHarness(t)
	h.login("admin")

	out, err := h.run("", "users", "block", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "User 1 is now blocked")
	assert.Equal(t, []string{"block:1"}, h.gateway.calls)

	_, err = h.run("", "users", "toggle", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"block:1", "unblock:2"}, h.gateway.calls)

	_, err = h.run("", "users", "block")
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestUserBlock_Failure(t *testing.T) {
	h := newHarness(t)
	h.login("admin")
	h.gateway.mutateErr = errors.New("backend down")

	out, err := h.run("", "users", "unblock", "2")
	require.Error(t, err)
	assert.Contains(t, out, notice.MsgUpdateStatusFailed)
}

func TestInfluencerDelete_Confirmation(t *testing.T) {
	h := newHarness(t)
	h.login("admin")

	out, err := h.run("n\n", "influencers", "delete", "10")
	require.NoError(t, err)
	assert.Contains(t, out, notice.MsgConfirmDelete+" Ivy (10)")
	assert.Contains(t, out, "Cancelled.")
	assert.Empty(t, h.gateway.calls)

	out, err = h.run("y\n", "influencers", "delete", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Influencer 10 deleted")
	assert.Equal(t, []string{"delete:10"}, h.gateway.calls)

	_, err = h.run("", "influencers", "delete", "--yes", "11")
	require.NoError(t, err)
	assert.Equal(t, []string{"delete:10", "delete:11"}, h.gateway.calls)
}

func TestInfluencerDelete_Disabled(t *testing.T) {
	h := newHarness(t)
	h.env.AllowDelete = false
	h.login("admin")

	_, err := h.run("", "influencers", "delete", "--yes", "10")
	assert.ErrorIs(t, err, ErrDeleteDisabled)
	assert.Empty(t, h.gateway.calls)
}

func TestInfluencerCopyLink(t *testing.T) {
	h := newHarness(t)
	h.login("admin")

	out, err := h.run("", "influencers", "copy-link", "10")
	require.NoError(t, err)
	assert.Equal(t, "https://travy.io/r/ivy", h.clipboard.text)
	assert.Contains(t, out, notice.MsgLinkCopied)
	assert.Contains(t, out, "https://travy.io/r/ivy")

	h.clipboard.err = errors.New("no display")
	out, err = h.run("", "influencers", "copy-link", "10")
	require.NoError(t, err)
	assert.Contains(t, out, notice.MsgCopyFailed)

	_, err = h.run("", "influencers", "copy-link", "99")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInfluencersList_TopPerformers(t *testing.T) {
	h := newHarness(t)
	h.login("admin")

	out, err := h.run("", "influencers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Top performers: 1. Ivy (12)")

	h.env.HideTopPerformers = true
	out, err = h.run("", "influencers", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Top performers")
}

func TestDashboards_RoleGuard(t *testing.T) {
	h := newHarness(t)
	h.login("influencer")

	_, err := h.run("", "dashboard")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	out, err := h.run("", "influencer", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, Ivy")
	assert.Contains(t, out, "$40.00")

	h.login("admin")
	out, err = h.run("", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Top influencers")
}
