package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/internal/infrastructure/persistence/memory"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type stubAuth struct {
	token string
	err   error
	got   []string
}

func (s *stubAuth) Authenticate(_ context.Context, email, password, role string) (string, error) {
	s.got = []string{email, password, role}
	return s.token, s.err
}

type displayErr string

func (e displayErr) Error() string   { return string(e) }
func (e displayErr) Display() string { return string(e) }

func signed(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func newOwner() (*session.Owner, *memory.SessionStore) {
	clock := func() time.Time { return now }
	store := memory.NewSessionStore(clock)
	return session.NewOwner(store, session.NewTokenDecoder(""), session.Policy{}, clock, nil), store
}

func TestLogin_Success(t *testing.T) {
	owner, store := newOwner()
	auth := &stubAuth{token: signed(t, "admin", now.Add(time.Hour))}
	h := NewLoginHandler(auth, owner, nil)
	h.newID = func() string { return "sid-1" }

	res, err := h.Handle(context.Background(), LoginCommand{
		Email: " admin@travy.io ", Password: "pw", Role: session.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "sid-1", res.SessionID)
	assert.Equal(t, session.RoleAdmin, res.Role)
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, now.Add(time.Hour).Unix(), res.ExpiresAt.Unix())
	assert.Equal(t, []string{"admin@travy.io", "pw", "admin"}, auth.got)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, NewLogoutHandler(owner, nil).Handle(context.Background(), LogoutCommand{SessionID: "sid-1"}))
	assert.Equal(t, 0, store.Len())
	require.NoError(t, NewLogoutHandler(owner, nil).Handle(context.Background(), LogoutCommand{SessionID: "sid-1"}))
}

func TestLogin_Validation(t *testing.T) {
	owner, _ := newOwner()
	h := NewLoginHandler(&stubAuth{}, owner, nil)

	_, err := h.Handle(context.Background(), LoginCommand{Password: "pw", Role: session.RoleAdmin})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = h.Handle(context.Background(), LoginCommand{Email: "a@b", Password: "pw", Role: "root"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestLogin_Rejected(t *testing.T) {
	owner, store := newOwner()

	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"server message", displayErr("Invalid credentials"), "Invalid credentials"},
		{"transport failure", errors.New("dial tcp: refused"), notice.MsgLoginFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLoginHandler(&stubAuth{err: tt.err}, owner, nil)
			_, err := h.Handle(context.Background(), LoginCommand{Email: "a@b", Password: "pw", Role: session.RoleInfluencer})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.message, shared.DisplayMessage(err, "unused"))
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestLogin_NonJWTTokenRejected(t *testing.T) {
	owner, store := newOwner()
	h := NewLoginHandler(&stubAuth{token: "opaque"}, owner, nil)

	_, err := h.Handle(context.Background(), LoginCommand{Email: "a@b", Password: "pw", Role: session.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, notice.MsgLoginFailed, shared.DisplayMessage(err, "unused"))
	assert.Equal(t, 0, store.Len())
}
