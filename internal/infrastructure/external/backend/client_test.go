package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/circuitbreaker"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	CType  string
	Body   string
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			CType:  r.Header.Get("Content-Type"),
			Body:   string(body),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return NewClient(DefaultClientConfig(srv.URL + "/api")), &seen
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Verbs(t *testing.T) {
	client, seen := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/json":
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		case "/api/text":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, "pong")
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	resp, err := client.WithToken("tok").Get(ctx, "/json")
	require.NoError(t, err)
	v, err := resp.Value()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, v)

	resp, err = client.Post(ctx, "/text", map[string]string{"a": "b"})
	require.NoError(t, err)
	v, err = resp.Value()
	require.NoError(t, err)
	assert.Equal(t, "pong", v)

	resp, err = client.Patch(ctx, "/empty", nil)
	require.NoError(t, err)
	v, err = resp.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	require.Len(t, *seen, 3)
	assert.Equal(t, "Bearer tok", (*seen)[0].Auth)
	assert.Equal(t, "", (*seen)[1].Auth)
	assert.Equal(t, "application/json", (*seen)[1].CType)
	assert.JSONEq(t, `{"a":"b"}`, (*seen)[1].Body)
	assert.Equal(t, http.MethodPatch, (*seen)[2].Method)
}

func TestClient_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		kind    error
	}{
		{"server message", http.StatusNotFound, `{"message":"User not found"}`, "User not found", shared.ErrNotFound},
		{"no message", http.StatusInternalServerError, `oops`, "HTTP error! status: 500", shared.ErrExternalService},
		{"empty message", http.StatusForbidden, `{"message":""}`, "HTTP error! status: 403", shared.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.Put(context.Background(), "/users/1/block", nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, shared.DisplayMessage(err, "fallback"))
		})
	}
}

func TestClient_ListUsers(t *testing.T) {
	client, seen := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "name": "Ann", "email": "ann@x.io", "status": "blocked", "createdAt": "2024-06-10T08:00:00Z"},
			{"id": "u-2", "email": "bob@x.io", "signUpDate": 1718000000000},
		})
	})

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "/api/users", (*seen)[0].Path)

	assert.Equal(t, "1", users[0].ID())
	assert.Equal(t, directory.StatusBlocked, users[0].Status())
	ts, ok := users[0].Timestamp()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), ts.UTC())

	assert.Equal(t, "u-2", users[1].ID())
	assert.Equal(t, directory.UnknownName, directory.DisplayName(users[1]))
	ts, ok = users[1].Timestamp()
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(1718000000000).UTC(), ts)
}

func TestClient_NullListIsEmpty(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, nil)
	})

	influencers, err := client.ListInfluencers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, influencers)
}

func TestClient_DuplicateIDRejected(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 7, "name": "Ann", "referralCount": 12, "totalEarnings": "120.50"},
			{"id": "7", "name": "Ann again"},
		})
	})

	_, err := client.ListInfluencers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrExternalService)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestClient_MutationPaths(t *testing.T) {
	client, seen := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()

	require.NoError(t, client.BlockUser(ctx, "42"))
	require.NoError(t, client.UnblockUser(ctx, "42"))
	require.NoError(t, client.DeleteInfluencer(ctx, "a/b"))

	require.Len(t, *seen, 3)
	assert.Equal(t, http.MethodPut, (*seen)[0].Method)
	assert.Equal(t, "/api/users/42/block", (*seen)[0].Path)
	assert.Equal(t, "/api/users/42/unblock", (*seen)[1].Path)
	assert.Equal(t, http.MethodDelete, (*seen)[2].Method)
	assert.Equal(t, "/api/influencers/a/b", (*seen)[2].Path)
}

func TestClient_Login(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		client, seen := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"token": "jwt"})
		})

		token, err := client.Login(context.Background(), LoginRequest{Email: "a@x.io", Password: "pw", Role: "admin"})
		require.NoError(t, err)
		assert.Equal(t, "jwt", token)
		assert.JSONEq(t, `{"email":"a@x.io","password":"pw","role":"admin"}`, (*seen)[0].Body)
	})

	t.Run("missing token", func(t *testing.T) {
		client, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{})
		})

		_, err := client.Login(context.Background(), LoginRequest{})
		assert.ErrorIs(t, err, ErrInvalidLoginResponse)
		assert.Equal(t, "Invalid response from server", shared.DisplayMessage(err, "Login failed"))
	})

	t.Run("transport failure uses fallback", func(t *testing.T) {
		client := NewClient(DefaultClientConfig("http://127.0.0.1:1/api"))
		_, err := client.Login(context.Background(), LoginRequest{})
		require.Error(t, err)
		assert.Equal(t, "Login failed", shared.DisplayMessage(err, "Login failed"))
	})
}

func TestClient_BreakerOpensOnServerErrorsOnly(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	cfg := DefaultClientConfig(srv.URL)
	cfg.Breaker = NewBreaker(BreakerConfig{})
	client := NewClient(cfg)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, _ = client.Get(ctx, "/users")
	}
	assert.Equal(t, circuitbreaker.StateClosed, cfg.Breaker.State())

	status = http.StatusBadGateway
	for i := 0; i < 5; i++ {
		_, _ = client.Get(ctx, "/users")
	}
	_, err := client.Get(ctx, "/users")
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.Equal(t, "Failed to load users", shared.DisplayMessage(err, "Failed to load users"))
}

func TestClient_CanceledContext(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.BlockUser(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, shared.ErrCanceled)
}
