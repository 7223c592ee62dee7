package chatkit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, url, secretPath string) *Client {
	t.Helper()
	c, err := New(url, "sk-test", secretPath, 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestCreateSessionRequestShape(t *testing.T) {
	t.Parallel()

	var got CreateSessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, SessionsPath, r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, BetaValue, r.Header.Get(BetaHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cksess_1","client_secret":"sec_1","expires_at":123}`))
	}))
	defer srv.Close()

	secret, err := newTestClient(t, srv.URL+"/", "").CreateSession(context.Background(), CreateSessionRequest{
		Workflow: Workflow{ID: "wf_1"},
		User:     "device-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sec_1", secret)
	assert.Equal(t, "wf_1", got.Workflow.ID)
	assert.Equal(t, "device-1", got.User)
}

func TestCreateSessionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantIs    error
		wantState int
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, wantState: http.StatusUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantState: http.StatusInternalServerError},
		{name: "missing secret", status: http.StatusOK, body: `{"id":"cksess_1"}`, wantIs: ErrMalformedResponse},
		{name: "empty secret", status: http.StatusOK, body: `{"client_secret":""}`, wantIs: ErrMalformedResponse},
		{name: "non-string secret", status: http.StatusOK, body: `{"client_secret":{"value":"x"}}`, wantIs: ErrMalformedResponse},
		{name: "not json", status: http.StatusOK, body: "<html>", wantIs: ErrMalformedResponse},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, "").CreateSession(context.Background(), CreateSessionRequest{User: "d"})
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
				return
			}
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantState, se.Status)
			assert.Equal(t, tt.body, se.Body)
			assert.NotContains(t, se.Error(), tt.body)
		})
	}
}

func TestCreateSessionUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url, "").CreateSession(context.Background(), CreateSessionRequest{User: "d"})
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestCreateSessionCustomSecretPath(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"session":{"token":"tok_9"}}`))
	}))
	defer srv.Close()

	secret, err := newTestClient(t, srv.URL, "session.token").CreateSession(context.Background(), CreateSessionRequest{User: "d"})
	require.NoError(t, err)
	assert.Equal(t, "tok_9", secret)
}

func TestNewRejectsBadSecretPath(t *testing.T) {
	t.Parallel()

	_, err := New("http://localhost", "k", "a.[", time.Second)
	assert.Error(t, err)
}
