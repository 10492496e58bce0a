package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/sessionguard/internal/domain"
)

// memSessions is an in-memory ports.SessionRepository.
type memSessions struct {
	session *domain.Session
	cleared bool
}

func (m *memSessions) Load(ctx context.Context) (domain.Session, error) {
	if m.session == nil {
		return domain.Session{}, domain.ErrNoSession
	}
	return *m.session, nil
}

func (m *memSessions) Save(ctx context.Context, s domain.Session) error {
	m.session = &s
	return nil
}

func (m *memSessions) Clear(ctx context.Context) error {
	m.session = nil
	m.cleared = true
	return nil
}

type failingClient struct{}

func (failingClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func sessionFor(url string) *domain.Session {
	return &domain.Session{
		Homeserver:  url + "/",
		UserID:      "@alice:example.org",
		DeviceID:    "DEVICE1",
		AccessToken: "secret",
	}
}

func TestLogoutClient_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/_matrix/client/v3/logout", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte("{}"))
	}))
	defer ts.Close()

	repo := &memSessions{session: sessionFor(ts.URL)}
	c := NewLogoutClient(ts.Client(), repo, nil)

	device, err := c.Logout(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "DEVICE1", device)
	require.True(t, repo.cleared)
}

func TestLogoutClient_NoSession(t *testing.T) {
	c := NewLogoutClient(http.DefaultClient, &memSessions{}, nil)

	device, err := c.Logout(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, device)
}

func TestLogoutClient_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errcode":"M_UNKNOWN","error":"database unavailable"}`))
	}))
	defer ts.Close()

	tests := []struct {
		name        string
		ignore      bool
		wantErr     bool
		wantCleared bool
	}{
		{"strict", false, true, false},
		{"ignore server error", true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memSessions{session: sessionFor(ts.URL)}
			c := NewLogoutClient(ts.Client(), repo, nil)

			device, err := c.Logout(context.Background(), tt.ignore)
			if tt.wantErr {
				var serr *domain.ServerError
				require.ErrorAs(t, err, &serr)
				require.Equal(t, http.StatusInternalServerError, serr.StatusCode)
				require.Equal(t, "M_UNKNOWN", serr.ErrCode)
				require.Equal(t, "database unavailable", serr.Body)
				require.Empty(t, device)
			} else {
				require.NoError(t, err)
				require.Equal(t, "DEVICE1", device)
			}
			require.Equal(t, tt.wantCleared, repo.cleared)
		})
	}
}

func TestLogoutClient_UnknownTokenClearsSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errcode":"M_UNKNOWN_TOKEN","error":"Invalid access token"}`))
	}))
	defer ts.Close()

	repo := &memSessions{session: sessionFor(ts.URL)}
	device, err := NewLogoutClient(ts.Client(), repo, nil).Logout(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "DEVICE1", device)
	require.True(t, repo.cleared)
}

func TestLogoutClient_TransportError(t *testing.T) {
	repo := &memSessions{session: sessionFor("http://homeserver.invalid")}
	c := NewLogoutClient(failingClient{}, repo, nil)

	_, err := c.Logout(context.Background(), false)
	require.ErrorContains(t, err, "connection refused")
	require.False(t, repo.cleared)

	device, err := c.Logout(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, "DEVICE1", device)
	require.True(t, repo.cleared)
}

func TestLogoutClient_InvalidSession(t *testing.T) {
	repo := &memSessions{session: &domain.Session{Homeserver: "https://example.org"}}
	_, err := NewLogoutClient(http.DefaultClient, repo, nil).Logout(context.Background(), true)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}
