package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// roundTrip copies the cookies set on rec onto a fresh request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionRoundTrip(t *testing.T) {
	sm, err := NewSessionManager(testKey, time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Create(rec, &Session{Subject: "u1", Email: "ada@example.com"}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	got, err := sm.Get(roundTrip(rec))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.DisplayName())
	assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, time.Minute)
}

func TestSessionExpired(t *testing.T) {
	sm, err := NewSessionManager(testKey, -time.Minute, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Create(rec, &Session{Subject: "u1"}))

	_, err = sm.Get(roundTrip(rec))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSessionTampered(t *testing.T) {
	sm, err := NewSessionManager(testKey, time.Hour, false)
	require.NoError(t, err)

	other, err := NewSessionManager([]byte("fedcba9876543210fedcba9876543210"), time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, other.Create(rec, &Session{Subject: "u1"}))

	_, err = sm.Get(roundTrip(rec))
	assert.ErrorContains(t, err, "decrypt")

	_, err = sm.Get(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorContains(t, err, "not found")
}

func TestNewSessionManagerKeyLength(t *testing.T) {
	_, err := NewSessionManager([]byte("short"), time.Hour, false)
	assert.ErrorContains(t, err, "32 bytes")
}

func TestStateValidate(t *testing.T) {
	ss, err := NewStateStore(testKey, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	data, err := ss.Generate(rec, "/tags")
	require.NoError(t, err)
	require.NotEmpty(t, data.Nonce)

	got, err := ss.Validate(roundTrip(rec), data.State)
	require.NoError(t, err)
	assert.Equal(t, data.Nonce, got.Nonce)
	assert.Equal(t, "/tags", got.ReturnTo)

	_, err = ss.Validate(roundTrip(rec), "forged")
	assert.ErrorContains(t, err, "state mismatch")
}

func TestSessionContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, SessionFromContext(req.Context()))

	s := &Session{Name: "Ada"}
	ctx := WithSession(req.Context(), s)
	assert.Same(t, s, SessionFromContext(ctx))
	assert.Equal(t, "Ada", s.DisplayName())
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		domains []string
		wantErr string
	}{
		{name: "no restriction", email: "ada@anywhere.io"},
		{name: "allowed", email: "ada@Example.com", domains: []string{"example.com"}},
		{name: "missing", email: "", wantErr: "required"},
		{name: "malformed", email: "ada", domains: []string{"example.com"}, wantErr: "invalid email"},
		{name: "other domain", email: "ada@evil.com", domains: []string{"example.com"}, wantErr: "not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEmail(tt.email, tt.domains)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
