package security

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCredentialStore(t *testing.T) {
	store := NewCredentialStore(quietLogger())
	require.NoError(t, store.Add("user", "password123"))

	user, err := store.Authenticate(context.Background(), "user", "password123")
	require.NoError(t, err)
	assert.Equal(t, entities.User{Username: "user"}, user)

	_, err = store.Authenticate(context.Background(), "user", "wrong")
	assert.ErrorIs(t, err, interfaces.ErrInvalidCredentials)

	_, err = store.Authenticate(context.Background(), "nobody", "password123")
	assert.ErrorIs(t, err, interfaces.ErrInvalidCredentials)

	_, ok := store.Lookup(context.Background(), "user")
	assert.True(t, ok)
	_, ok = store.Lookup(context.Background(), "nobody")
	assert.False(t, ok)
}

func TestCredentialStoreAcceptsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	store := NewCredentialStore(quietLogger())
	require.NoError(t, store.Add("admin", string(hash)))

	_, err = store.Authenticate(context.Background(), "admin", "s3cret")
	assert.NoError(t, err)
}

func TestCredentialStoreRejectsBlank(t *testing.T) {
	store := NewCredentialStore(quietLogger())
	assert.ErrorIs(t, store.Add(" ", "x"), entities.ErrMissingCredentials)
	assert.ErrorIs(t, store.Add("user", ""), entities.ErrMissingCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	m, err := NewSessionManager("test-secret", time.Hour, false)
	require.NoError(t, err)
	assert.False(t, m.Ephemeral())

	token, expires, err := m.Issue(entities.User{Username: "user"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user", claims.Username)

	m.Revoke(claims)
	assert.Equal(t, 1, m.RevokedCount())
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrRevokedSession)
}

func TestSessionExpiry(t *testing.T) {
	m, err := NewSessionManager("test-secret", time.Minute, false)
	require.NoError(t, err)

	now := time.Now()
	m.now = func() time.Time { return now }
	token, _, err := m.Issue(entities.User{Username: "user"})
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	a, err := NewSessionManager("key-a", time.Hour, false)
	require.NoError(t, err)
	b, err := NewSessionManager("", time.Hour, false)
	require.NoError(t, err)
	assert.True(t, b.Ephemeral())

	token, _, err := a.Issue(entities.User{Username: "user"})
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	_, err = b.Validate("")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = b.Validate("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionCookies(t *testing.T) {
	m, err := NewSessionManager("test-secret", time.Hour, true)
	require.NoError(t, err)

	token, expires, err := m.Issue(entities.User{Username: "user"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.SetCookie(rec, token, expires)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	claims, err := m.FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "user", claims.Username)

	_, err = m.FromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)

	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.True(t, cleared[0].MaxAge < 0)
}
