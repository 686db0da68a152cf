package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"feedback_automation/domain/entities"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "feedback_session"

var (
	ErrNoSession      = errors.New("no session token provided")
	ErrInvalidSession = errors.New("invalid session token")
	ErrExpiredSession = errors.New("session has expired")
	ErrRevokedSession = errors.New("session has been revoked")
)

// Claims are the JWT claims of a front-end session.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates HMAC-signed session tokens. Logged out
// tokens are remembered until they would have expired anyway.
type SessionManager struct {
	secretKey []byte
	ttl       time.Duration
	secure    bool
	ephemeral bool
	now       func() time.Time

	mu      sync.RWMutex
	revoked map[string]time.Time // token ID -> expiry
}

// NewSessionManager creates a manager signing with secret. An empty secret is
// replaced by a random key, which invalidates sessions on restart.
func NewSessionManager(secret string, ttl time.Duration, secureCookies bool) (*SessionManager, error) {
	m := &SessionManager{
		secretKey: []byte(secret),
		ttl:       ttl,
		secure:    secureCookies,
		now:       time.Now,
		revoked:   make(map[string]time.Time),
	}
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		m.secretKey = key
		m.ephemeral = true
	}
	return m, nil
}

// Ephemeral reports whether the signing key was generated at startup.
func (m *SessionManager) Ephemeral() bool { return m.ephemeral }

// Issue signs a new session token for user.
func (m *SessionManager) Issue(user entities.User) (string, time.Time, error) {
	tokenID, err := generateTokenID()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate token ID: %w", err)
	}

	now := m.now()
	expires := now.Add(m.ttl)
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Validate verifies the signature, expiry and revocation state of token.
func (m *SessionManager) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, ErrInvalidSession
	}
	if !token.Valid || claims.Username == "" {
		return nil, ErrInvalidSession
	}

	m.mu.RLock()
	_, revoked := m.revoked[claims.ID]
	m.mu.RUnlock()
	if revoked {
		return nil, ErrRevokedSession
	}
	return claims, nil
}

// Revoke invalidates a token that passed Validate.
func (m *SessionManager) Revoke(claims *Claims) {
	expires := m.now().Add(m.ttl)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.revoked[claims.ID] = expires
	m.cleanupLocked()
}

// cleanupLocked drops revocations whose tokens have expired on their own.
func (m *SessionManager) cleanupLocked() {
	now := m.now()
	for id, expires := range m.revoked {
		if now.After(expires) {
			delete(m.revoked, id)
		}
	}
}

// RevokedCount returns the number of remembered revocations.
func (m *SessionManager) RevokedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.revoked)
}

// FromRequest validates the session cookie of r.
func (m *SessionManager) FromRequest(r *http.Request) (*Claims, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return m.Validate(c.Value)
}

// SetCookie writes the session cookie.
func (m *SessionManager) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie in the browser.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func generateTokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
