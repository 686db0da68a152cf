package security

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)

// CredentialStore is the in-memory table of front-end users.
type CredentialStore struct {
	logger *logrus.Logger

	mu    sync.RWMutex
	users map[string][]byte
}

func NewCredentialStore(logger *logrus.Logger) *CredentialStore {
	return &CredentialStore{
		logger: logger,
		users:  make(map[string][]byte),
	}
}

// Add registers a user. password may be plain text or an existing bcrypt hash.
func (s *CredentialStore) Add(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return entities.ErrMissingCredentials
	}

	hash := []byte(password)
	if _, err := bcrypt.Cost(hash); err != nil {
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", username, err)
		}
	}

	s.mu.Lock()
	s.users[username] = hash
	s.mu.Unlock()
	return nil
}

func (s *CredentialStore) Authenticate(ctx context.Context, username, password string) (entities.User, error) {
	s.mu.RLock()
	hash, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.logger.WithField("username", username).Info("login rejected: unknown user")
		return entities.User{}, interfaces.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		s.logger.WithField("username", username).Info("login rejected: wrong password")
		return entities.User{}, interfaces.ErrInvalidCredentials
	}
	return entities.User{Username: username}, nil
}

func (s *CredentialStore) Lookup(ctx context.Context, username string) (entities.User, bool) {
	s.mu.RLock()
	_, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return entities.User{}, false
	}
	return entities.User{Username: username}, true
}
