package interfaces

import (
	"context"
	"errors"

	"feedback_automation/domain/entities"
)

// ErrInvalidCredentials is returned when a front-end login does not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Authenticator checks front-end login attempts
type Authenticator interface {
	// Authenticate returns the user for a matching username/password pair
	Authenticate(ctx context.Context, username, password string) (entities.User, error)

	// Lookup returns the user registered under username
	Lookup(ctx context.Context, username string) (entities.User, bool)
}
