package entities

import "errors"

// ErrMissingCredentials is returned when a username or password is empty.
var ErrMissingCredentials = errors.New("username and password are required")

// Credentials are the portal login details supplied for a single run.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate reports ErrMissingCredentials when either field is empty.
// Whitespace is passed through to the portal as typed.
func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// User is an authenticated principal of the web front end.
type User struct {
	Username string `json:"username"`
}
