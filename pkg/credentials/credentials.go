// Package credentials loads the portal login from a key=value file.
package credentials

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
)

const (
	keyUsername = "username"
	keyPassword = "password"
)

// ErrMissingCredentials is returned when the username or password is empty.
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials is the portal username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Load reads username= and password= lines from path.
// Missing keys are left empty; call Validate to enforce them.
// Unquoted values are trimmed, cut at " #" and have $VAR expanded, so a
// password with spaces, '#' or '$' must be single-quoted.
func Load(path string) (Credentials, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to load credentials from %s: %w", path, err)
	}
	return Credentials{
		Username: values[keyUsername],
		Password: values[keyPassword],
	}, nil
}

// Validate reports ErrMissingCredentials when either field is empty.
func (c Credentials) Validate() error {
	switch {
	case c.Username == "":
		return fmt.Errorf("%w: username", ErrMissingCredentials)
	case c.Password == "":
		return fmt.Errorf("%w: password", ErrMissingCredentials)
	}
	return nil
}

// String hides the password.
func (c Credentials) String() string {
	return fmt.Sprintf("username=%s password=***", c.Username)
}
