package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin = "Admin"
	RoleGuest = "Guest"
)

// Credential verification rejections. The first six map one-to-one onto the
// parsing steps of the Basic Authorization header; unknown login and wrong
// password both collapse into ErrCredentialsRejected so a caller cannot tell
// which of the two occurred.
var (
	ErrMissingAuthHeader    = errors.New("missing authorization header")
	ErrInvalidAuthScheme    = errors.New("invalid scheme, required: Basic")
	ErrEmptyCredentials     = errors.New("empty credentials")
	ErrInvalidEncoding      = errors.New("invalid base64 encoding")
	ErrMalformedCredentials = errors.New("malformed credentials")
	ErrEmptyLoginOrPassword = errors.New("empty login or password")
	ErrCredentialsRejected  = errors.New("credentials rejected")
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrLoginTaken         = errors.New("login already taken")
	ErrSessionKeyMissing  = errors.New("session key not found")
)

// User holds the profile data joined onto a credential. The credential store
// owns these records; this core only reads them.
type User struct {
	ID           string
	Name         string
	Email        string
	Birthdate    *time.Time
	RegisteredAt time.Time
	DeletedAt    *time.Time
}

// Credential is a login record. Immutable after enrolment: the derived key is
// the KDF output over password and salt, never the password itself.
type Credential struct {
	ID         string
	UserID     string
	Login      string
	Salt       string
	DerivedKey string
	Role       string
	User       User
}

// Principal is the minimal identity projection carried in the session after a
// successful sign-in. It deliberately excludes the salt and derived key so
// that no key material is ever re-serialized into session storage.
type Principal struct {
	UserID    string     `json:"user_id"`
	Login     string     `json:"login"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
}

// Principal projects the credential into its session representation.
func (c *Credential) Principal() Principal {
	return Principal{
		UserID:    c.User.ID,
		Login:     c.Login,
		Name:      c.User.Name,
		Email:     c.User.Email,
		Role:      c.Role,
		Birthdate: c.User.Birthdate,
	}
}
