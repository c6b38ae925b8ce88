package ports

import (
	"context"
	"time"

	"github.com/pageguard/visitauth/internal/core/domain"
)

// SignInResult is returned on successful credential verification.
type SignInResult struct {
	Principal domain.Principal
	UserName  string
}

// SignUpInput carries a validated registration form.
type SignUpInput struct {
	Name      string
	Email     string
	Login     string
	Password  string
	Birthdate *time.Time
}

type AuthService interface {
	// Verify parses and checks an Authorization header value. Every failure
	// is a typed domain error; unknown login and wrong password are
	// indistinguishable to the caller.
	Verify(ctx context.Context, authorizationHeader string) (*SignInResult, error)

	SignUp(ctx context.Context, in SignUpInput) (*domain.Credential, error)
}
