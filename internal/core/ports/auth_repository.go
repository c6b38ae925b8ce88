package ports

import (
	"context"

	"github.com/pageguard/visitauth/internal/core/domain"
)

// CredentialRepository is the read path into the credential store, joined
// with the owning user record. Create exists only for the sign-up flow; the
// verifier never writes.
type CredentialRepository interface {
	FindByLogin(ctx context.Context, login string) (*domain.Credential, error)
	Create(ctx context.Context, cred *domain.Credential) error
}
