package ports

import (
	"context"
	"time"

	"github.com/pageguard/visitauth/internal/core/domain"
)

// VisitRepository persists visit records and serializes the single allowed
// state transition.
type VisitRepository interface {
	Create(ctx context.Context, v *domain.Visit) error
	FindByID(ctx context.Context, id string) (*domain.Visit, error)

	// Confirm applies the Created→Confirmed transition if and only if the
	// stored confirmation code equals code and the visit is still
	// unconfirmed. The guard is atomic at the storage layer, so of two
	// concurrent calls at most one observes the transition; the other gets
	// domain.ErrAlreadyConfirmed. A wrong id or code yields
	// domain.ErrVisitNotFound.
	Confirm(ctx context.Context, id, code string, at time.Time) (*domain.Visit, error)

	// StatsByPath aggregates all visits grouped by request path, ordered by
	// total count descending.
	StatsByPath(ctx context.Context) ([]domain.PathStats, error)
}
