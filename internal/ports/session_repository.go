package ports

import (
	"context"

	"github.com/bft-labs/sessionguard/internal/domain"
)

// SessionRepository handles persistence of the local session.
// Implementations persist the session to disk (or other storage) atomically.
type SessionRepository interface {
	// Load retrieves the stored session.
	// Returns domain.ErrNoSession if none is stored.
	Load(ctx context.Context) (domain.Session, error)

	// Save persists the session atomically.
	Save(ctx context.Context, session domain.Session) error

	// Clear removes the stored session. Clearing an absent session is not an error.
	Clear(ctx context.Context) error
}
