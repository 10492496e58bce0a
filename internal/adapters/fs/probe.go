package fs

import (
	"context"

	"github.com/bft-labs/sessionguard/internal/ports"
)

// SessionProbe implements ports.LastDeviceProbe from the stored session.
type SessionProbe struct {
	repo ports.SessionRepository
}

// NewSessionProbe creates a probe reading from repo.
func NewSessionProbe(repo ports.SessionRepository) *SessionProbe {
	return &SessionProbe{repo: repo}
}

// IsLastDevice returns the session's is_last_device marker. A missing or
// unreadable session is an error; the caller decides the fallback.
func (p *SessionProbe) IsLastDevice(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	session, err := p.repo.Load(ctx)
	if err != nil {
		return false, err
	}
	return session.IsLastDevice, nil
}
