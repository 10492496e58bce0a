package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/sessionguard/internal/domain"
)

// SessionFileName is the file holding the session inside the state directory.
const SessionFileName = "session.json"

// SessionFileRepository implements ports.SessionRepository using a JSON file.
type SessionFileRepository struct {
	dir string
}

// NewSessionFileRepository creates a repository for the given state directory.
func NewSessionFileRepository(dir string) *SessionFileRepository {
	return &SessionFileRepository{dir: dir}
}

// Load reads the session from disk.
// Returns domain.ErrNoSession if no session file exists.
func (r *SessionFileRepository) Load(ctx context.Context) (domain.Session, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, domain.ErrNoSession
		}
		return domain.Session{}, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode %s: %w", SessionFileName, err)
	}
	return session, nil
}

// Save persists the session atomically (temp file, then rename).
func (r *SessionFileRepository) Save(ctx context.Context, session domain.Session) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Clear removes the session file.
func (r *SessionFileRepository) Clear(ctx context.Context) error {
	if err := os.Remove(r.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path returns the full path to the session file.
func (r *SessionFileRepository) Path() string {
	return filepath.Join(r.dir, SessionFileName)
}

// Dir returns the state directory.
func (r *SessionFileRepository) Dir() string {
	return r.dir
}
