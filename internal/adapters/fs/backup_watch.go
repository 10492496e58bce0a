package fs

import (
	"context"

	"github.com/bft-labs/sessionguard/internal/ports"
	"github.com/bft-labs/sessionguard/pkg/log"
	"github.com/bft-labs/sessionguard/pkg/readiness"
)

// BackupWatcher implements ports.BackupUploadStateSource by following the
// backup_upload_state field of the session file.
type BackupWatcher struct {
	repo   *SessionFileRepository
	logger ports.Logger
}

// NewBackupWatcher creates a watcher over repo's session file.
func NewBackupWatcher(repo *SessionFileRepository, logger ports.Logger) *BackupWatcher {
	return &BackupWatcher{
		repo:   repo,
		logger: log.OrNoop(logger).With(log.String("component", "backup_watcher")),
	}
}

// WaitForSteadyState emits the current upload state, then every change,
// until the state is done or ctx ends. Each call watches independently.
func (b *BackupWatcher) WaitForSteadyState(ctx context.Context) <-chan readiness.BackupUploadState {
	out := make(chan readiness.BackupUploadState)
	go b.run(ctx, out)
	return out
}

func (b *BackupWatcher) run(ctx context.Context, out chan<- readiness.BackupUploadState) {
	defer close(out)

	// Watch before the first read so no update falls in between.
	watcher, err := newFileWatcher(b.repo.Path(), b.logger)
	if err != nil {
		b.logger.Warn("cannot watch session file, reporting current state only", log.Err(err))
	} else {
		defer watcher.Close()
	}

	var (
		last    readiness.BackupUploadState
		emitted bool
	)
	for {
		state, ok := b.read(ctx)
		if ok && (!emitted || state != last) {
			select {
			case out <- state:
			case <-ctx.Done():
				return
			}
			last, emitted = state, true
			if state.IsSteady() {
				return
			}
		}

		if watcher == nil || !watcher.changed(ctx) {
			return
		}
	}
}

func (b *BackupWatcher) read(ctx context.Context) (readiness.BackupUploadState, bool) {
	session, err := b.repo.Load(ctx)
	if err != nil {
		b.logger.Debug("session not readable", log.Err(err))
		return readiness.BackupUploadUnknown, false
	}
	return session.BackupUploadState, true
}
