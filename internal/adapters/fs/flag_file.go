package fs

import (
	"context"
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/sessionguard/internal/ports"
	"github.com/bft-labs/sessionguard/pkg/log"
)

// FlagFileName is the default feature flag file inside the state directory.
const FlagFileName = "features.toml"

// flagFile is the on-disk layout:
//
//	[features]
//	secure_storage = true
type flagFile struct {
	Features map[string]bool `toml:"features"`
}

// FlagFile implements ports.FeatureFlagSource over a TOML file.
type FlagFile struct {
	path   string
	logger ports.Logger
}

// NewFlagFile creates a flag source reading path.
func NewFlagFile(path string, logger ports.Logger) *FlagFile {
	return &FlagFile{
		path:   path,
		logger: log.OrNoop(logger).With(log.String("component", "flag_file"), log.String("path", path)),
	}
}

// Lookup returns the current value of flagID; ok is false when the file or
// the key is missing.
func (f *FlagFile) Lookup(flagID string) (enabled, ok bool, err error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, false, nil
		}
		return false, false, err
	}
	var ff flagFile
	if err := toml.Unmarshal(b, &ff); err != nil {
		return false, false, fmt.Errorf("parse %s: %w", f.path, err)
	}
	enabled, ok = ff.Features[flagID]
	return enabled, ok, nil
}

// IsEnabled emits the flag's value whenever it is set or changes. While
// the key is absent nothing is emitted. The channel closes when ctx ends.
func (f *FlagFile) IsEnabled(ctx context.Context, flagID string) <-chan bool {
	out := make(chan bool)
	go f.run(ctx, flagID, out)
	return out
}

func (f *FlagFile) run(ctx context.Context, flagID string, out chan<- bool) {
	defer close(out)

	watcher, err := newFileWatcher(f.path, f.logger)
	if err != nil {
		f.logger.Warn("cannot watch flag file, reporting current value only", log.Err(err))
	} else {
		defer watcher.Close()
	}

	var (
		last    bool
		emitted bool
	)
	for {
		enabled, ok, err := f.Lookup(flagID)
		switch {
		case err != nil:
			// Keep the last good value until the file parses again.
			f.logger.Warn("flag file unreadable", log.Err(err))
		case ok && (!emitted || enabled != last):
			select {
			case out <- enabled:
			case <-ctx.Done():
				return
			}
			last, emitted = enabled, true
			f.logger.Debug("flag value", log.String("flag", flagID), log.Bool("enabled", enabled))
		}

		if watcher == nil {
			<-ctx.Done()
			return
		}
		if !watcher.changed(ctx) {
			return
		}
	}
}
