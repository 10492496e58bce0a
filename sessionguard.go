// Package sessionguard wires the sign-out presenter to the file-backed
// session store and a Matrix homeserver.
//
// Example usage:
//
//	p, err := sessionguard.New(sessionguard.Config{
//	    StateDir: "/home/alice/.sessionguard",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close(signout.DefaultCloseTimeout)
package sessionguard

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/bft-labs/sessionguard/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/sessionguard/internal/adapters/http"
	"github.com/bft-labs/sessionguard/internal/domain"
	"github.com/bft-labs/sessionguard/internal/ports"
	"github.com/bft-labs/sessionguard/pkg/log"
	"github.com/bft-labs/sessionguard/pkg/signout"
)

// DefaultHTTPTimeout is used when Config.HTTPClient is nil.
const DefaultHTTPTimeout = 15 * time.Second

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Session is the stored session record.
type Session = domain.Session

// Config locates the on-disk state.
type Config struct {
	// StateDir holds session.json. Required.
	StateDir string
	// FlagsFile is the TOML feature flag file. Default: StateDir/features.toml.
	FlagsFile string

	HTTPClient HTTPClient
	Logger     log.Logger
}

// New builds a presenter over the files in cfg.StateDir. Options are
// applied after the defaults derived from cfg.
func New(cfg Config, opts ...signout.Option) (*signout.Presenter, error) {
	if cfg.StateDir == "" {
		return nil, fmt.Errorf("%w: state dir is required", domain.ErrInvalidConfig)
	}
	if cfg.FlagsFile == "" {
		cfg.FlagsFile = filepath.Join(cfg.StateDir, fs.FlagFileName)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	logger := log.OrNoop(cfg.Logger)

	repo := fs.NewSessionFileRepository(cfg.StateDir)
	deps := signout.Dependencies{
		Logout:  httpAdapter.NewLogoutClient(cfg.HTTPClient, repo, logger),
		Probe:   fs.NewSessionProbe(repo),
		Uploads: fs.NewBackupWatcher(repo, logger),
		Flags:   fs.NewFlagFile(cfg.FlagsFile, logger),
	}
	return signout.New(deps, append([]signout.Option{signout.WithLogger(logger)}, opts...)...)
}
