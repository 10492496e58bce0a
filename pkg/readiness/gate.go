package readiness

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/sessionguard/internal/watch"
	"github.com/bft-labs/sessionguard/pkg/log"
)

// DefaultFlagID is the feature flag that guards backup-upload tracking.
const DefaultFlagID = "secure_storage"

// GateConfig holds the gate's collaborators.
type GateConfig struct {
	// FlagID selects the flag read from Flags. Default: DefaultFlagID.
	FlagID string

	Flags   FeatureFlagSource
	Probe   LastDeviceProbe
	Uploads BackupUploadStateSource
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(g *Gate) {
		g.logger = log.OrNoop(logger)
	}
}

// Gate derives Readiness from its inputs for as long as it runs.
// It only reads from its collaborators.
type Gate struct {
	cfg    GateConfig
	logger log.Logger

	mu           sync.Mutex
	started      bool
	feature      FeatureState
	generation   uint64
	isLastDevice bool
	probed       bool
	probeFailed  bool
	upload       BackupUploadState
	uploadKnown  bool
	last         Readiness
	emitted      bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
	out    *watch.Value[Readiness]
}

// NewGate validates cfg and returns a gate that has not started yet.
func NewGate(cfg GateConfig, opts ...Option) (*Gate, error) {
	if cfg.Flags == nil || cfg.Probe == nil || cfg.Uploads == nil {
		return nil, fmt.Errorf("%w: flags, probe and uploads are required", ErrMissingDependency)
	}
	if cfg.FlagID == "" {
		cfg.FlagID = DefaultFlagID
	}

	g := &Gate{
		cfg:    cfg,
		logger: log.NewNoopLogger(),
		out:    watch.New[Readiness](),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(log.String("flag", cfg.FlagID))
	return g, nil
}

// Start fetches the last-device probe once and begins following the
// feature flag. It returns immediately; inputs are consumed until ctx ends
// or Close is called.
func (g *Gate) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	g.started = true
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.mu.Unlock()

	g.wg.Add(2)
	go g.probe(runCtx)
	go g.followFlag(runCtx)
	return nil
}

// Close stops following the inputs and ends subscriptions.
func (g *Gate) Close() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	g.wg.Wait()
	g.out.Close()
}

// Readiness returns the latest derived value; ok is false until the first
// upload state has been observed.
func (g *Gate) Readiness() (Readiness, bool) {
	return g.out.Load()
}

// Ready reports whether sign-out may proceed without warning right now.
// It stays false until both the upload state and the probe have resolved.
func (g *Gate) Ready() bool {
	r, ok := g.out.Load()
	return ok && r.Ready && r.LastDeviceResolved
}

// FeatureState returns the flag value the gate currently acts on.
func (g *Gate) FeatureState() FeatureState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.feature
}

// Subscribe streams the current readiness (if resolved) and every change.
func (g *Gate) Subscribe(ctx context.Context) <-chan Readiness {
	return g.out.Subscribe(ctx)
}

func (g *Gate) probe(ctx context.Context) {
	defer g.wg.Done()

	isLast, err := g.cfg.Probe.IsLastDevice(ctx)
	failed := false
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Fallback: a wrong "not last" only re-prompts the user, it
		// never loses data on its own.
		perr := &ProbeError{Input: "last_device", Err: err}
		g.logger.Warn("last device probe failed, assuming not the last device", log.Err(perr))
		isLast, failed = false, true
	}

	g.mu.Lock()
	g.isLastDevice = isLast
	g.probed = true
	g.probeFailed = failed
	g.logger.Info("last device resolved", log.Bool("last_device", isLast), log.Bool("probe_failed", failed))
	g.recomputeLocked()
	g.mu.Unlock()
}

func (g *Gate) followFlag(ctx context.Context) {
	defer g.wg.Done()

	var stopUploads context.CancelFunc
	defer func() {
		if stopUploads != nil {
			stopUploads()
		}
	}()

	flags := g.cfg.Flags.IsEnabled(ctx, g.cfg.FlagID)
	for {
		select {
		case <-ctx.Done():
			return
		case enabled, ok := <-flags:
			if !ok {
				// The flag stream ended; keep the current selection.
				flags = nil
				continue
			}
			state := FeatureFromBool(enabled)
			if state == g.FeatureState() {
				continue
			}
			if stopUploads != nil {
				stopUploads()
				stopUploads = nil
			}

			gen := g.selectSource(state)
			if state == FeatureEnabled {
				uploadCtx, cancel := context.WithCancel(ctx)
				stopUploads = cancel
				g.wg.Add(1)
				go g.followUploads(uploadCtx, gen)
			}
		}
	}
}

// selectSource switches the upload input for a new flag value and returns
// the generation that upload values must carry to be applied.
func (g *Gate) selectSource(state FeatureState) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.feature = state
	g.generation++
	g.logger.Info("feature flag changed", log.Stringer("feature", state))

	switch state {
	case FeatureDisabled:
		// Nothing to wait for when uploads are not tracked.
		g.upload = BackupUploadDone
		g.uploadKnown = true
	default:
		// Results from the previous source no longer count.
		g.upload = BackupUploadUnknown
	}
	g.recomputeLocked()
	return g.generation
}

func (g *Gate) followUploads(ctx context.Context, gen uint64) {
	defer g.wg.Done()

	states := g.cfg.Uploads.WaitForSteadyState(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			g.applyUpload(gen, s)
		}
	}
}

func (g *Gate) applyUpload(gen uint64, s BackupUploadState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.generation {
		return
	}
	g.upload = s
	g.uploadKnown = true
	g.logger.Debug("backup upload state", log.Stringer("upload", s))
	g.recomputeLocked()
}

// recomputeLocked publishes a new Readiness when it differs from the last.
func (g *Gate) recomputeLocked() {
	if !g.uploadKnown {
		return
	}
	r := Readiness{
		IsLastDevice:       g.isLastDevice,
		LastDeviceResolved: g.probed,
		ProbeFailed:        g.probeFailed,
		UploadState:        g.upload,
		Ready:              Compute(g.isLastDevice, g.upload),
	}
	if g.emitted && r == g.last {
		return
	}
	g.last = r
	g.emitted = true
	if r.Ready {
		g.logger.Info("ready to sign out without warning")
	} else {
		g.logger.Debug("not ready", log.Stringer("readiness", r))
	}
	g.out.Store(r)
}
