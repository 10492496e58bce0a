package readiness

import "context"

// LastDeviceProbe reports whether this device is the only remaining holder
// of the session secrets.
type LastDeviceProbe interface {
	IsLastDevice(ctx context.Context) (bool, error)
}

// BackupUploadStateSource streams upload progress until a steady state.
// Each call starts an independent subscription; the channel closes when the
// source is exhausted or ctx ends.
type BackupUploadStateSource interface {
	WaitForSteadyState(ctx context.Context) <-chan BackupUploadState
}

// FeatureFlagSource streams the value of a feature flag. A flag whose
// channel has not emitted yet is unknown.
type FeatureFlagSource interface {
	IsEnabled(ctx context.Context, flagID string) <-chan bool
}

// ProbeFunc adapts a function to LastDeviceProbe.
type ProbeFunc func(ctx context.Context) (bool, error)

func (f ProbeFunc) IsLastDevice(ctx context.Context) (bool, error) { return f(ctx) }
