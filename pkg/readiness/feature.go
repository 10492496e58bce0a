package readiness

import "context"

// FeatureState is a flag value that may not be known yet.
type FeatureState int

const (
	FeatureUnknown FeatureState = iota
	FeatureEnabled
	FeatureDisabled
)

func (f FeatureState) String() string {
	switch f {
	case FeatureEnabled:
		return "enabled"
	case FeatureDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// FeatureFromBool maps a resolved flag value.
func FeatureFromBool(enabled bool) FeatureState {
	if enabled {
		return FeatureEnabled
	}
	return FeatureDisabled
}

// StaticFlags is a FeatureFlagSource with fixed values. Flags missing from
// the map never emit and therefore stay unknown.
type StaticFlags map[string]bool

// IsEnabled emits the configured value once, if any.
func (f StaticFlags) IsEnabled(ctx context.Context, flagID string) <-chan bool {
	enabled, ok := f[flagID]
	if !ok {
		// Never resolves; the gate keeps waiting until ctx ends.
		return make(chan bool)
	}
	ch := make(chan bool, 1)
	ch <- enabled
	close(ch)
	return ch
}
