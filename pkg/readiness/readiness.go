package readiness

import "fmt"

// Readiness is the derived sign-out safety signal.
type Readiness struct {
	IsLastDevice bool
	// LastDeviceResolved is false while the probe has not answered;
	// IsLastDevice then holds its default, false.
	LastDeviceResolved bool
	// ProbeFailed is set when IsLastDevice is a fallback, not a probe result.
	ProbeFailed bool
	UploadState BackupUploadState
	// Ready means sign-out may proceed without warning.
	Ready bool
}

// Compute is the readiness rule: not the last device and uploads done.
func Compute(isLastDevice bool, upload BackupUploadState) bool {
	return !isLastDevice && upload.IsSteady()
}

func (r Readiness) String() string {
	return fmt.Sprintf("ready=%t last_device=%t resolved=%t probe_failed=%t upload=%s",
		r.Ready, r.IsLastDevice, r.LastDeviceResolved, r.ProbeFailed, r.UploadState)
}
