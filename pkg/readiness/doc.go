// Package readiness derives whether it is safe to sign a device out without
// warning the user about losing encryption keys.
//
// A [Gate] combines two independently evolving inputs:
//
//   - a one-shot [LastDeviceProbe], fetched once when the gate starts, and
//   - a stream of [BackupUploadState] values, selected by a tri-state
//     feature flag: Enabled subscribes to the real [BackupUploadStateSource],
//     Disabled synthesises a single Done, Unknown produces nothing.
//
// The derived [Readiness] is Ready only when the device is not the last one
// holding the session secrets and the backup upload reached Done. Until the
// first upload value arrives nothing is emitted: an absent value is never
// treated as safe.
//
// A failing probe is downgraded to "not the last device" and reported through
// [Readiness.ProbeFailed] and a warning log; a false negative there only
// costs an extra prompt, whereas blocking the gate would strand the user.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package readiness
