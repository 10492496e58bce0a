// Package ports defines the interfaces (ports) that connect the sign-out
// flow to infrastructure adapters.
//
// # Port Interfaces
//
//   - [LogoutOperation]: Ends the session on the homeserver and locally
//   - [LastDeviceProbe]: Reports whether this device holds the last copy of the keys
//   - [BackupUploadStateSource]: Streams key backup upload progress
//   - [FeatureFlagSource]: Streams feature flag values
//   - [SessionRepository]: Persists and loads the local session
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The presenter (pkg/signout) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with the file
// system, HTTP and zerolog.
package ports
