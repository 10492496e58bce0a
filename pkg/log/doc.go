// Package log is the structured logging seam shared by every sessionguard
// component.
//
// Coordinators, gates and adapters accept a [Logger] through an option and
// fall back to [NoopLogger] when none is given, so embedding applications
// stay silent unless they opt in. [ZerologAdapter] is the implementation the
// CLI uses.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	coord := action.NewCoordinator("logout", op, action.WithLogger[string](logger))
//
// Loggers derived with [Logger.With] carry their fields on every entry, which
// is how components tag their output with an action or flag name.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
