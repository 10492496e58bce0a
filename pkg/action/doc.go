// Package action coordinates the lifecycle of a single user-triggered,
// fallible background operation such as "log out" or "enable key backup".
//
// A [Coordinator] owns exactly one [State] at a time:
//
//	Uninitialized -> Confirming -> Loading -> Success | Failure
//	Confirming | Success | Failure -> Uninitialized   (Dismiss)
//	Success | Failure -> Loading                        (RequestStart, new attempt)
//
// Every start that actually invokes the operation passes through Loading
// and is tagged with a fresh attempt id. At most one attempt runs per
// coordinator; a start while Loading is rejected with [ErrInFlight].
// Operation errors never escape the coordinator: they are captured as a
// Failure holding an [*OperationError].
//
// # Usage
//
//	coord := action.NewCoordinator("logout", func(ctx context.Context) (string, error) {
//	    return client.Logout(ctx, false)
//	}, action.WithLogger(logger))
//	defer coord.Close()
//
//	_ = coord.RequestStart(ctx, true, false) // -> Confirming
//	_ = coord.Confirm(ctx)                   // -> Loading, operation runs
//	_ = coord.Wait(ctx)
//	fmt.Println(coord.State())               // Success(...) or Failure(...)
//
// The operation runs on a goroutine detached from the caller's cancellation:
// dismissing the result or closing the coordinator hides it but never aborts
// the call.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package action
