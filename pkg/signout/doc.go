// Package signout is the direct sign-out flow: it combines a logout
// [action.Coordinator] with a [readiness.Gate] and exposes one view state.
//
// # Usage
//
//	p, err := signout.New(signout.Dependencies{
//	    Logout:  client,
//	    Probe:   probe,
//	    Uploads: uploads,
//	    Flags:   flags,
//	}, signout.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Close(signout.DefaultCloseTimeout)
//
//	// First request asks for confirmation unless the gate is ready.
//	_ = p.Handle(ctx, signout.Logout{})
//	if p.State().LogoutAction.IsConfirming() {
//	    _ = p.Handle(ctx, signout.Logout{})
//	}
//
// # Events
//
//   - [Logout]: requests sign-out. IgnoreServerError skips confirmation and
//     clears the local session even if the server call fails.
//   - [CloseDialogs]: dismisses the confirmation or the result.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package signout
