package ports

import "context"

// LogoutOperation signs the current session out.
type LogoutOperation interface {
	// Logout ends the session and returns the signed-out device id, or an
	// empty string when no session was present.
	//
	// With ignoreServerError set, a failed server call is tolerated and the
	// local session is cleared anyway.
	Logout(ctx context.Context, ignoreServerError bool) (string, error)
}

// LogoutFunc adapts a function to LogoutOperation.
type LogoutFunc func(ctx context.Context, ignoreServerError bool) (string, error)

func (f LogoutFunc) Logout(ctx context.Context, ignoreServerError bool) (string, error) {
	return f(ctx, ignoreServerError)
}
