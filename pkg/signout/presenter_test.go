package signout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/sessionguard/internal/ports"
	"github.com/bft-labs/sessionguard/pkg/action"
	"github.com/bft-labs/sessionguard/pkg/readiness"
)

const waitFor = 2 * time.Second

// fakeLogout records calls and blocks until released when gated.
type fakeLogout struct {
	mu      sync.Mutex
	calls   []bool
	release chan struct{}
	err     error
}

func (f *fakeLogout) Logout(ctx context.Context, ignoreServerError bool) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ignoreServerError)
	release, err := f.release, f.err
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	if err != nil {
		return "", err
	}
	return "DEVICE1", nil
}

func (f *fakeLogout) Calls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.calls...)
}

// noUploads never emits.
type noUploads struct{}

func (noUploads) WaitForSteadyState(ctx context.Context) <-chan readiness.BackupUploadState {
	return make(chan readiness.BackupUploadState)
}

type recordingHandler struct {
	BaseEventHandler
	mu       sync.Mutex
	sessions []SessionEvent
	logouts  []LogoutEvent
}

func (h *recordingHandler) OnSessionStateChange(e SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = append(h.sessions, e)
}

func (h *recordingHandler) OnLogoutStateChange(e LogoutEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logouts = append(h.logouts, e)
}

func deps(logout ports.LogoutOperation, isLast bool, flags readiness.StaticFlags) Dependencies {
	return Dependencies{
		Logout:  logout,
		Probe:   readiness.ProbeFunc(func(context.Context) (bool, error) { return isLast, nil }),
		Uploads: noUploads{},
		Flags:   flags,
	}
}

// readyDeps resolves readiness to true: feature off, not the last device.
func readyDeps(logout ports.LogoutOperation) Dependencies {
	return deps(logout, false, readiness.StaticFlags{readiness.DefaultFlagID: false})
}

func startPresenter(t *testing.T, d Dependencies, opts ...Option) *Presenter {
	t.Helper()
	p, err := New(d, opts...)
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Close(waitFor) })
	return p
}

func waitResolved(t *testing.T, p *Presenter) ViewState {
	t.Helper()
	require.Eventually(t, func() bool {
		v := p.State()
		return v.ReadinessResolved && v.Readiness.LastDeviceResolved
	}, waitFor, time.Millisecond)
	return p.State()
}

func waitKind(t *testing.T, p *Presenter, kind action.Kind) ViewState {
	t.Helper()
	require.Eventually(t, func() bool {
		return p.State().LogoutAction.Kind() == kind
	}, waitFor, time.Millisecond)
	return p.State()
}

func TestNewRequiresLogout(t *testing.T) {
	_, err := New(Dependencies{})
	require.ErrorIs(t, err, readiness.ErrMissingDependency)
}

func TestLogoutNeedsConfirmationWhenNotReady(t *testing.T) {
	logout := &fakeLogout{}
	p := startPresenter(t, deps(logout, true, readiness.StaticFlags{readiness.DefaultFlagID: false}))
	v := waitResolved(t, p)
	require.False(t, v.CanDoDirectSignOut)
	require.False(t, v.Readiness.Ready)

	ctx := context.Background()
	require.NoError(t, p.Handle(ctx, Logout{}))
	require.True(t, p.State().LogoutAction.IsConfirming())
	require.Empty(t, logout.Calls())

	require.NoError(t, p.Handle(ctx, Logout{}))
	v = waitKind(t, p, action.KindSuccess)
	device, ok := v.LogoutAction.Value()
	require.True(t, ok)
	require.Equal(t, "DEVICE1", device)
	require.Equal(t, []bool{false}, logout.Calls())
}

func TestLogoutDirectWhenReady(t *testing.T) {
	logout := &fakeLogout{}
	p := startPresenter(t, readyDeps(logout))
	v := waitResolved(t, p)
	require.True(t, v.CanDoDirectSignOut)

	require.NoError(t, p.Handle(context.Background(), Logout{}))
	waitKind(t, p, action.KindSuccess)
	require.Equal(t, []bool{false}, logout.Calls())
}

func TestConfirmAlwaysPolicy(t *testing.T) {
	logout := &fakeLogout{}
	p := startPresenter(t, readyDeps(logout), WithConfirmPolicy(ConfirmAlways))
	waitResolved(t, p)

	require.NoError(t, p.Handle(context.Background(), Logout{}))
	require.True(t, p.State().LogoutAction.IsConfirming())
	require.Empty(t, logout.Calls())
}

func TestLogoutBeforeReadinessResolvesAsksConfirmation(t *testing.T) {
	logout := &fakeLogout{}
	p := startPresenter(t, deps(logout, false, readiness.StaticFlags{}))

	require.NoError(t, p.Handle(context.Background(), Logout{}))
	require.True(t, p.State().LogoutAction.IsConfirming())
	require.False(t, p.State().ReadinessResolved)
}

func TestIgnoreServerErrorSkipsConfirmation(t *testing.T) {
	logout := &fakeLogout{}
	p := startPresenter(t, deps(logout, true, readiness.StaticFlags{}))

	require.NoError(t, p.Handle(context.Background(), Logout{IgnoreServerError: true}))
	waitKind(t, p, action.KindSuccess)
	require.Equal(t, []bool{true}, logout.Calls())
}

func TestCloseDialogsResetsAction(t *testing.T) {
	logout := &fakeLogout{err: errors.New("server unavailable")}
	p := startPresenter(t, deps(logout, true, readiness.StaticFlags{}))
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, Logout{}))
	require.NoError(t, p.Handle(ctx, CloseDialogs{}))
	require.True(t, p.State().LogoutAction.IsUninitialized())

	require.NoError(t, p.Handle(ctx, Logout{IgnoreServerError: true}))
	v := waitKind(t, p, action.KindFailure)
	require.ErrorContains(t, v.LogoutAction.Err(), "server unavailable")

	require.NoError(t, p.Handle(ctx, CloseDialogs{}))
	require.True(t, p.State().LogoutAction.IsUninitialized())
}

func TestLogoutWhileRunningIsRejected(t *testing.T) {
	logout := &fakeLogout{release: make(chan struct{})}
	p := startPresenter(t, readyDeps(logout))
	waitResolved(t, p)
	ctx := context.Background()

	require.NoError(t, p.Handle(ctx, Logout{}))
	require.True(t, p.State().LogoutAction.IsLoading())

	require.ErrorIs(t, p.Handle(ctx, Logout{IgnoreServerError: true}), action.ErrInFlight)
	require.ErrorIs(t, p.Handle(ctx, CloseDialogs{}), action.ErrInFlight)

	close(logout.release)
	require.NoError(t, p.Wait(ctx))
	require.True(t, p.State().LogoutAction.IsSuccess())
	require.Len(t, logout.Calls(), 1)
}

func TestHandleOutsideActiveSession(t *testing.T) {
	p, err := New(readyDeps(&fakeLogout{}))
	require.NoError(t, err)
	require.ErrorIs(t, p.Handle(context.Background(), Logout{}), ErrNotActive)

	require.NoError(t, p.Start(context.Background()))
	require.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, p.Close(waitFor))
	require.Equal(t, SessionClosed, p.SessionState())
	require.ErrorIs(t, p.Handle(context.Background(), Logout{}), ErrNotActive)
	require.NoError(t, p.Close(waitFor), "second close is a no-op")
}

func TestCloseBeforeStart(t *testing.T) {
	p, err := New(readyDeps(&fakeLogout{}))
	require.NoError(t, err)
	require.NoError(t, p.Close(waitFor))
	require.Equal(t, SessionClosed, p.SessionState())
	require.ErrorIs(t, p.Start(context.Background()), ErrNotActive)
}

func TestCloseTimesOutOnRunningLogout(t *testing.T) {
	logout := &fakeLogout{release: make(chan struct{})}
	p, err := New(readyDeps(logout))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	waitResolved(t, p)

	require.NoError(t, p.Handle(context.Background(), Logout{}))
	require.ErrorIs(t, p.Close(20*time.Millisecond), ErrShutdownTimeout)
	require.Equal(t, SessionClosed, p.SessionState())

	// The detached logout still completes.
	close(logout.release)
	require.NoError(t, p.Wait(context.Background()))
	require.Len(t, logout.Calls(), 1)
}

func TestSubscribeStreamsViewStates(t *testing.T) {
	logout := &fakeLogout{}
	p := startPresenter(t, readyDeps(logout))
	waitResolved(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	views := p.Subscribe(ctx)

	first := <-views
	require.True(t, first.LogoutAction.IsUninitialized())

	require.NoError(t, p.Handle(ctx, Logout{}))

	var kinds []action.Kind
	for v := range views {
		kinds = append(kinds, v.LogoutAction.Kind())
		if v.LogoutAction.IsSuccess() {
			break
		}
	}
	require.Equal(t, []action.Kind{action.KindLoading, action.KindSuccess}, kinds)
}

func TestEventHandler(t *testing.T) {
	handler := &recordingHandler{}
	p, err := New(readyDeps(&fakeLogout{}), WithEventHandler(handler))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	waitResolved(t, p)

	require.NoError(t, p.Handle(context.Background(), Logout{}))
	require.NoError(t, p.Wait(context.Background()))
	require.NoError(t, p.Close(waitFor))

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.logouts, 2)
	require.True(t, handler.logouts[0].Current.IsLoading())
	require.True(t, handler.logouts[1].Current.IsSuccess())

	var got []SessionState
	for _, e := range handler.sessions {
		got = append(got, e.Current)
	}
	require.Equal(t, []SessionState{SessionActive, SessionClosing, SessionClosed}, got)
}

func TestActionObserverSeesLogoutTransitions(t *testing.T) {
	var (
		mu    sync.Mutex
		kinds []action.Kind
		views []action.Kind
	)
	var p *Presenter
	observer := action.ObserverFunc[string](func(_, current action.State[string]) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, current.Kind())
		views = append(views, p.State().LogoutAction.Kind())
	})

	p = startPresenter(t, readyDeps(&fakeLogout{}), WithActionObserver(observer))
	waitResolved(t, p)

	require.NoError(t, p.Handle(context.Background(), Logout{}))
	require.NoError(t, p.Wait(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []action.Kind{action.KindLoading, action.KindSuccess}, kinds)
	require.Equal(t, kinds, views, "view state is updated before observers run")
}
