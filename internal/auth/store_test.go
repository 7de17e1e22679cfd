package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/joestump/streakcraft/internal/auth"
)

// mockEnder is a test double implementing auth.SessionEnder.
type mockEnder struct {
	calls int
	err   error
	panic bool
}

func (m *mockEnder) EndSession(ctx context.Context) error {
	m.calls++
	if m.panic {
		panic("network stack exploded")
	}
	return m.err
}

func ann() *auth.Identity {
	return auth.NewIdentity("abc", map[string]any{"name": "Ann", "picture": "https://x/ann.png"})
}

func TestNewStore_InitialState(t *testing.T) {
	s := auth.NewStore(nil, nil)
	st := s.Snapshot()
	if st.Identity != nil || st.Authenticated {
		t.Errorf("new store should have no identity: %+v", st)
	}
	if !st.Initializing {
		t.Error("new store should be initializing")
	}
	select {
	case <-s.Ready():
		t.Error("Ready closed before bootstrap")
	default:
	}
}

func TestSetIdentity_DerivesAuthenticated(t *testing.T) {
	s := auth.NewStore(nil, nil)

	s.SetIdentity(ann())
	if !s.Authenticated() {
		t.Error("Authenticated = false after SetIdentity(ann)")
	}
	if s.Identity().Name() != "Ann" {
		t.Errorf("Name = %q, want Ann", s.Identity().Name())
	}

	s.SetIdentity(nil)
	if s.Authenticated() {
		t.Error("Authenticated = true after SetIdentity(nil)")
	}
}

func TestLogout_RemoteSuccess(t *testing.T) {
	ender := &mockEnder{}
	s := auth.NewStore(ender, nil)
	s.SetIdentity(ann())

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if ender.calls != 1 {
		t.Errorf("EndSession calls = %d, want 1", ender.calls)
	}
	if st := s.Snapshot(); st.Identity != nil || st.Authenticated {
		t.Errorf("state after logout = %+v, want signed out", st)
	}
}

func TestLogout_RemoteFailureStillClears(t *testing.T) {
	var buf bytes.Buffer
	ender := &mockEnder{err: errors.New("connection refused")}
	s := auth.NewStore(ender, log.New(&buf, "", 0))
	s.SetIdentity(ann())

	err := s.Logout(context.Background())
	if err == nil {
		t.Fatal("expected remote error to be returned")
	}
	if s.Authenticated() || s.Identity() != nil {
		t.Error("identity not cleared after failed remote logout")
	}
	if !strings.Contains(buf.String(), "connection refused") {
		t.Errorf("log = %q, want it to mention the failure", buf.String())
	}
}

func TestLogout_RemotePanicStillClears(t *testing.T) {
	s := auth.NewStore(&mockEnder{panic: true}, nil)
	s.SetIdentity(ann())

	func() {
		defer func() { _ = recover() }()
		_ = s.Logout(context.Background())
	}()

	if s.Authenticated() {
		t.Error("identity not cleared after panicking remote logout")
	}
}

func TestLogout_Idempotent(t *testing.T) {
	s := auth.NewStore(&mockEnder{}, nil)
	s.SetIdentity(ann())

	_ = s.Logout(context.Background())
	once := s.Snapshot()
	_ = s.Logout(context.Background())
	twice := s.Snapshot()

	if once != twice {
		t.Errorf("second logout changed state: %+v -> %+v", once, twice)
	}
}

func TestSubscribe_ReceivesCurrentThenChanges(t *testing.T) {
	s := auth.NewStore(nil, nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	first := recv(t, ch)
	if !first.Initializing || first.Authenticated {
		t.Errorf("first state = %+v, want initializing and signed out", first)
	}

	s.SetIdentity(ann())
	if st := recv(t, ch); !st.Authenticated {
		t.Errorf("state after SetIdentity = %+v, want authenticated", st)
	}
}

func TestSubscribe_SlowReaderSeesLatest(t *testing.T) {
	s := auth.NewStore(nil, nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	s.SetIdentity(ann())
	s.SetIdentity(nil)
	s.SetIdentity(ann())

	if st := recv(t, ch); !st.Authenticated {
		t.Errorf("latest state = %+v, want authenticated", st)
	}
	select {
	case st := <-ch:
		t.Errorf("unexpected extra state %+v", st)
	default:
	}
}

func TestSubscribe_FanOut(t *testing.T) {
	s := auth.NewStore(nil, nil)
	a, cancelA := s.Subscribe()
	defer cancelA()
	b, cancelB := s.Subscribe()
	defer cancelB()
	recv(t, a)
	recv(t, b)

	s.SetIdentity(ann())
	if !recv(t, a).Authenticated || !recv(t, b).Authenticated {
		t.Error("every subscriber should observe the change")
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	s := auth.NewStore(nil, nil)
	ch, cancel := s.Subscribe()
	recv(t, ch)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}
	s.SetIdentity(ann()) // must not panic on a cancelled subscriber
}

func TestClose_ClosesSubscribers(t *testing.T) {
	s := auth.NewStore(nil, nil)
	ch, cancel := s.Subscribe()
	recv(t, ch)

	s.Close()
	if _, ok := <-ch; ok {
		t.Error("channel still open after Close")
	}
	cancel()
	s.SetIdentity(ann())
	if !s.Authenticated() {
		t.Error("store should still answer reads after Close")
	}
}

func recv(t *testing.T, ch <-chan auth.State) auth.State {
	t.Helper()
	select {
	case st, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return st
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
	}
	return auth.State{}
}
