package auth

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/joestump/streakcraft/internal/metrics"
)

// State is a point-in-time view of the Identity Store.
type State struct {
	Identity      *Identity // nil when no one is signed in
	Initializing  bool      // true until the session check resolves
	Authenticated bool      // always Identity != nil
}

// SessionEnder ends the session on the auth backend.
type SessionEnder interface {
	EndSession(ctx context.Context) error
}

// Store holds the identity for one application load. Construct it with
// NewStore, settle it once via Bootstrap, and Close it when the load ends.
type Store struct {
	ender  SessionEnder
	logger *log.Logger

	mu           sync.Mutex
	identity     *Identity
	initializing bool
	closed       bool
	subs         map[int]chan State
	nextSub      int

	bootOnce   sync.Once
	settleOnce sync.Once
	ready      chan struct{}
}

// NewStore returns a Store in its initial state: no identity, initializing.
// A nil logger discards log output.
func NewStore(ender SessionEnder, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		ender:        ender,
		logger:       logger,
		initializing: true,
		subs:         make(map[int]chan State),
		ready:        make(chan struct{}),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	return State{
		Identity:      s.identity,
		Initializing:  s.initializing,
		Authenticated: s.identity != nil,
	}
}

// Identity returns the current identity, or nil.
func (s *Store) Identity() *Identity { return s.Snapshot().Identity }

// Authenticated reports whether an identity is present.
func (s *Store) Authenticated() bool { return s.Snapshot().Authenticated }

// Initializing reports whether the session check is still pending.
func (s *Store) Initializing() bool { return s.Snapshot().Initializing }

// Ready is closed once the session check has resolved.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// SetIdentity replaces the stored identity. Pass nil to clear it.
func (s *Store) SetIdentity(id *Identity) {
	s.mu.Lock()
	s.identity = id
	s.publishLocked()
	s.mu.Unlock()
}

// settle commits the bootstrap result (nil on failure) and ends the
// initializing window. Only the first call has any effect, so initializing can
// never become true again.
func (s *Store) settle(id *Identity) {
	s.settleOnce.Do(func() {
		s.mu.Lock()
		s.identity = id
		s.initializing = false
		s.publishLocked()
		s.mu.Unlock()
		close(s.ready)
	})
}

// Logout asks the backend to end the session, then clears the local identity.
// The local identity is cleared on every exit path, including a failed or
// panicking remote call. The remote error is logged and returned for callers
// that want it; the local outcome does not depend on it.
func (s *Store) Logout(ctx context.Context) (err error) {
	defer func() {
		s.SetIdentity(nil)
		if err != nil {
			metrics.LogoutsTotal.WithLabelValues("remote_error").Inc()
		} else {
			metrics.LogoutsTotal.WithLabelValues("ok").Inc()
		}
	}()

	if s.ender == nil {
		return nil
	}
	if err = s.ender.EndSession(ctx); err != nil {
		s.logger.Printf("logout error: %v", err)
	}
	return err
}

// Subscribe returns a channel that receives the current state immediately and
// then every subsequent change. A slow reader only ever sees the latest state.
// Call cancel to stop receiving; the channel is then closed.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		ch <- s.stateLocked()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.stateLocked()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

func (s *Store) publishLocked() {
	st := s.stateLocked()
	for _, ch := range s.subs {
		// Drop a stale unread value so the newest state always lands.
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

// Close tears the store down and closes every subscriber channel.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
