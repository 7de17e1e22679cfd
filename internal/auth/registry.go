package auth

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"github.com/joestump/streakcraft/internal/metrics"
)

const sessionLoadKey = "load_key"

// Backend is the auth backend as seen on behalf of one browser.
type Backend interface {
	SessionFetcher
	SessionEnder
}

// Registry tracks the Identity Store of each browser's current application
// load. A browser is recognised by a key kept in its shell session. A page
// navigation (GET or HEAD) starts a new load with its own session check;
// other requests reuse the browser's latest load.
type Registry struct {
	sessions *scs.SessionManager
	connect  func(*http.Request) Backend
	logger   *log.Logger

	mu    sync.Mutex
	loads map[string]*load
}

type load struct {
	store *Store
	seen  time.Time
}

// NewRegistry returns an empty Registry. connect opens the backend on behalf
// of the browser that sent a request. A nil logger discards log output.
func NewRegistry(sm *scs.SessionManager, connect func(*http.Request) Backend, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry{
		sessions: sm,
		connect:  connect,
		logger:   logger,
		loads:    make(map[string]*load),
	}
}

// StoreFor returns the store for the browser behind r, starting a new load
// when r is a page navigation or the browser has none yet. The request must
// have passed the session manager's LoadAndSave.
func (reg *Registry) StoreFor(r *http.Request) *Store {
	key := reg.browserKey(r.Context())
	navigation := r.Method == http.MethodGet || r.Method == http.MethodHead

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if cur, ok := reg.loads[key]; ok {
		if !navigation {
			cur.seen = time.Now()
			return cur.store
		}
		cur.store.Close()
	}

	backend := reg.connect(r)
	s := NewStore(backend, reg.logger)
	reg.loads[key] = &load{store: s, seen: time.Now()}
	metrics.ActiveLoads.Set(float64(len(reg.loads)))

	go Bootstrap(r.Context(), s, backend, reg.logger)
	return s
}

func (reg *Registry) browserKey(ctx context.Context) string {
	key := reg.sessions.GetString(ctx, sessionLoadKey)
	if key == "" {
		key = uuid.NewString()
		reg.sessions.Put(ctx, sessionLoadKey, key)
	}
	return key
}

// Len reports how many loads are tracked.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.loads)
}

// Sweep closes and forgets loads untouched for longer than idle. It returns
// how many were dropped.
func (reg *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	reg.mu.Lock()
	defer reg.mu.Unlock()
	dropped := 0
	for key, l := range reg.loads {
		if l.seen.Before(cutoff) {
			l.store.Close()
			delete(reg.loads, key)
			dropped++
		}
	}
	metrics.ActiveLoads.Set(float64(len(reg.loads)))
	return dropped
}

// Close closes every tracked store.
func (reg *Registry) Close() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for key, l := range reg.loads {
		l.store.Close()
		delete(reg.loads, key)
	}
	metrics.ActiveLoads.Set(0)
}
