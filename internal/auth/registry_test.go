package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/joestump/streakcraft/internal/auth"
)

// fakeBackend knows which session cookie values are signed in.
type fakeBackend struct {
	mu       sync.Mutex
	sessions map[string]*auth.Identity
	fetches  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{sessions: map[string]*auth.Identity{}}
}

func (f *fakeBackend) signIn(cookie string, id *auth.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[cookie] = id
}

func (f *fakeBackend) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeBackend) connect(r *http.Request) auth.Backend {
	var v string
	if c, err := r.Cookie(auth.DefaultCookieName); err == nil {
		v = c.Value
	}
	return browserConn{f: f, cookie: v}
}

type browserConn struct {
	f      *fakeBackend
	cookie string
}

func (b browserConn) FetchSession(context.Context) (*auth.Identity, error) {
	b.f.mu.Lock()
	defer b.f.mu.Unlock()
	b.f.fetches++
	if id := b.f.sessions[b.cookie]; id != nil && b.cookie != "" {
		return id, nil
	}
	return nil, auth.ErrNoSession
}

func (b browserConn) EndSession(context.Context) error {
	b.f.mu.Lock()
	defer b.f.mu.Unlock()
	delete(b.f.sessions, b.cookie)
	return nil
}

// browser replays the cookies the server sets, like a real user agent.
type browser struct {
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(h http.Handler) *browser {
	return &browser{h: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.h.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

// whoHandler writes the gated store's signed-in name, or "anonymous".
var whoHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id := auth.FromContext(r.Context()).Identity(); id != nil {
		w.Write([]byte(id.Name()))
		return
	}
	w.Write([]byte("anonymous"))
})

func newRegistryStack(t *testing.T, f *fakeBackend) (*auth.Registry, http.Handler) {
	t.Helper()
	sm := auth.NewSessionManager(nil, "memory", time.Hour, false)
	reg := auth.NewRegistry(sm, f.connect, nil)
	t.Cleanup(reg.Close)
	return reg, sm.LoadAndSave(auth.NewGuard(reg).Gate(whoHandler))
}

func TestRegistry_BrowsersAreIsolated(t *testing.T) {
	f := newFakeBackend()
	f.signIn("r-ann", ann())
	reg, h := newRegistryStack(t, f)

	signedIn := newBrowser(h)
	signedIn.cookies[auth.DefaultCookieName] = &http.Cookie{Name: auth.DefaultCookieName, Value: "r-ann"}
	if got := signedIn.do(http.MethodGet, "/").Body.String(); got != "Ann" {
		t.Errorf("signed-in browser sees %q, want Ann", got)
	}

	stranger := newBrowser(h)
	if got := stranger.do(http.MethodGet, "/").Body.String(); got != "anonymous" {
		t.Errorf("cookieless browser sees %q, want anonymous", got)
	}
	if reg.Len() != 2 {
		t.Errorf("Len = %d, want one load per browser", reg.Len())
	}
}

func TestRegistry_NavigationStartsNewLoad(t *testing.T) {
	f := newFakeBackend()
	reg, h := newRegistryStack(t, f)
	b := newBrowser(h)
	b.cookies[auth.DefaultCookieName] = &http.Cookie{Name: auth.DefaultCookieName, Value: "r-1"}

	if got := b.do(http.MethodGet, "/").Body.String(); got != "anonymous" {
		t.Fatalf("before sign-in: %q, want anonymous", got)
	}

	f.signIn("r-1", ann())
	if got := b.do(http.MethodGet, "/").Body.String(); got != "Ann" {
		t.Errorf("after reload: %q, want Ann", got)
	}
	if n := f.fetchCount(); n != 2 {
		t.Errorf("fetches = %d, want one per page load", n)
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want the reload to replace the browser's load", reg.Len())
	}
}

func TestRegistry_MutationReusesCurrentLoad(t *testing.T) {
	f := newFakeBackend()
	f.signIn("r-1", ann())
	_, h := newRegistryStack(t, f)
	b := newBrowser(h)
	b.cookies[auth.DefaultCookieName] = &http.Cookie{Name: auth.DefaultCookieName, Value: "r-1"}

	b.do(http.MethodGet, "/")
	if got := b.do(http.MethodPost, "/").Body.String(); got != "Ann" {
		t.Errorf("POST sees %q, want Ann", got)
	}
	if n := f.fetchCount(); n != 1 {
		t.Errorf("fetches = %d, want POST to reuse the page's load", n)
	}
}

func TestRegistry_Sweep(t *testing.T) {
	f := newFakeBackend()
	reg, h := newRegistryStack(t, f)
	newBrowser(h).do(http.MethodGet, "/")
	newBrowser(h).do(http.MethodGet, "/")

	if n := reg.Sweep(time.Hour); n != 0 {
		t.Errorf("Sweep(1h) dropped %d fresh loads", n)
	}
	if n := reg.Sweep(-time.Second); n != 2 {
		t.Errorf("Sweep dropped %d, want 2", n)
	}
	if reg.Len() != 0 {
		t.Errorf("Len = %d after sweep, want 0", reg.Len())
	}
}
