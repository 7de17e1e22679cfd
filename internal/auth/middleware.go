package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/joestump/streakcraft/internal/metrics"
)

type contextKey string

const StoreContextKey contextKey = "identity-store"

const (
	// DefaultRoute is where signed-in users land when a page is closed to them.
	DefaultRoute = "/"
	// LoginRoute is where signed-out users land when a page requires a session.
	LoginRoute = "/auth"
)

// WithStore returns a copy of ctx carrying s.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, StoreContextKey, s)
}

// FromContext returns the Store carried by ctx. Reading session state outside
// a request the Guard has admitted is a wiring mistake, so a missing store
// panics instead of pretending no one is signed in.
func FromContext(ctx context.Context) *Store {
	s, ok := ctx.Value(StoreContextKey).(*Store)
	if !ok || s == nil {
		panic("auth: FromContext called outside a Guard-gated request")
	}
	return s
}

// StoreSource resolves the Identity Store behind a request.
type StoreSource interface {
	StoreFor(r *http.Request) *Store
}

// Guard provides HTTP middleware that gates routes on the Identity Store.
type Guard struct {
	src StoreSource
}

// NewGuard creates a Guard that finds each request's store through src.
func NewGuard(src StoreSource) *Guard {
	return &Guard{src: src}
}

// Gate holds requests until their store's session check has resolved, so no
// page renders against an unsettled state. If the client gives up first, it
// gets a 503 with an empty body. Admitted requests carry the store in their
// context.
func (g *Guard) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := g.src.StoreFor(r)
		select {
		case <-s.Ready():
		case <-r.Context().Done():
		}
		if r.Context().Err() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithStore(r.Context(), s)))
	})
}

// RequireUnauthenticated redirects signed-in users to DefaultRoute before the
// wrapped handler runs. Use it for the login page. It must sit behind Gate.
func (g *Guard) RequireUnauthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()).Authenticated() {
			metrics.GuardRedirectsTotal.WithLabelValues("authenticated").Inc()
			http.Redirect(w, r, DefaultRoute, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthenticated redirects signed-out users to LoginRoute before the
// wrapped handler runs. It must sit behind Gate.
func (g *Guard) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			metrics.GuardRedirectsTotal.WithLabelValues("unauthenticated").Inc()
			http.Redirect(w, r, LoginRoute, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSameOrigin refuses state-changing requests that cannot show they
// come from the shell's own pages. Fetch metadata is trusted when present;
// otherwise Origin, then Referer, must name the request's host.
func RequireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutation(r.Method) && !sameOrigin(r) {
			metrics.CrossOriginRejectsTotal.Inc()
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func sameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "same-origin":
		return true
	case "":
	default:
		return false
	}
	for _, h := range []string{"Origin", "Referer"} {
		raw := strings.TrimSpace(r.Header.Get(h))
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
	return false
}
