package handler

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joestump/streakcraft/internal/auth"
	"github.com/joestump/streakcraft/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	Registry       *auth.Registry
	Guard          *auth.Guard
	AuthHandlers   *auth.Handlers
	SessionManager *scs.SessionManager
	BackendProxy   http.Handler
}

type shell struct {
	sessions *scs.SessionManager
}

// NewRouter assembles the chi router. Page routes sit behind Guard.Gate, so
// none of them render until the browser's session check has settled; health,
// metrics, static assets and the backend proxy are served immediately.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))
	r.Get("/healthz", health(deps.Registry))
	r.Handle("/metrics", promhttp.Handler())
	if deps.BackendProxy != nil {
		r.Handle(auth.ProxyPrefix+"/*", deps.BackendProxy)
	}

	// Hand-off to the backend's OAuth flow; needs no session state.
	r.Get("/auth/google/login", deps.AuthHandlers.Login)

	s := &shell{sessions: deps.SessionManager}
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSameOrigin)
		r.Use(deps.SessionManager.LoadAndSave)
		r.Use(deps.Guard.Gate)

		r.Get("/", s.Landing)
		r.With(deps.Guard.RequireUnauthenticated).Get(auth.LoginRoute, s.Login)
		r.Post("/auth/logout", deps.AuthHandlers.Logout)
		r.Post("/theme", Theme)
	})

	return r
}

func health(reg *auth.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"loads":  reg.Len(),
		})
	}
}
