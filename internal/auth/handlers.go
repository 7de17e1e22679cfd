package auth

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
)

// Handlers provides the shell's auth endpoints. Sign-in itself happens on the
// backend; these handlers only hand off to it and sign out locally.
type Handlers struct {
	sessions   *scs.SessionManager
	loginURL   string
	cookieName string
	secure     bool
}

// NewHandlers creates a new Handlers. loginURL starts the backend's OAuth
// flow; cookieName is the backend session cookie cleared on logout.
func NewHandlers(sm *scs.SessionManager, loginURL, cookieName string, secure bool) *Handlers {
	return &Handlers{sessions: sm, loginURL: loginURL, cookieName: cookieName, secure: secure}
}

// Login sends the browser to the backend's OAuth entry point.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.loginURL, http.StatusFound)
}

// Logout signs the requesting browser out and returns to the landing page. A
// failed backend call is already logged by the store and does not keep the
// user signed in. Must sit behind Guard.Gate.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	_ = FromContext(r.Context()).Logout(r.Context())
	if h.cookieName != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	if h.sessions != nil {
		if err := h.sessions.RenewToken(r.Context()); err == nil {
			PutFlash(r.Context(), h.sessions, "You have been signed out.")
		}
	}
	http.Redirect(w, r, DefaultRoute, http.StatusSeeOther)
}
