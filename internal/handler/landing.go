package handler

import (
	"net/http"
)

// Landing serves GET /, the marketing page. Signed-in and signed-out visitors
// both see it; only the header differs.
func (s *shell) Landing(w http.ResponseWriter, r *http.Request) {
	render(w, "landing.html", s.newBasePage(r))
}

// LoginPage is the template data for the sign-in page.
type LoginPage struct {
	BasePage
	AuthError string
}

// Login serves GET /auth. It is mounted behind Guard.RequireUnauthenticated,
// so signed-in users never reach it.
func (s *shell) Login(w http.ResponseWriter, r *http.Request) {
	render(w, "login.html", LoginPage{
		BasePage:  s.newBasePage(r),
		AuthError: r.URL.Query().Get("auth_error"),
	})
}
