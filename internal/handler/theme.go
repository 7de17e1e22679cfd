package handler

import (
	"net/http"
)

const themeCookie = "theme"

func validTheme(t string) bool {
	return t == "streak-light" || t == "streak-dark"
}

// Theme handles POST /theme. It persists the chosen theme in a cookie and
// sends the browser back where it came from. No sign-in required.
func Theme(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	theme := r.FormValue("theme")
	if !validTheme(theme) {
		http.Error(w, "invalid theme", http.StatusBadRequest)
		return
	}

	// Not HttpOnly: the anti-flash script in base.html reads it.
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    theme,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})

	back := r.FormValue("return_to")
	if back == "" || back[0] != '/' || (len(back) > 1 && (back[1] == '/' || back[1] == '\\')) {
		back = "/"
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}
