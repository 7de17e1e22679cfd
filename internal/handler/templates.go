package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/joestump/streakcraft/internal/auth"
	"github.com/joestump/streakcraft/internal/build"
	"github.com/joestump/streakcraft/web"
)

// BasePage carries layout-level data available to every template.
type BasePage struct {
	Theme   string         // "streak-light", "streak-dark", or "" (let inline script decide)
	User    *auth.Identity // nil when signed out
	Flash   string
	Version string
}

// newBasePage fills the layout data from the request. The request must have
// passed Guard.Gate.
func (s *shell) newBasePage(r *http.Request) BasePage {
	bp := BasePage{
		Theme:   themeFromRequest(r),
		User:    auth.FromContext(r.Context()).Identity(),
		Version: build.Version,
	}
	if s.sessions != nil {
		bp.Flash = auth.PopFlash(r.Context(), s.sessions)
	}
	return bp
}

// themeFromRequest reads the "theme" cookie. Returns "" if absent or invalid,
// so the server omits data-theme and lets the anti-flash inline script handle it.
func themeFromRequest(r *http.Request) string {
	c, err := r.Cookie(themeCookie)
	if err != nil {
		return ""
	}
	if validTheme(c.Value) {
		return c.Value
	}
	return ""
}

// pageCache maps a page file name (e.g. "landing.html") to a template set
// containing base.html + partials + that one page, so {{define "content"}}
// blocks don't collide.
var pageCache map[string]*template.Template

func init() {
	var err error
	pageCache, err = buildPageCache(web.TemplateFS)
	if err != nil {
		panic("build page cache: " + err.Error())
	}
}

func buildPageCache(fsys fs.FS) (map[string]*template.Template, error) {
	partials, err := fs.Glob(fsys, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob partials: %w", err)
	}
	pages, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob pages: %w", err)
	}

	cache := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		files := make([]string, 0, 2+len(partials))
		files = append(files, "templates/base.html")
		files = append(files, partials...)
		files = append(files, p)

		t, err := template.New("").ParseFS(fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		name, _ := strings.CutPrefix(p, "templates/pages/")
		cache[name] = t
	}
	return cache, nil
}

// render executes a full-page template (base layout + named page).
func render(w http.ResponseWriter, tmpl string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	t, ok := pageCache[tmpl]
	if !ok {
		http.Error(w, "template not found: "+tmpl, http.StatusInternalServerError)
		return
	}
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
	}
}
