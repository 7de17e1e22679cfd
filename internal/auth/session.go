package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/postgresstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
)

const sessionFlashKey = "flash"

// NewSessionManager creates the SCS manager for the shell's own browser
// sessions (flash messages). The driver selects the store: "mysql",
// "postgres", "sqlite3", or "memory" (default; db may be nil).
func NewSessionManager(db *sqlx.DB, driver string, lifetime time.Duration, secure bool) *scs.SessionManager {
	sm := scs.New()
	switch driver {
	case "mysql":
		sm.Store = mysqlstore.New(db.DB)
	case "postgres":
		sm.Store = postgresstore.New(db.DB)
	case "sqlite3":
		sm.Store = sqlite3store.New(db.DB)
	}
	sm.Lifetime = lifetime
	sm.Cookie.Name = "streakcraft_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secure
	sm.Cookie.SameSite = http.SameSiteLaxMode
	return sm
}

// PutFlash stores a one-time message for the next page render.
func PutFlash(ctx context.Context, sm *scs.SessionManager, msg string) {
	sm.Put(ctx, sessionFlashKey, msg)
}

// PopFlash returns and removes the pending flash message, or "".
func PopFlash(ctx context.Context, sm *scs.SessionManager) string {
	return sm.PopString(ctx, sessionFlashKey)
}
