package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joestump/streakcraft/internal/auth"
	"github.com/joestump/streakcraft/internal/config"
	"github.com/joestump/streakcraft/internal/db"
	"github.com/joestump/streakcraft/internal/handler"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var database *sqlx.DB
			if cfg.Session.Store != "memory" {
				database, err = db.Open(cfg.Session.Store, cfg.DB.DSN)
				if err != nil {
					return err
				}
				defer func() { _ = database.Close() }()

				if err := db.Migrate(database, cfg.Session.Store); err != nil {
					return err
				}
			}
			sessionManager := auth.NewSessionManager(database, cfg.Session.Store, cfg.Session.Lifetime, !cfg.InsecureCookies)

			client, err := auth.NewClient(cfg.Auth.BaseURL,
				auth.WithTimeout(cfg.Auth.Timeout),
				auth.WithCookieName(cfg.Auth.CookieName),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Each browser gets its own store, checked with its own cookie.
			logger := log.Default()
			registry := auth.NewRegistry(sessionManager, func(r *http.Request) auth.Backend {
				return client.ForRequest(r)
			}, logger)
			defer registry.Close()
			go runLoadSweeper(ctx, registry, cfg.Session.Lifetime)

			router := handler.NewRouter(handler.Deps{
				Registry:       registry,
				Guard:          auth.NewGuard(registry),
				AuthHandlers:   auth.NewHandlers(sessionManager, auth.GoogleLoginPath, client.CookieName(), !cfg.InsecureCookies),
				SessionManager: sessionManager,
				BackendProxy:   client.Proxy(logger),
			})

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.HTTP.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log.Printf("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// runLoadSweeper drops browser loads idle for longer than idle until ctx ends.
func runLoadSweeper(ctx context.Context, reg *auth.Registry, idle time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := reg.Sweep(idle); n > 0 {
				log.Printf("swept %d idle loads", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// newAuthClient builds the client the CLI uses, seeded with the configured
// session cookie.
func newAuthClient(cfg *config.Config) (*auth.Client, error) {
	return auth.NewClient(cfg.Auth.BaseURL,
		auth.WithTimeout(cfg.Auth.Timeout),
		auth.WithSessionCookie(cfg.Auth.CookieName, cfg.Auth.CookieValue),
	)
}
