package auth

import (
	"context"
	"errors"
	"log"

	"github.com/joestump/streakcraft/internal/metrics"
)

// SessionFetcher retrieves the identity behind the current ambient credentials.
type SessionFetcher interface {
	FetchSession(ctx context.Context) (*Identity, error)
}

// Bootstrap performs the one-time session check for a load and settles the store.
// A failed check is logged and leaves the store unauthenticated; it never
// surfaces to the caller. Only the first call per store reaches the backend;
// later calls return immediately.
func Bootstrap(ctx context.Context, s *Store, f SessionFetcher, logger *log.Logger) {
	if logger == nil {
		logger = s.logger
	}
	s.bootOnce.Do(func() {
		var id *Identity
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("session fetch panic: %v", r)
				metrics.BootstrapsTotal.WithLabelValues("error").Inc()
				id = nil
			}
			s.settle(id)
		}()
		id = fetch(ctx, f, logger)
	})
}

func fetch(ctx context.Context, f SessionFetcher, logger *log.Logger) *Identity {
	id, err := f.FetchSession(ctx)
	switch {
	case err == nil && id != nil:
		metrics.BootstrapsTotal.WithLabelValues("authenticated").Inc()
		return id
	case err == nil:
		metrics.BootstrapsTotal.WithLabelValues("anonymous").Inc()
	case errors.Is(err, ErrNoSession):
		logger.Printf("no active session: %v", err)
		metrics.BootstrapsTotal.WithLabelValues("anonymous").Inc()
	default:
		logger.Printf("session fetch failed: %v", err)
		metrics.BootstrapsTotal.WithLabelValues("error").Inc()
	}
	return nil
}
