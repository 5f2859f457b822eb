package serverutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Service is anything with a blocking serve loop and a graceful shutdown.
type Service interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// DefaultShutdownTimeout bounds graceful shutdown when the context is cancelled.
const DefaultShutdownTimeout = 10 * time.Second

type options struct {
	shutdownTimeout time.Duration
	ready           chan<- struct{}
}

// Option adjusts how Run supervises the service.
type Option func(*options)

// WithShutdownTimeout overrides the graceful shutdown bound.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.shutdownTimeout = timeout
		}
	}
}

// WithReady closes the provided channel once the serve loop has been started.
func WithReady(ready chan<- struct{}) Option {
	return func(o *options) {
		o.ready = ready
	}
}

// Run starts the service and blocks until it stops on its own or the context
// is cancelled. Cancellation triggers a graceful shutdown bounded by the
// shutdown timeout; a serve loop that ends with http.ErrServerClosed counts
// as a clean stop.
func Run(ctx context.Context, svc Service, opts ...Option) error {
	if svc == nil {
		return fmt.Errorf("service is required")
	}

	cfg := options{shutdownTimeout: DefaultShutdownTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- svc.Start()
	}()

	if cfg.ready != nil {
		close(cfg.ready)
	}

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()

	shutdownErr := svc.Shutdown(shutdownCtx)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-shutdownCtx.Done():
		if shutdownErr != nil {
			return shutdownErr
		}
		return shutdownCtx.Err()
	}

	return shutdownErr
}
