package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	webhttp "github.com/aretw0/webflow/pkg/adapters/http"
)

// ShutdownTimeout bounds how long outstanding requests get once the server stops.
const ShutdownTimeout = 5 * time.Second

// Handler mounts the flow endpoints of stack and, with metrics enabled, /metrics.
func Handler(stack *Stack) http.Handler {
	opts := []webhttp.Option{webhttp.WithLogger(stack.Logger)}
	if stack.Metrics != nil {
		opts = append(opts, webhttp.WithMetrics(stack.Metrics))
	}
	r := webhttp.NewServer(stack.Executor, opts...).Routes()
	if stack.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(stack.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Serve listens on addr until ctx is done, then shuts the server down gracefully.
func Serve(ctx context.Context, stack *Stack, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(stack),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		stack.Logger.Info("starting server", "addr", addr, "flows", stack.Flows.IDs())
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		stack.Logger.Info("shutting down server")
		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			stack.Logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "error", err)
			return srv.Close()
		}
		stack.Logger.Info("server stopped gracefully")
		return nil
	}
}
