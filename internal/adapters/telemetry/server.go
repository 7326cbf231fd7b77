package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/zerr"
)

const shutdownTimeout = 5 * time.Second

// Serve exposes the metrics on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, metrics *Metrics) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrMetricsServerFailed.Error()), "addr", addr)
	}
	return ServeListener(ctx, lis, metrics)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, lis net.Listener, metrics *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return zerr.Wrap(err, domain.ErrMetricsServerFailed.Error())
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return zerr.Wrap(err, domain.ErrMetricsServerFailed.Error())
		}
		<-errCh
		return nil
	}
}
