package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// Start listens on host:port and serves handler until ctx is cancelled, then
// drains in-flight requests and runs the cleanup funcs in order.
func Start(ctx context.Context, host, port string, handler http.Handler, log *zap.Logger, cleanup ...func()) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	return serve(ctx, ln, handler, log, cleanup...)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, log *zap.Logger, cleanup ...func()) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("service started", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}

	for _, fn := range cleanup {
		fn()
	}
	log.Info("service stopped")
	return serveErr
}
