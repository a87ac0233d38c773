package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// DebugServerWorker serves the debug handler (metrics, history) over HTTP
// until its context is canceled.
type DebugServerWorker struct {
	log     *slog.Logger
	address string
	handler http.Handler
}

func NewDebugServerWorker(log *slog.Logger, host string, port int, handler http.Handler) *DebugServerWorker {
	return &DebugServerWorker{
		log:     log,
		address: net.JoinHostPort(host, fmt.Sprint(port)),
		handler: handler,
	}
}

func (w *DebugServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}
	server := &http.Server{Handler: w.handler, ReadHeaderTimeout: 5 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting debug server", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("debug server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			w.log.Debug("Error while shutting down debug server", "error", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}
