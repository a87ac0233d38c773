package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServerWorker exposes the standard gRPC health service.
// The room name and the empty service both report SERVING until the context
// is canceled; they then report NOT_SERVING while in-flight calls drain.
type HealthServerWorker struct {
	log     *slog.Logger
	address string
	service string
}

func NewHealthServerWorker(log *slog.Logger, host string, port int, service string) *HealthServerWorker {
	return &HealthServerWorker{
		log:     log,
		address: net.JoinHostPort(host, fmt.Sprint(port)),
		service: service,
	}
}

func (w *HealthServerWorker) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", w.address, err)
	}

	s := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(w.service, healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting gRPC health server", "address", listener.Addr().String(), "service", w.service)
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		healthServer.Shutdown()
		s.GracefulStop()
		return nil
	case err := <-errChan:
		s.Stop()
		return err
	}
}
