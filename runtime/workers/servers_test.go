package workers

import (
	"chat-relay/observability"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// runWorker starts Run in the background and returns a function stopping it
// and reporting its result.
func runWorker(t *testing.T, run func(ctx context.Context) error) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	t.Cleanup(cancel)
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop")
			return nil
		}
	}
}

func TestHealthServerWorker_Reports_Serving(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	port := freePort(t)
	stop := runWorker(t, NewHealthServerWorker(log, "127.0.0.1", port, "lobby").Run)

	conn, err := grpc.NewClient(fmt.Sprintf("127.0.0.1:%d", port),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	// When the room service is checked
	var res *healthpb.HealthCheckResponse
	req.Eventually(func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		res, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "lobby"})
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	// Then it is serving
	req.Equal(healthpb.HealthCheckResponse_SERVING, res.GetStatus())
	req.NoError(stop())
}

func TestDebugServerWorker_Serves_Handler(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	port := freePort(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	stop := runWorker(t, NewDebugServerWorker(log, "127.0.0.1", port, handler).Run)

	var body []byte
	req.Eventually(func() bool {
		res, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		if err != nil {
			return false
		}
		defer res.Body.Close()
		body, err = io.ReadAll(res.Body)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	req.Equal("pong", string(body))
	req.NoError(stop())
}

func TestDebugServerWorker_Fails_On_Busy_Port(t *testing.T) {
	req := require.New(t)
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	err = NewDebugServerWorker(slog.Default(), "127.0.0.1", port, http.NotFoundHandler()).Run(context.Background())

	req.Error(err)
}

func TestHealthMonitoringWorker_Publishes_Samples(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewRoomMetrics("lobby")
	worker := NewHealthMonitoringWorker(logs.GetLoggerFromLevel(slog.LevelDebug), metrics, 20*time.Millisecond)
	stop := runWorker(t, worker.Run)

	req.Eventually(func() bool {
		families, err := metrics.Registry().Gather()
		if err != nil {
			return false
		}
		for _, family := range families {
			if family.GetName() == observability.Namespace+"_process_rss_bytes" {
				return family.GetMetric()[0].GetGauge().GetValue() > 0
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
	req.NoError(stop())
}
