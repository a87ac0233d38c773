package e2e

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

type BaseRoomSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running scenarios.
// Without ROOM_ADDR there is no room to talk to and the suite is skipped.
func (s *BaseRoomSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RoomAddr == "" {
		s.T().Skip("ROOM_ADDR is not set")
	}
}

func (s *BaseRoomSuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// Guest joins the room as a raw TCP client.
func (s *BaseRoomSuite) Guest(name string) net.Conn {
	s.header(s.T(), name)
	conn, err := net.DialTimeout("tcp", s.Config.RoomAddr, 5*time.Second)
	s.Require().NoError(err, "Failed to join the room at "+s.Config.RoomAddr)
	s.T().Cleanup(func() { _ = conn.Close() })
	// Leave the room a pass to register the guest
	time.Sleep(100 * time.Millisecond)
	return conn
}

func (s *BaseRoomSuite) Send(conn net.Conn, frame string) {
	_, err := conn.Write([]byte(frame))
	s.Require().NoError(err)
}

func (s *BaseRoomSuite) Expect(conn net.Conn, frame string) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	buf := make([]byte, len(frame))
	_, err := io.ReadFull(conn, buf)
	s.Require().NoError(err)
	s.Require().Equal(frame, string(buf))
}

func (s *BaseRoomSuite) ExpectNothing(conn net.Conn) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)))
	n, err := conn.Read(make([]byte, 256))
	s.Require().Zero(n)
	s.Require().ErrorIs(err, os.ErrDeadlineExceeded)
}

// WithHealth provides a gRPC health client, each call being logged.
func (s *BaseRoomSuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	if s.Config.HealthAddr == "" {
		s.T().Skip("HEALTH_ADDR is not set")
	}
	s.header(s.T(), name)
	t := s.T()
	conn, err := grpc.NewClient(s.Config.HealthAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)
			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.HealthAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, healthpb.NewHealthClient(conn))
}
