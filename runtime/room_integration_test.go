//go:build linux

package runtime

import (
	"chat-relay/domain"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/transport"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type liveRoom struct {
	addr    string
	metrics *observability.RoomMetrics
	room    *Room
	stop    func() error
}

func startRoom(t *testing.T, kind string, capacity int, history bool) *liveRoom {
	t.Helper()
	listener, err := transport.Listen("127.0.0.1", 0, 16)
	require.NoError(t, err)
	mux, err := transport.NewMultiplexer(kind)
	require.NoError(t, err)

	options := testOptions()
	options.Capacity = capacity
	metrics := observability.NewRoomMetrics(options.Name)
	room := NewRoom(discardLogger(), listener, mux, metrics, options)
	if history {
		db, err := repositories.OpenInMemory()
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		room.WithHistory(repositories.NewHistoryRepository(db, discardLogger(), &options.HistoryLimit))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- room.Run(ctx) }()

	stopped := false
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			return errors.New("room did not stop")
		}
	}
	t.Cleanup(func() { _ = stop() })
	return &liveRoom{addr: listener.Addr(), metrics: metrics, room: room, stop: stop}
}

// join dials n guests and waits until the room has registered all of them.
func (r *liveRoom) join(t *testing.T, n int) []net.Conn {
	t.Helper()
	conns := make([]net.Conn, 0, n)
	for range n {
		conn, err := net.Dial("tcp", r.addr)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		conns = append(conns, conn)
	}
	r.waitGuests(t, float64(n))
	return conns
}

func (r *liveRoom) waitGuests(t *testing.T, n float64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return metricValue(t, r.metrics, "guests") == n
	}, 2*time.Second, 5*time.Millisecond, "expected %v guests", n)
}

func send(t *testing.T, conn net.Conn, frame string) {
	t.Helper()
	_, err := conn.Write([]byte(frame))
	require.NoError(t, err)
}

func expect(t *testing.T, conn net.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, len(frame))
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	require.Equal(t, frame, string(buf))
}

func expectNothing(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	n, err := conn.Read(make([]byte, 64))
	require.Zero(t, n)
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := conn.Read(make([]byte, 64))
	require.Error(t, err)
	require.False(t, errors.Is(err, os.ErrDeadlineExceeded), "connection should have been closed")
}

func forEachMultiplexer(t *testing.T, fn func(t *testing.T, kind string)) {
	for _, kind := range []string{transport.Epoll, transport.Poll} {
		t.Run(kind, func(t *testing.T) { fn(t, kind) })
	}
}

func TestRoom_Live_Broadcast(t *testing.T) {
	forEachMultiplexer(t, func(t *testing.T, kind string) {
		r := startRoom(t, kind, 8, false)
		guests := r.join(t, 4)

		// When every guest says hello in turn
		for i, sender := range guests {
			frame := fmt.Sprintf("[g%d] hello from %d\n", i, i)
			send(t, sender, frame)
			// Then the three others receive it exactly
			for j, recipient := range guests {
				if j != i {
					expect(t, recipient, frame)
				}
			}
		}
		// And nobody got its own frame back
		for _, guest := range guests {
			expectNothing(t, guest)
		}
	})
}

func TestRoom_Live_Hello_Then_Quit(t *testing.T) {
	forEachMultiplexer(t, func(t *testing.T, kind string) {
		r := startRoom(t, kind, 8, false)
		guests := r.join(t, 2)
		a, b := guests[0], guests[1]

		send(t, a, "hello\n")
		expect(t, b, "hello\n")

		// When b quits, the room closes it and a talks alone
		send(t, b, "!q\n")
		expectClosed(t, b)
		r.waitGuests(t, 1)

		send(t, a, "anyone?\n")
		expectNothing(t, a)
		require.Equal(t, 1.0, metricValue(t, r.metrics, "guests_left_total"))
	})
}

func TestRoom_Live_Peer_Close_Is_End_Of_Stream(t *testing.T) {
	forEachMultiplexer(t, func(t *testing.T, kind string) {
		r := startRoom(t, kind, 8, false)
		guests := r.join(t, 3)

		require.NoError(t, guests[1].Close())
		r.waitGuests(t, 2)

		send(t, guests[0], "still two\n")
		expect(t, guests[2], "still two\n")
	})
}

func TestRoom_Live_Capacity(t *testing.T) {
	forEachMultiplexer(t, func(t *testing.T, kind string) {
		r := startRoom(t, kind, 2, false)
		guests := r.join(t, 2)

		// When a third guest knocks on a full room
		late, err := net.Dial("tcp", r.addr)
		require.NoError(t, err)
		defer late.Close()

		// Then it is accepted and closed right away
		expectClosed(t, late)
		require.Equal(t, 1.0, metricValue(t, r.metrics, "connections_rejected_total"))

		// And the others keep chatting
		send(t, guests[0], "[a] still here\n")
		expect(t, guests[1], "[a] still here\n")
	})
}

func TestRoom_Live_History(t *testing.T) {
	r := startRoom(t, transport.Epoll, 8, true)
	guests := r.join(t, 2)
	a, b := guests[0], guests[1]

	send(t, a, "[a] one\n")
	expect(t, b, "[a] one\n")
	send(t, a, "[a] two\n")
	expect(t, b, "[a] two\n")

	// When b asks for the history
	send(t, b, "!h\n")

	// Then b alone gets the recorded frames, oldest first
	expect(t, b, "[a] one\n[a] two\n")
	expectNothing(t, a)
}

func TestRoom_Live_Shutdown_Closes_Everything(t *testing.T) {
	forEachMultiplexer(t, func(t *testing.T, kind string) {
		r := startRoom(t, kind, 8, false)
		guests := r.join(t, 3)

		require.NoError(t, r.stop())

		require.Equal(t, domain.ShuttingDown, r.room.State())
		for _, guest := range guests {
			expectClosed(t, guest)
		}
		_, err := net.DialTimeout("tcp", r.addr, 200*time.Millisecond)
		require.Error(t, err)
	})
}

func TestRoom_Live_Late_Quitter_Never_Sees_Earlier_Text(t *testing.T) {
	forEachMultiplexer(t, func(t *testing.T, kind string) {
		r := startRoom(t, kind, 8, false)
		a := r.join(t, 1)[0]

		// Given A says hello while alone
		send(t, a, "hello")
		require.Eventually(t, func() bool {
			return metricValue(t, r.metrics, "broadcasts_total") == 1
		}, 2*time.Second, 5*time.Millisecond)

		// When B joins and quits right away
		b, err := net.Dial("tcp", r.addr)
		require.NoError(t, err)
		defer b.Close()
		r.waitGuests(t, 2)
		send(t, b, "!q")

		// Then B is closed without ever seeing hello, and A stays
		require.NoError(t, b.SetReadDeadline(time.Now().Add(2*time.Second)))
		received, err := io.ReadAll(b)
		require.NoError(t, err)
		require.Empty(t, received)
		r.waitGuests(t, 1)
	})
}
