//go:build unix

// Package transport provides the non-blocking stream sockets and readiness
// multiplexers the room is driven by. Handles are raw file descriptors.
package transport

import (
	"chat-relay/contract"
	"chat-relay/domain"
	errs "chat-relay/errors"
	"errors"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Listener is a bound, listening, non-blocking IPv4 stream socket.
type Listener struct {
	fd     int
	closed bool
}

// Listen creates the room socket. SO_REUSEADDR is set so a restarted room can
// bind its port while old connections linger in TIME_WAIT.
func Listen(host string, port, backlog int) (*Listener, error) {
	ip, err := resolveIPv4(host)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	unix.CloseOnExec(fd)

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip)
	if err = unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind %s:%d: %w", ip, port, err)
	}
	if err = unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	return &Listener{fd: fd}, nil
}

func resolveIPv4(host string) (net.IP, error) {
	if host == "" {
		return net.IPv4zero.To4(), nil
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("%w: %s is not IPv4", errs.ErrInvalidAddress, host)
	}
	addr, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidAddress, err)
	}
	return addr.IP.To4(), nil
}

func (l *Listener) Handle() domain.Handle {
	return domain.Handle(l.fd)
}

// Port returns the bound port, useful when listening on port 0.
func (l *Listener) Port() int {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return 0
	}
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return in4.Port
	}
	return 0
}

func (l *Listener) Addr() string {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return ""
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return ""
	}
	return net.JoinHostPort(net.IP(in4.Addr[:]).String(), strconv.Itoa(in4.Port))
}

// Accept returns errors.ErrWouldBlock when no connection is pending.
func (l *Listener) Accept() (contract.Conn, error) {
	for {
		nfd, _, err := unix.Accept(l.fd)
		switch {
		case err == nil:
			unix.CloseOnExec(nfd)
			if err = unix.SetNonblock(nfd, true); err != nil {
				_ = unix.Close(nfd)
				return nil, fmt.Errorf("set non-blocking: %w", err)
			}
			return &Conn{fd: nfd}, nil
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil, errs.ErrWouldBlock
		default:
			return nil, fmt.Errorf("accept: %w", err)
		}
	}
}

func (l *Listener) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return unix.Close(l.fd)
}

// Conn is an accepted non-blocking connection.
type Conn struct {
	fd     int
	closed bool
}

func (c *Conn) Handle() domain.Handle {
	return domain.Handle(c.fd)
}

// Read returns (0, nil) once the peer closed its side and
// errors.ErrWouldBlock when nothing is buffered.
func (c *Conn) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(c.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, errs.ErrWouldBlock
		default:
			return 0, fmt.Errorf("%w: %w", errs.ErrReadFailed, err)
		}
	}
}

// Write may write fewer bytes than len(p); the caller owns the follow-up.
func (c *Conn) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(c.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, errs.ErrWouldBlock
		default:
			return 0, fmt.Errorf("%w: %w", errs.ErrWriteFailed, err)
		}
	}
}

func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}
