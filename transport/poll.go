//go:build unix

package transport

import (
	"chat-relay/domain"
	errs "chat-relay/errors"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const pollReady = unix.POLLIN | unix.POLLHUP | unix.POLLERR | unix.POLLNVAL

// PollMultiplexer waits with poll(2). It keeps no kernel state between calls,
// so the handle set may change freely from one Wait to the next.
type PollMultiplexer struct {
	fds []unix.PollFd
}

func NewPollMultiplexer() *PollMultiplexer {
	return &PollMultiplexer{}
}

func (m *PollMultiplexer) Wait(handles []domain.Handle, timeout time.Duration) ([]domain.Handle, error) {
	m.fds = m.fds[:0]
	for _, h := range handles {
		m.fds = append(m.fds, unix.PollFd{Fd: int32(h), Events: unix.POLLIN})
	}

	n, err := unix.Poll(m.fds, toMillis(timeout))
	if errors.Is(err, unix.EINTR) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: poll: %w", errs.ErrMultiplex, err)
	}

	ready := make([]domain.Handle, 0, n)
	for _, fd := range m.fds {
		if fd.Revents&pollReady != 0 {
			ready = append(ready, domain.Handle(fd.Fd))
		}
	}
	return ready, nil
}

func (m *PollMultiplexer) Remove(domain.Handle) {}

func (m *PollMultiplexer) Close() error {
	return nil
}
