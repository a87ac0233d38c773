//go:build linux

package transport

import (
	"chat-relay/contract"
	"chat-relay/domain"
	errs "chat-relay/errors"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const epollInterest = unix.EPOLLIN | unix.EPOLLRDHUP

// EpollMultiplexer keeps an epoll interest list in sync with the handle set
// passed to each Wait. Handles must be removed before they are closed,
// otherwise a reused descriptor number would never be re-armed.
type EpollMultiplexer struct {
	epfd    int
	watched map[domain.Handle]struct{}
	events  []unix.EpollEvent
}

func newEpoll() (contract.Multiplexer, error) {
	m, err := NewEpollMultiplexer()
	if err != nil {
		return nil, err
	}
	return m, nil
}

func NewEpollMultiplexer() (*EpollMultiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("%w: epoll_create1: %w", errs.ErrMultiplex, err)
	}
	return &EpollMultiplexer{
		epfd:    epfd,
		watched: make(map[domain.Handle]struct{}),
		events:  make([]unix.EpollEvent, 64),
	}, nil
}

func (m *EpollMultiplexer) Wait(handles []domain.Handle, timeout time.Duration) ([]domain.Handle, error) {
	current := make(map[domain.Handle]struct{}, len(handles))
	var broken []domain.Handle

	for _, h := range handles {
		current[h] = struct{}{}
		if _, ok := m.watched[h]; ok {
			continue
		}
		ev := unix.EpollEvent{Events: epollInterest, Fd: int32(h)}
		err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, int(h), &ev)
		switch {
		case err == nil, errors.Is(err, unix.EEXIST):
			m.watched[h] = struct{}{}
		case errors.Is(err, unix.EBADF), errors.Is(err, unix.EPERM):
			// Report it ready: the read fails and the owner drops the handle.
			broken = append(broken, h)
		default:
			return nil, fmt.Errorf("%w: epoll_ctl add %d: %w", errs.ErrMultiplex, h, err)
		}
	}

	for h := range m.watched {
		if _, ok := current[h]; !ok {
			m.Remove(h)
		}
	}

	if len(broken) > 0 {
		return broken, nil
	}

	if len(m.events) < len(handles) {
		m.events = make([]unix.EpollEvent, len(handles))
	}

	n, err := unix.EpollWait(m.epfd, m.events, toMillis(timeout))
	if errors.Is(err, unix.EINTR) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: epoll_wait: %w", errs.ErrMultiplex, err)
	}

	ready := make([]domain.Handle, 0, n)
	for _, ev := range m.events[:n] {
		ready = append(ready, domain.Handle(ev.Fd))
	}
	return ready, nil
}

func (m *EpollMultiplexer) Remove(handle domain.Handle) {
	if _, ok := m.watched[handle]; !ok {
		return
	}
	delete(m.watched, handle)
	// ENOENT and EBADF only mean the kernel already forgot it.
	_ = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, int(handle), nil)
}

func (m *EpollMultiplexer) Close() error {
	return unix.Close(m.epfd)
}
