//go:build unix

package transport

import (
	"chat-relay/contract"
	errs "chat-relay/errors"
	"fmt"
	"time"
)

const (
	Epoll = "epoll"
	Poll  = "poll"
)

// NewMultiplexer builds the readiness multiplexer named by kind.
func NewMultiplexer(kind string) (contract.Multiplexer, error) {
	switch kind {
	case Epoll:
		return newEpoll()
	case Poll:
		return NewPollMultiplexer(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnsupportedMultiplexer, kind)
	}
}

// toMillis converts a wait timeout to the kernel convention: -1 blocks forever,
// and sub-millisecond positive timeouts round up so they never become a busy poll.
func toMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		return 1
	}
	return ms
}
