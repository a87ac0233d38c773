//go:build unix && !linux

package transport

import (
	"chat-relay/contract"
	errs "chat-relay/errors"
	"fmt"
)

func newEpoll() (contract.Multiplexer, error) {
	return nil, fmt.Errorf("%w: epoll requires linux", errs.ErrUnsupportedMultiplexer)
}
