// Package domain contains core concepts of the chat relay.
// This file defines Message frames and related rules.
// Messages are immutable once read.
package domain

import "time"

type Kind int

const (
	// KindNone means the read produced nothing (spurious readiness).
	KindNone Kind = iota
	KindText
	KindQuit
	KindHistory
	KindEndOfStream
	KindReadError
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindQuit:
		return "quit"
	case KindHistory:
		return "history"
	case KindEndOfStream:
		return "end_of_stream"
	case KindReadError:
		return "read_error"
	default:
		return "none"
	}
}

// Message is the outcome of one read from one guest.
type Message struct {
	Kind      Kind
	Sender    Handle
	Name      string
	Payload   []byte
	Truncated bool
	Err       error
	ReadAt    time.Time
}

// Disconnects reports whether the message ends the sender's connection.
func (m Message) Disconnects() bool {
	return m.Kind == KindQuit || m.Kind == KindEndOfStream || m.Kind == KindReadError
}

// WithPayload returns a copy carrying a new payload, bounded by frameSize.
func (m Message) WithPayload(payload []byte, frameSize int) Message {
	if len(payload) > frameSize {
		payload = payload[:frameSize]
		m.Truncated = true
	}
	m.Payload = append([]byte(nil), payload...)
	return m
}
