// Package domain contains core concepts of the chat relay.
// This file defines guest connections and their identity rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"bytes"
	"io"
	"strconv"
	"time"
)

// Handle identifies one live transport endpoint (a file descriptor on unix).
// It is unique among live connections but may be reused once closed.
type Handle int

func (h Handle) String() string {
	return strconv.Itoa(int(h))
}

const (
	AnonymousName = "anonymous"
	maxNameLength = 32
)

// GuestConnection is one accepted peer, owned by the room registry.
type GuestConnection struct {
	Handle   Handle
	Name     string
	Alive    bool
	JoinedAt time.Time
	Conn     io.ReadWriteCloser
}

func NewGuestConnection(handle Handle, conn io.ReadWriteCloser, at time.Time) *GuestConnection {
	return &GuestConnection{Handle: handle, Alive: true, JoinedAt: at, Conn: conn}
}

// DisplayName returns the declared nick, or the anonymous label if none is known.
func (g *GuestConnection) DisplayName() string {
	if g.Name == "" {
		return AnonymousName
	}
	return g.Name
}

// NameFrom extracts the leading "[nick]" field of a payload.
// It returns false when the payload does not start with a well-formed field.
func NameFrom(payload []byte) (string, bool) {
	if len(payload) < 3 || payload[0] != '[' {
		return "", false
	}
	end := bytes.IndexByte(payload, ']')
	if end <= 1 || end > maxNameLength+1 {
		return "", false
	}
	name := string(bytes.TrimSpace(payload[1:end]))
	if name == "" {
		return "", false
	}
	return name, true
}

// SplitName separates the "[nick]" field from the text that follows it.
// Payloads without the field are returned unchanged as body.
func SplitName(payload []byte) (prefix, body []byte) {
	if _, ok := NameFrom(payload); !ok {
		return nil, payload
	}
	end := bytes.IndexByte(payload, ']') + 1
	return payload[:end], payload[end:]
}
