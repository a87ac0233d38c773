package runtime

import (
	"bytes"
	"chat-relay/domain"
	errs "chat-relay/errors"
	"errors"
	"io"
	"time"
)

// Framer turns one read into one message. A frame is whatever a single read
// returns, up to frameSize bytes: longer messages are truncated and never
// reassembled across reads.
type Framer struct {
	frameSize    int
	quitToken    []byte
	historyToken []byte
	buf          []byte
}

func NewFramer(frameSize int, quitToken, historyToken string) *Framer {
	return &Framer{
		frameSize:    frameSize,
		quitToken:    []byte(quitToken),
		historyToken: []byte(historyToken),
		buf:          make([]byte, frameSize),
	}
}

// ReadMessage reads one frame from the guest.
// The guest's display name is learnt from the first frame carrying a "[nick]" field.
func (f *Framer) ReadMessage(guest *domain.GuestConnection) domain.Message {
	msg := domain.Message{
		Sender: guest.Handle,
		Name:   guest.DisplayName(),
		ReadAt: time.Now().UTC(),
	}

	n, err := guest.Conn.Read(f.buf)
	switch {
	case errors.Is(err, errs.ErrWouldBlock):
		msg.Kind = domain.KindNone
		return msg
	case errors.Is(err, io.EOF):
		msg.Kind = domain.KindEndOfStream
		return msg
	case err != nil:
		msg.Kind = domain.KindReadError
		msg.Err = err
		return msg
	case n == 0:
		msg.Kind = domain.KindEndOfStream
		return msg
	}

	frame := f.buf[:n]
	control := bytes.TrimRight(frame, "\r\n")
	switch {
	case bytes.Equal(control, f.quitToken):
		msg.Kind = domain.KindQuit
		return msg
	case len(f.historyToken) > 0 && bytes.Equal(control, f.historyToken):
		msg.Kind = domain.KindHistory
		return msg
	}

	if guest.Name == "" {
		if name, ok := domain.NameFrom(frame); ok {
			guest.Name = name
		}
	}
	msg.Kind = domain.KindText
	msg.Name = guest.DisplayName()
	msg.Payload = append([]byte(nil), frame...)
	msg.Truncated = n == f.frameSize
	return msg
}
