package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage_Disconnects(t *testing.T) {
	req := require.New(t)

	req.True(Message{Kind: KindQuit}.Disconnects())
	req.True(Message{Kind: KindEndOfStream}.Disconnects())
	req.True(Message{Kind: KindReadError}.Disconnects())
	req.False(Message{Kind: KindText}.Disconnects())
	req.False(Message{Kind: KindHistory}.Disconnects())
	req.False(Message{Kind: KindNone}.Disconnects())
}

func TestMessage_WithPayload(t *testing.T) {
	req := require.New(t)
	original := Message{Kind: KindText, Name: "alice", Payload: []byte("[alice] darn")}

	// When the payload grows past the frame size
	payload := []byte("[alice] ****!!")
	msg := original.WithPayload(payload, 12)

	// Then it is cut and flagged, the original untouched
	req.Equal("[alice] ****", string(msg.Payload))
	req.True(msg.Truncated)
	req.Equal("[alice] darn", string(original.Payload))
	req.False(original.Truncated)

	// And it does not alias the caller's buffer
	payload[0] = 'X'
	req.Equal(byte('['), msg.Payload[0])
}

func TestKind_String(t *testing.T) {
	req := require.New(t)

	req.Equal("text", KindText.String())
	req.Equal("quit", KindQuit.String())
	req.Equal("history", KindHistory.String())
	req.Equal("end_of_stream", KindEndOfStream.String())
	req.Equal("read_error", KindReadError.String())
	req.Equal("none", KindNone.String())
	req.Equal("shutting_down", ShuttingDown.String())
	req.Equal("running", Running.String())
}
