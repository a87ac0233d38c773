package runtime

import (
	"bytes"
	"chat-relay/domain"
	errs "chat-relay/errors"
	"chat-relay/observability"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

// recordingConn is an in-memory guest connection recording what the room writes to it.
type recordingConn struct {
	handle    domain.Handle
	inbox     []string
	written   bytes.Buffer
	writes    int
	chunk     int
	failRead  error
	failWrite error
	closed    bool
}

func newRecordingConn(handle domain.Handle) *recordingConn {
	return &recordingConn{handle: handle}
}

func (c *recordingConn) Handle() domain.Handle { return c.handle }

// Read returns the next scripted frame, then reports nothing buffered.
// failRead, when set, is returned instead.
func (c *recordingConn) Read(p []byte) (int, error) {
	if c.failRead != nil {
		return 0, c.failRead
	}
	if len(c.inbox) == 0 {
		return 0, errs.ErrWouldBlock
	}
	frame := c.inbox[0]
	c.inbox = c.inbox[1:]
	return copy(p, frame), nil
}

// Write accepts at most chunk bytes per call when chunk is set.
func (c *recordingConn) Write(p []byte) (int, error) {
	c.writes++
	if c.failWrite != nil {
		return 0, c.failWrite
	}
	if c.chunk > 0 && len(p) > c.chunk {
		p = p[:c.chunk]
	}
	return c.written.Write(p)
}

func (c *recordingConn) Close() error {
	c.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// metricValue sums every series of a room metric, whatever its labels.
func metricValue(t *testing.T, metrics *observability.RoomMetrics, name string) float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	total := 0.0
	for _, family := range families {
		if family.GetName() != observability.Namespace+"_"+name {
			continue
		}
		for _, m := range family.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}
