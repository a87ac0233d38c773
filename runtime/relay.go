package runtime

import (
	"chat-relay/domain"
	errs "chat-relay/errors"
	"chat-relay/observability"
	"errors"
	"fmt"
	"log/slog"
)

// Relay delivers a frame to every registered guest but its sender.
//
// Delivery is best-effort: no acknowledgment, no retry across passes.
// A recipient whose write fails is marked dead and returned to the caller,
// the remaining recipients are still served.
type Relay struct {
	log           *slog.Logger
	metrics       *observability.RoomMetrics
	writeAttempts int
}

func NewRelay(log *slog.Logger, metrics *observability.RoomMetrics, writeAttempts int) *Relay {
	if writeAttempts < 1 {
		writeAttempts = 1
	}
	return &Relay{log: log, metrics: metrics, writeAttempts: writeAttempts}
}

// Deliver writes msg to all guests except sender, in handle order.
// It returns the handles whose delivery failed; they must be unregistered
// once the delivery pass is over.
func (r *Relay) Deliver(sender domain.Handle, msg domain.Message, registry *Registry) []domain.Handle {
	var failed []domain.Handle
	delivered := 0

	for guest := range registry.Iterate() {
		if guest.Handle == sender || !guest.Alive {
			continue
		}
		if err := r.Send(guest, msg.Payload); err != nil {
			r.log.Warn("Delivery to guest failed",
				"handle", guest.Handle, "guest", guest.DisplayName(), "from", msg.Name, "error", err)
			guest.Alive = false
			failed = append(failed, guest.Handle)
			continue
		}
		delivered++
	}

	r.metrics.Relayed(delivered, len(failed))
	r.log.Debug("Frame relayed", "from", msg.Name, "bytes", len(msg.Payload),
		"delivered", delivered, "failed", len(failed))
	return failed
}

// Send writes a whole frame to one guest. Short writes get follow-up attempts
// within the same pass; a frame still incomplete after writeAttempts fails.
func (r *Relay) Send(guest *domain.GuestConnection, frame []byte) error {
	written := 0
	for attempt := 0; attempt < r.writeAttempts && written < len(frame); attempt++ {
		n, err := guest.Conn.Write(frame[written:])
		if n > 0 {
			written += n
		}
		if err != nil && !errors.Is(err, errs.ErrWouldBlock) {
			if errors.Is(err, errs.ErrWriteFailed) {
				return err
			}
			return fmt.Errorf("%w: %w", errs.ErrWriteFailed, err)
		}
	}
	if written < len(frame) {
		return fmt.Errorf("%w: %d of %d bytes written", errs.ErrWriteFailed, written, len(frame))
	}
	return nil
}
