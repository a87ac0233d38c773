// Package runtime drives a chat room: one control loop multiplexes the listener
// and every guest connection, frames reads and relays text to the other guests.
// It orchestrates the system without containing transport details.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	errs "chat-relay/errors"
	"chat-relay/observability"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// acceptBatch bounds how many pending connections one pass accepts,
// so a connection storm cannot starve connected guests.
const acceptBatch = 64

type Options struct {
	Name          string
	Capacity      int
	FrameSize     int
	QuitToken     string
	HistoryToken  string
	HistoryLimit  int
	WaitTimeout   time.Duration
	IdleTimeout   time.Duration
	WriteAttempts int
}

// Room owns the listening handle and the registry of its guests.
// Everything happens on the goroutine calling Run: the readiness wait is the
// only place it blocks.
type Room struct {
	log      *slog.Logger
	options  Options
	listener contract.Listener
	mux      contract.Multiplexer
	registry *Registry
	framer   *Framer
	relay    *Relay
	metrics  *observability.RoomMetrics
	history  contract.IHistoryRepository
	censor   contract.ICensor

	state      domain.RoomState
	idleSince  time.Time
	idleLogged bool
}

func NewRoom(log *slog.Logger, listener contract.Listener, mux contract.Multiplexer,
	metrics *observability.RoomMetrics, options Options) *Room {
	log = log.With("room", options.Name)
	return &Room{
		log:      log,
		options:  options,
		listener: listener,
		mux:      mux,
		registry: NewRegistry(log, options.Capacity, mux.Remove),
		framer:   NewFramer(options.FrameSize, options.QuitToken, options.HistoryToken),
		relay:    NewRelay(log, metrics, options.WriteAttempts),
		metrics:  metrics,
		state:    domain.Running,
	}
}

// WithHistory records relayed frames and answers history requests.
func (r *Room) WithHistory(history contract.IHistoryRepository) *Room {
	r.history = history
	return r
}

// WithCensor masks forbidden words in relayed text.
func (r *Room) WithCensor(censor contract.ICensor) *Room {
	r.censor = censor
	return r
}

func (r *Room) State() domain.RoomState {
	return r.state
}

// Run drives the room until ctx is canceled or the multiplexer fails.
// A stop request is observed within one wait timeout. Either way every guest
// handle and the listener are closed before Run returns; only a multiplexer
// failure is reported as an error.
func (r *Room) Run(ctx context.Context) error {
	listener := r.listener.Handle()
	r.log.Info("Room is ready", "capacity", r.options.Capacity,
		"frame_size", r.options.FrameSize, "wait_timeout", r.options.WaitTimeout)

	for {
		if ctx.Err() != nil {
			r.shutdown("stop requested")
			return nil
		}

		handles := append([]domain.Handle{listener}, r.registry.Handles()...)
		ready, err := r.mux.Wait(handles, r.options.WaitTimeout)
		r.metrics.Waited()
		if err != nil {
			r.log.Error("Readiness multiplexer failed", "error", err)
			r.shutdown("multiplexer failure")
			if errors.Is(err, errs.ErrMultiplex) {
				return err
			}
			return fmt.Errorf("%w: %w", errs.ErrMultiplex, err)
		}

		r.pass(ready, listener)
		r.maintain(time.Now())
	}
}

// pass serves the ready guests first and accepts last, so a descriptor freed
// during the pass is never mistaken for a connection accepted in it.
func (r *Room) pass(ready []domain.Handle, listener domain.Handle) {
	acceptable := false
	for _, handle := range ready {
		if handle == listener {
			acceptable = true
			continue
		}
		r.serve(handle)
	}
	if acceptable {
		r.accept()
	}
}

func (r *Room) serve(handle domain.Handle) {
	guest, ok := r.registry.Get(handle)
	if !ok || !guest.Alive {
		// Left or evicted earlier in this pass.
		return
	}

	msg := r.framer.ReadMessage(guest)
	r.metrics.FrameRead(msg.Kind)

	switch {
	case msg.Disconnects():
		if msg.Err != nil {
			r.log.Warn("Read from guest failed", "handle", handle, "guest", guest.DisplayName(), "error", msg.Err)
		}
		r.leave(guest, msg.Kind.String())
	case msg.Kind == domain.KindHistory:
		r.replay(guest)
	case msg.Kind == domain.KindText:
		r.broadcast(msg)
	}
}

func (r *Room) accept() {
	for range acceptBatch {
		conn, err := r.listener.Accept()
		if errors.Is(err, errs.ErrWouldBlock) {
			return
		}
		if err != nil {
			r.log.Warn("Accept failed", "error", err)
			return
		}

		guest, err := r.registry.Register(conn)
		if errors.Is(err, errs.ErrCapacityExceeded) {
			_ = conn.Close()
			r.metrics.Rejected()
			r.log.Warn("Room is full, connection rejected", "handle", conn.Handle(), "capacity", r.registry.Capacity())
			continue
		}
		r.metrics.Accepted()
		r.log.Info("Guest joined", "handle", guest.Handle, "guests", r.registry.Len())
	}
}

func (r *Room) leave(guest *domain.GuestConnection, reason string) {
	name := guest.DisplayName()
	if !r.registry.Unregister(guest.Handle) {
		return
	}
	r.metrics.Left(reason)
	r.log.Info("Guest left", "handle", guest.Handle, "guest", name, "reason", reason, "guests", r.registry.Len())
}

func (r *Room) broadcast(msg domain.Message) {
	msg = r.moderate(msg)
	if msg.Truncated {
		r.metrics.Truncated()
		r.log.Debug("Frame filled the buffer, it may have been truncated", "from", msg.Name)
	}
	r.record(msg)

	for _, handle := range r.relay.Deliver(msg.Sender, msg, r.registry) {
		if guest, ok := r.registry.Get(handle); ok {
			r.leave(guest, "write_error")
		}
	}
}

func (r *Room) moderate(msg domain.Message) domain.Message {
	if r.censor == nil {
		return msg
	}
	prefix, body := domain.SplitName(msg.Payload)
	censored, words := r.censor.Censor(string(body))
	if len(words) == 0 {
		return msg
	}
	r.metrics.Censored(len(words))
	payload := append(append([]byte(nil), prefix...), censored...)
	return msg.WithPayload(payload, r.options.FrameSize)
}

func (r *Room) record(msg domain.Message) {
	if r.history == nil {
		return
	}
	if err := r.history.StoreRecord(domain.NewRecord(r.options.Name, msg)); err != nil {
		r.log.Warn("History record failed", "from", msg.Name, "error", err)
	}
}

// replay writes the recent history to the requesting guest only.
func (r *Room) replay(guest *domain.GuestConnection) {
	if r.history == nil {
		r.log.Debug("History requested but not enabled", "guest", guest.DisplayName())
		return
	}
	records, err := r.history.GetRecords(r.options.Name, r.options.HistoryLimit)
	if err != nil {
		r.log.Warn("History lookup failed", "guest", guest.DisplayName(), "error", err)
		return
	}
	for _, record := range records {
		if err = r.relay.Send(guest, record.Payload); err != nil {
			r.log.Warn("History delivery failed", "handle", guest.Handle, "guest", guest.DisplayName(), "error", err)
			r.leave(guest, "write_error")
			return
		}
	}
	r.metrics.HistoryServed(len(records))
}

// maintain runs after every wait, including timeouts.
func (r *Room) maintain(now time.Time) {
	r.metrics.SetGuests(r.registry.Len())

	if r.registry.Len() > 0 {
		r.idleSince = time.Time{}
		r.idleLogged = false
		return
	}
	if r.idleSince.IsZero() {
		r.idleSince = now
		return
	}
	if r.options.IdleTimeout > 0 && !r.idleLogged && now.Sub(r.idleSince) >= r.options.IdleTimeout {
		r.idleLogged = true
		r.log.Info("Room is idle", "since", r.idleSince.UTC().Format(time.TimeOnly))
	}
}

func (r *Room) shutdown(reason string) {
	r.state = domain.ShuttingDown
	closed := r.registry.Close()
	if err := r.listener.Close(); err != nil {
		r.log.Debug("Error while closing listener", "error", err)
	}
	if err := r.mux.Close(); err != nil {
		r.log.Debug("Error while closing multiplexer", "error", err)
	}
	r.metrics.SetGuests(0)
	r.log.Info("Room closed", "reason", reason, "guests_closed", closed)
}
