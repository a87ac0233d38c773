package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	errs "chat-relay/errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Registry holds the live guest connections of one room.
// It is owned by the room control loop and is not safe for concurrent use:
// a single writer replaces locking.
type Registry struct {
	log      *slog.Logger
	capacity int
	guests   map[domain.Handle]*domain.GuestConnection
	release  func(domain.Handle)
}

// NewRegistry creates a registry accepting at most capacity guests.
// release, when set, is called with a handle right before it is closed.
func NewRegistry(log *slog.Logger, capacity int, release func(domain.Handle)) *Registry {
	return &Registry{
		log:      log,
		capacity: capacity,
		guests:   make(map[domain.Handle]*domain.GuestConnection),
		release:  release,
	}
}

// Register adds a newly accepted connection.
// It fails with ErrCapacityExceeded when the room is full; the caller rejects the connection.
func (r *Registry) Register(conn contract.Conn) (*domain.GuestConnection, error) {
	if len(r.guests) >= r.capacity {
		return nil, fmt.Errorf("%w: %d guests", errs.ErrCapacityExceeded, r.capacity)
	}
	handle := conn.Handle()
	guest := domain.NewGuestConnection(handle, conn, time.Now().UTC())
	r.guests[handle] = guest
	return guest, nil
}

// Unregister removes and closes a handle.
// Removing an absent handle is a no-op, so every disconnect path may call it.
// It reports whether the handle was present.
func (r *Registry) Unregister(handle domain.Handle) bool {
	guest, ok := r.guests[handle]
	if !ok {
		return false
	}
	delete(r.guests, handle)
	guest.Alive = false

	if r.release != nil {
		r.release(handle)
	}
	if err := guest.Conn.Close(); err != nil {
		r.log.Debug("Error while closing guest connection", "handle", handle, "error", err)
	}
	return true
}

// Iterate yields the registered guests ordered by handle.
// The set is captured when Iterate is called, so unregistering while
// ranging over it never skips or repeats a guest.
func (r *Registry) Iterate() iter.Seq[*domain.GuestConnection] {
	snapshot := r.sorted()
	return func(yield func(*domain.GuestConnection) bool) {
		for _, guest := range snapshot {
			if !yield(guest) {
				return
			}
		}
	}
}

func (r *Registry) Contains(handle domain.Handle) bool {
	_, ok := r.guests[handle]
	return ok
}

func (r *Registry) Get(handle domain.Handle) (*domain.GuestConnection, bool) {
	guest, ok := r.guests[handle]
	return guest, ok
}

// Handles returns the registered handles in ascending order.
func (r *Registry) Handles() []domain.Handle {
	handles := lo.Keys(r.guests)
	slices.Sort(handles)
	return handles
}

func (r *Registry) Len() int {
	return len(r.guests)
}

func (r *Registry) Capacity() int {
	return r.capacity
}

// Close unregisters every guest and returns how many were closed.
func (r *Registry) Close() int {
	handles := r.Handles()
	for _, handle := range handles {
		r.Unregister(handle)
	}
	return len(handles)
}

func (r *Registry) sorted() []*domain.GuestConnection {
	guests := lo.Values(r.guests)
	slices.SortFunc(guests, func(a, b *domain.GuestConnection) int {
		return int(a.Handle) - int(b.Handle)
	})
	return guests
}
