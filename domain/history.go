package domain

import (
	"time"

	"github.com/google/uuid"
)

// Record is a relayed Text frame kept for history requests.
type Record struct {
	ID      uuid.UUID
	Room    string
	Author  string
	Payload []byte
	At      time.Time
}

func NewRecord(room string, msg Message) Record {
	return Record{
		ID:      uuid.New(),
		Room:    room,
		Author:  msg.Name,
		Payload: msg.Payload,
		At:      msg.ReadAt.UTC(),
	}
}
