//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is one accepted byte-stream connection.
// Read returning (0, nil) means the peer closed its side.
type Conn interface {
	Handle() domain.Handle
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Listener is an already bound and listening socket.
type Listener interface {
	Handle() domain.Handle
	Accept() (Conn, error)
	Close() error
}

// Multiplexer blocks until some handles are ready to read or the timeout elapses.
// A negative timeout waits forever.
type Multiplexer interface {
	Wait(handles []domain.Handle, timeout time.Duration) ([]domain.Handle, error)
	Remove(handle domain.Handle)
	Close() error
}

type IHistoryRepository interface {
	StoreRecord(record domain.Record) error
	GetRecords(room string, limit int) ([]domain.Record, error)
}

type ICensor interface {
	Censor(original string) (string, []string)
}
