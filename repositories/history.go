package repositories

import (
	"chat-relay/domain"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldID protowire.Number = iota + 1
	fieldRoom
	fieldAuthor
	fieldPayload
	fieldAt
)

type HistoryRepository struct {
	db    *badger.DB
	log   *slog.Logger
	limit *int
}

// NewHistoryRepository stores records in db. limit, when set, is how many records
// each room retains: older ones are dropped on store, and no lookup returns more.
func NewHistoryRepository(db *badger.DB, log *slog.Logger, limit *int) HistoryRepository {
	return HistoryRepository{db: db, log: log, limit: limit}
}

// OpenInMemory opens a badger instance that never touches the disk.
func OpenInMemory() (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
}

// StoreRecord persists a record in BadgerDB.
// The key is formatted as "msg:{room}:{timestamp_padded}:{uuid}" so records of
// a room sort chronologically, the uuid telling apart records of the same nanosecond.
// When the repository has a limit, the oldest records of the room past it are deleted.
func (h HistoryRepository) StoreRecord(record domain.Record) error {
	return h.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(record), encodeRecord(record)); err != nil {
			return err
		}
		if h.limit == nil || *h.limit <= 0 {
			return nil
		}
		expired := h.expiredKeys(txn, record.Room, *h.limit)
		for _, key := range expired {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		if len(expired) > 0 {
			h.log.Debug(fmt.Sprintf("%d records expired", len(expired)), "room", record.Room)
		}
		return nil
	})
}

// expiredKeys lists the keys of a room older than its newest keep records.
// The iterator is closed before the caller deletes them.
func (h HistoryRepository) expiredKeys(txn *badger.Txn, room string, keep int) [][]byte {
	prefix := roomPrefix(room)
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	var keys [][]byte
	seen := 0
	for it.Seek(newestKey(prefix)); it.ValidForPrefix(prefix); it.Next() {
		seen++
		if seen > keep {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
	}
	return keys
}

// GetRecords returns at most limit of the most recent records of a room,
// oldest first. A limit of zero or less means no limit.
func (h HistoryRepository) GetRecords(room string, limit int) ([]domain.Record, error) {
	if h.limit != nil && (limit <= 0 || limit > *h.limit) {
		limit = *h.limit
	}

	var values [][]byte
	err := h.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(room)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(newestKey(prefix)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit {
				h.log.Debug(fmt.Sprintf("Maximum of %d records reached", limit))
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]domain.Record, 0, len(values))
	for _, value := range values {
		record, err := decodeRecord(value)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return lo.Reverse(records), nil
}

func roomPrefix(room string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

// newestKey sorts past every key of the prefix, a reverse iteration starts there.
func newestKey(prefix []byte) []byte {
	return append(append([]byte(nil), prefix...), "9999999999999999999"...)
}

func recordKey(record domain.Record) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", record.Room, record.At.UnixNano(), record.ID))
}

func encodeRecord(record domain.Record) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendBytes(b, record.ID[:])
	b = protowire.AppendTag(b, fieldRoom, protowire.BytesType)
	b = protowire.AppendString(b, record.Room)
	b = protowire.AppendTag(b, fieldAuthor, protowire.BytesType)
	b = protowire.AppendString(b, record.Author)
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, record.Payload)
	b = protowire.AppendTag(b, fieldAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(record.At.UnixNano()))
	return b
}

func decodeRecord(b []byte) (domain.Record, error) {
	var record domain.Record
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return domain.Record{}, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldAt && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return domain.Record{}, protowire.ParseError(m)
			}
			record.At = time.Unix(0, int64(v)).UTC()
			n = m
		case typ == protowire.BytesType && num >= fieldID && num <= fieldPayload:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return domain.Record{}, protowire.ParseError(m)
			}
			if err := setField(&record, num, v); err != nil {
				return domain.Record{}, err
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return domain.Record{}, protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return record, nil
}

func setField(record *domain.Record, num protowire.Number, v []byte) error {
	switch num {
	case fieldID:
		id, err := uuid.FromBytes(v)
		if err != nil {
			return err
		}
		record.ID = id
	case fieldRoom:
		record.Room = string(v)
	case fieldAuthor:
		record.Author = string(v)
	case fieldPayload:
		record.Payload = append([]byte(nil), v...)
	}
	return nil
}
