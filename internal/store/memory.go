package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Satwikmbadiger/EmoTutor/internal/model/chat"
)

// MemoryStore implements Store in memory, suitable for running without Redis
// and for tests.
type MemoryStore struct {
	mu          sync.Mutex
	records     map[string][]chat.Record
	subscribers map[string]map[int]chan []chat.Record
	nextSubID   int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[string][]chat.Record),
		subscribers: make(map[string]map[int]chan []chat.Record),
	}
}

// Create assigns id and creation time, persists the record, and notifies uid
// subscribers.
func (s *MemoryStore) Create(_ context.Context, record chat.Record) (chat.Record, error) {
	if record.UID == "" {
		return chat.Record{}, ErrUIDRequired
	}

	record.ID = uuid.NewString()
	record.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.records[record.UID] = append(s.records[record.UID], record)
	s.notifyLocked(record.UID)
	s.mu.Unlock()

	return record, nil
}

// Delete removes one record belonging to uid.
func (s *MemoryStore) Delete(_ context.Context, uid, id string) error {
	if uid == "" {
		return ErrUIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.records[uid]
	for i, item := range items {
		if item.ID == id {
			s.records[uid] = append(items[:i:i], items[i+1:]...)
			s.notifyLocked(uid)
			return nil
		}
	}
	return ErrRecordNotFound
}

// Clear removes every record belonging to uid. Records of other identities
// are untouched.
func (s *MemoryStore) Clear(_ context.Context, uid string) (int, error) {
	if uid == "" {
		return 0, ErrUIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.records[uid])
	delete(s.records, uid)
	s.notifyLocked(uid)
	return removed, nil
}

// Subscribe opens a live query for uid. The current snapshot is delivered
// immediately; later mutations push replacements. Slow consumers only ever
// miss intermediate snapshots, never the latest one.
func (s *MemoryStore) Subscribe(ctx context.Context, uid string) (<-chan []chat.Record, func(), error) {
	if uid == "" {
		return nil, nil, ErrUIDRequired
	}

	ch := make(chan []chat.Record, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	if s.subscribers[uid] == nil {
		s.subscribers[uid] = make(map[int]chan []chat.Record)
	}
	s.subscribers[uid][id] = ch
	ch <- s.snapshotLocked(uid)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers[uid], id)
			s.mu.Unlock()
			close(ch)
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return ch, cancel, nil
}

// snapshotLocked must be called with mu held.
func (s *MemoryStore) snapshotLocked(uid string) []chat.Record {
	items := s.records[uid]
	out := make([]chat.Record, len(items))
	copy(out, items)
	sortNewestFirst(out)
	return out
}

// notifyLocked pushes the latest snapshot to every uid subscriber, replacing
// an undelivered older one.
func (s *MemoryStore) notifyLocked(uid string) {
	snapshot := s.snapshotLocked(uid)
	for _, ch := range s.subscribers[uid] {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
