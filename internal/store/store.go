// Package store mirrors the external real-time chat record store. Writes are
// serialized per record by the store itself; readers receive full snapshots
// (newest first) on every change, so no merge or diff logic exists on the
// client side.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/Satwikmbadiger/EmoTutor/internal/model/chat"
)

var (
	ErrUIDRequired    = errors.New("uid is required")
	ErrRecordNotFound = errors.New("record not found")
)

// Store persists chat records per identity and pushes live snapshots to
// subscribers.
type Store interface {
	// Create assigns an identifier and server-side creation time, then
	// persists the record.
	Create(ctx context.Context, record chat.Record) (chat.Record, error)
	// Delete removes one record belonging to uid.
	Delete(ctx context.Context, uid, id string) error
	// Clear removes every record belonging to uid and reports how many.
	Clear(ctx context.Context, uid string) (int, error)
	// Subscribe opens a live query filtered by uid, ordered newest first.
	// Each element on the channel is a full replacement snapshot. The
	// returned cancel function tears the subscription down and closes the
	// channel.
	Subscribe(ctx context.Context, uid string) (<-chan []chat.Record, func(), error)
}

// sortNewestFirst orders records by creation time descending, falling back to
// the identifier so equal timestamps still sort deterministically.
func sortNewestFirst(records []chat.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}
