package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Satwikmbadiger/EmoTutor/internal/model/chat"
)

const (
	recordKeyPrefix  = "emotutor:chat:"
	eventChanPrefix  = "emotutor:chat:events:"
	recordChangedMsg = "changed"
)

// RedisStore 基于 Redis 实现实时存储：记录保存在每个用户的 hash 中，
// 变更通过 pub/sub 通知订阅者重新查询并推送完整快照。
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Create 写入一条记录并广播变更事件。
func (s *RedisStore) Create(ctx context.Context, record chat.Record) (chat.Record, error) {
	if record.UID == "" {
		return chat.Record{}, ErrUIDRequired
	}

	record.ID = uuid.NewString()
	record.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(record)
	if err != nil {
		return chat.Record{}, fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := s.rdb.HSet(ctx, recordKeyPrefix+record.UID, record.ID, data).Err(); err != nil {
		return chat.Record{}, fmt.Errorf("failed to store record: %w", err)
	}

	s.publish(ctx, record.UID)
	return record, nil
}

// Delete 删除属于 uid 的单条记录。
func (s *RedisStore) Delete(ctx context.Context, uid, id string) error {
	if uid == "" {
		return ErrUIDRequired
	}

	removed, err := s.rdb.HDel(ctx, recordKeyPrefix+uid, id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if removed == 0 {
		return ErrRecordNotFound
	}

	s.publish(ctx, uid)
	return nil
}

// Clear 删除 uid 名下的所有记录，其他用户的数据不受影响。
func (s *RedisStore) Clear(ctx context.Context, uid string) (int, error) {
	if uid == "" {
		return 0, ErrUIDRequired
	}

	count, err := s.rdb.HLen(ctx, recordKeyPrefix+uid).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if err := s.rdb.Del(ctx, recordKeyPrefix+uid).Err(); err != nil {
		return 0, fmt.Errorf("failed to clear records: %w", err)
	}

	s.publish(ctx, uid)
	return int(count), nil
}

// Subscribe 打开按 uid 过滤、按创建时间倒序的实时查询。
func (s *RedisStore) Subscribe(ctx context.Context, uid string) (<-chan []chat.Record, func(), error) {
	if uid == "" {
		return nil, nil, ErrUIDRequired
	}

	pubsub := s.rdb.Subscribe(ctx, eventChanPrefix+uid)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := make(chan []chat.Record, 1)
	done := make(chan struct{})

	go func() {
		defer close(ch)

		s.pushSnapshot(ctx, uid, ch, done)

		events := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				s.pushSnapshot(ctx, uid, ch, done)
			}
		}
	}()

	cancel := func() {
		select {
		case <-done:
		default:
			close(done)
		}
		_ = pubsub.Close()
	}

	return ch, cancel, nil
}

// pushSnapshot queries the current record set and delivers it, replacing an
// undelivered older snapshot so consumers always observe the latest state.
func (s *RedisStore) pushSnapshot(ctx context.Context, uid string, ch chan []chat.Record, done <-chan struct{}) {
	snapshot, err := s.query(ctx, uid)
	if err != nil {
		log.Printf("[store] failed to query snapshot for uid=%s: %v", uid, err)
		return
	}

	for {
		select {
		case <-done:
			return
		case ch <- snapshot:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (s *RedisStore) query(ctx context.Context, uid string) ([]chat.Record, error) {
	values, err := s.rdb.HVals(ctx, recordKeyPrefix+uid).Result()
	if err != nil {
		return nil, err
	}

	records := make([]chat.Record, 0, len(values))
	for _, raw := range values {
		var record chat.Record
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			log.Printf("[store] skipping malformed record for uid=%s: %v", uid, err)
			continue
		}
		records = append(records, record)
	}

	sortNewestFirst(records)
	return records, nil
}

// publish is best-effort: a missed event only delays the next snapshot.
func (s *RedisStore) publish(ctx context.Context, uid string) {
	if err := s.rdb.Publish(ctx, eventChanPrefix+uid, recordChangedMsg).Err(); err != nil {
		log.Printf("[store] failed to publish change event for uid=%s: %v", uid, err)
	}
}
