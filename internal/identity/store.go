package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown or expired.
	ErrSessionNotFound = errors.New("identity: session not found")
	// ErrSessionConflict is returned by Save when the stored session was
	// written by another request after sess was loaded.
	ErrSessionConflict = errors.New("identity: session modified concurrently")
)

// Store persists sessions between requests. Save succeeds only when the
// stored copy still carries sess.Version (or is absent) and then advances
// sess.Version.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	data    []byte
	version int64
	expires time.Time
}

// MemoryStore keeps sessions in process memory until their TTL lapses.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.ttl > 0 && s.now().After(entry.expires) {
		delete(s.entries, id)
		return nil, ErrSessionNotFound
	}
	var sess Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, fmt.Errorf("identity: decode session: %w", err)
	}
	return &sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if entry, ok := s.entries[sess.ID]; ok && (s.ttl <= 0 || !now.After(entry.expires)) && entry.version != sess.Version {
		return ErrSessionConflict
	}

	next := *sess
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("identity: encode session: %w", err)
	}
	s.entries[sess.ID] = memoryEntry{data: data, version: next.Version, expires: now.Add(s.ttl)}
	sess.Version = next.Version
	s.sweepLocked(now)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, id)
		}
	}
}

const sessionKeyPrefix = "homecare:session:"

// RedisStore keeps sessions in Redis so every site instance sees them.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("identity: redis client cannot be nil")
	}
	return &RedisStore{redis: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity: load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("identity: decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	key := sessionKeyPrefix + sess.ID
	next := *sess
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("identity: encode session: %w", err)
	}

	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var stored struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal(current, &stored); err == nil && stored.Version != sess.Version {
				return ErrSessionConflict
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrSessionConflict) || errors.Is(err, redis.TxFailedErr) {
		return ErrSessionConflict
	}
	if err != nil {
		return fmt.Errorf("identity: persist session: %w", err)
	}
	sess.Version = next.Version
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("identity: delete session: %w", err)
	}
	return nil
}
