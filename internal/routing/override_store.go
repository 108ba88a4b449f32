package routing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryOverrideStore keeps overrides in process. Expired entries are dropped on read.
type MemoryOverrideStore struct {
	mu        sync.Mutex
	overrides map[string]Override
}

func NewMemoryOverrideStore() *MemoryOverrideStore {
	return &MemoryOverrideStore{overrides: map[string]Override{}}
}

func (s *MemoryOverrideStore) GetActiveOverride(_ context.Context, companyID string, now time.Time) (Override, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.overrides[companyID]
	if !ok {
		return Override{}, false, nil
	}
	if !o.ExpiresAt.After(now) {
		delete(s.overrides, companyID)
		return Override{}, false, nil
	}
	return o, true, nil
}

func (s *MemoryOverrideStore) SetOverride(_ context.Context, o Override, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[o.CompanyID] = o
	return nil
}

func (s *MemoryOverrideStore) ClearOverride(_ context.Context, companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, companyID)
	return nil
}

// RedisOverrideStore keeps one JSON override per company under oncall:{company_id},
// with the key TTL set to the override expiry.
type RedisOverrideStore struct {
	rdb *redis.Client
}

func NewRedisOverrideStore(rdb *redis.Client) *RedisOverrideStore {
	return &RedisOverrideStore{rdb: rdb}
}

func overrideKey(companyID string) string { return "oncall:{" + companyID + "}" }

func (s *RedisOverrideStore) GetActiveOverride(ctx context.Context, companyID string, now time.Time) (Override, bool, error) {
	raw, err := s.rdb.Get(ctx, overrideKey(companyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Override{}, false, nil
		}
		return Override{}, false, err
	}
	var o Override
	if err := json.Unmarshal(raw, &o); err != nil {
		return Override{}, false, err
	}
	if !o.ExpiresAt.After(now) {
		return Override{}, false, nil
	}
	return o, true, nil
}

func (s *RedisOverrideStore) SetOverride(ctx context.Context, o Override, now time.Time) error {
	ttl := o.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return ErrInvalidOverride
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, overrideKey(o.CompanyID), raw, ttl).Err()
}

func (s *RedisOverrideStore) ClearOverride(ctx context.Context, companyID string) error {
	return s.rdb.Del(ctx, overrideKey(companyID)).Err()
}
