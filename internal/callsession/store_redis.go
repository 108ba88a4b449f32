package callsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hvac-backoffice/internal/ivr"

	"github.com/redis/go-redis/v9"
)

const defaultExpiryIndexKey = "sessions:expiry"

// RedisStore shares sessions across API instances. Each session is a JSON string
// whose key TTL is ExpiresAt plus a grace period; a sorted set indexes ExpiresAt so
// the sweeper can find abandoned calls before the key disappears.
type RedisStore struct {
	rdb      *redis.Client
	grace    time.Duration
	indexKey string
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewRedisStore(rdb *redis.Client, grace time.Duration) *RedisStore {
	if grace <= 0 {
		grace = 5 * time.Minute
	}
	return &RedisStore{rdb: rdb, grace: grace, indexKey: defaultExpiryIndexKey, clock: time.Now}
}

func redisKey(phone, callID string) string {
	return fmt.Sprintf("session:%s:%s", phone, callID)
}

func (r *RedisStore) Get(ctx context.Context, phone, callID string) (ivr.Session, error) {
	if err := validateKey(phone, callID); err != nil {
		return ivr.Session{}, err
	}
	raw, err := r.rdb.Get(ctx, redisKey(phone, callID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ivr.Session{}, ErrNotFound
		}
		return ivr.Session{}, err
	}
	var s ivr.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return ivr.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, s ivr.Session) error {
	if err := validateKey(s.Phone, s.CallID); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := s.ExpiresAt.Sub(r.clock()) + r.grace
	if ttl < time.Second {
		ttl = time.Second
	}
	key := redisKey(s.Phone, s.CallID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, raw, ttl)
		p.ZAdd(ctx, r.indexKey, redis.Z{Score: float64(s.ExpiresAt.UnixMilli()), Member: key})
		return nil
	})
	return err
}

func (r *RedisStore) Delete(ctx context.Context, phone, callID string) error {
	key := redisKey(phone, callID)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.ZRem(ctx, r.indexKey, key)
		return nil
	})
	return err
}

func (r *RedisStore) Expired(ctx context.Context, now time.Time, limit int) ([]ivr.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	keys, err := r.rdb.ZRangeByScore(ctx, r.indexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var out []ivr.Session
	var stale []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Key already evicted by TTL; drop it from the index.
			stale = append(stale, keys[i])
			continue
		}
		var s ivr.Session
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			stale = append(stale, keys[i])
			continue
		}
		out = append(out, s)
	}
	if len(stale) > 0 {
		if err := r.rdb.ZRem(ctx, r.indexKey, stale...).Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}
