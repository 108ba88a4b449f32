package availability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps one hash per (company, date):
//
//	_order           comma separated window names
//	<name>:label     spoken label
//	<name>:capacity  int
//	<name>:booked    int
type RedisLedger struct {
	rdb *redis.Client
}

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb}
}

func redisDayKey(companyID, date string) string {
	return fmt.Sprintf("availability:%s:%s", companyID, date)
}

var ensureDayScript = redis.NewScript(`
-- KEYS[1] = day hash
-- ARGV[1] = window order
-- ARGV[2..] = name, label, capacity triples
--
-- Returns:
--  1 if created
--  0 if the day already existed
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], '_order', ARGV[1])
for i = 2, #ARGV, 3 do
  redis.call('HSET', KEYS[1],
    ARGV[i] .. ':label', ARGV[i + 1],
    ARGV[i] .. ':capacity', ARGV[i + 2],
    ARGV[i] .. ':booked', 0)
end
return 1
`)

var reserveScript = redis.NewScript(`
-- KEYS[1] = day hash
-- ARGV[1] = window name
--
-- Returns:
--  new booked count on success
--  -1 if the window does not exist
--  -2 if the window is full
local capacity = redis.call('HGET', KEYS[1], ARGV[1] .. ':capacity')
if not capacity then
  return -1
end
local booked = tonumber(redis.call('HGET', KEYS[1], ARGV[1] .. ':booked') or '0')
if booked >= tonumber(capacity) then
  return -2
end
return redis.call('HINCRBY', KEYS[1], ARGV[1] .. ':booked', 1)
`)

func (l *RedisLedger) EnsureDay(ctx context.Context, companyID, date string, tmpl []WindowTemplate) error {
	if l.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	names := make([]string, 0, len(tmpl))
	args := make([]any, 0, 1+3*len(tmpl))
	for _, w := range tmpl {
		names = append(names, w.Name)
	}
	args = append(args, strings.Join(names, ","))
	for _, w := range tmpl {
		args = append(args, w.Name, w.Label, w.Capacity)
	}
	return ensureDayScript.Run(ctx, l.rdb, []string{redisDayKey(companyID, date)}, args...).Err()
}

func (l *RedisLedger) Reserve(ctx context.Context, companyID, date, window string) (int, error) {
	if l.rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	res, err := reserveScript.Run(ctx, l.rdb, []string{redisDayKey(companyID, date)}, window).Int()
	if err != nil {
		return 0, err
	}
	switch res {
	case -1:
		return 0, ErrWindowNotFound
	case -2:
		return 0, ErrWindowFull
	}
	return res, nil
}

func (l *RedisLedger) GetDay(ctx context.Context, companyID, date string) (Day, error) {
	if l.rdb == nil {
		return Day{}, fmt.Errorf("redis client is nil")
	}
	h, err := l.rdb.HGetAll(ctx, redisDayKey(companyID, date)).Result()
	if err != nil {
		return Day{}, err
	}
	order, ok := h["_order"]
	if !ok {
		return Day{}, ErrNotFound
	}
	d := Day{CompanyID: companyID, Date: date}
	for _, name := range strings.Split(order, ",") {
		if name == "" {
			continue
		}
		capacity, err := strconv.Atoi(h[name+":capacity"])
		if err != nil {
			return Day{}, errors.New("corrupt availability hash: capacity for " + name)
		}
		booked, _ := strconv.Atoi(h[name+":booked"])
		d.Windows = append(d.Windows, Window{
			Name:     name,
			Label:    h[name+":label"],
			Capacity: capacity,
			Booked:   booked,
		})
	}
	return d, nil
}
