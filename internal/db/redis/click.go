package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/querymem/internal/db"
)

// clickScript folds one click into a record hash in a single atomic step:
// the counter increment and the list append cannot be observed separately,
// so concurrent clicks never lose updates.
var clickScript = rueidis.NewLuaScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
local cur = redis.call('HGET', KEYS[1], ARGV[2])
if cur == false or cur == '' then
  redis.call('HSET', KEYS[1], ARGV[2], ARGV[3])
else
  redis.call('HSET', KEYS[1], ARGV[2], cur .. ARGV[4] .. ARGV[3])
end
return 1
`)

// ClickUpdate applies a click delta to the record at key.
// Returns false when the key does not exist.
func (s *Store) ClickUpdate(ctx context.Context, key string, u db.ClickDelta) (bool, error) {
	if u.CountField == "" || u.ListField == "" {
		return false, fmt.Errorf("click delta fields are required")
	}
	if u.ResultID == "" {
		return false, fmt.Errorf("result id is required")
	}

	res := clickScript.Exec(ctx, s.client,
		[]string{key},
		[]string{u.CountField, u.ListField, u.ResultID, u.Separator},
	)
	n, err := res.AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpEval, Err: err}
	}
	return n == 1, nil
}
