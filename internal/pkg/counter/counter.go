// internal/pkg/counter/counter.go
package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	Received  = "messages_received"
	Processed = "messages_processed"
	Failed    = "messages_failed"
	Ignored   = "messages_ignored"
)

// Names lists the relay counters in display order.
var Names = []string{Received, Processed, Failed, Ignored}

// Stats keeps relay counters in Redis so they survive restarts and are
// shared by every relay replica.
type Stats struct {
	client *redis.Client
	prefix string
}

func NewStats(client *redis.Client, prefix string) *Stats {
	return &Stats{client: client, prefix: prefix}
}

func (s *Stats) key(name string) string {
	return fmt.Sprintf("%s:stats:%s", s.prefix, name)
}

// Incr bumps a counter by one.
func (s *Stats) Incr(ctx context.Context, name string) error {
	if err := s.client.Incr(ctx, s.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to increment %s: %w", name, err)
	}
	return nil
}

// Snapshot reads every counter. Missing counters read as zero.
func (s *Stats) Snapshot(ctx context.Context) (map[string]int64, error) {
	keys := make([]string, len(Names))
	for i, n := range Names {
		keys[i] = s.key(n)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	out := make(map[string]int64, len(Names))
	for i, n := range Names {
		out[n] = toInt64(vals[i])
	}
	return out, nil
}

func toInt64(v interface{}) int64 {
	str, ok := v.(string)
	if !ok {
		return 0
	}
	var n int64
	fmt.Sscan(str, &n)
	return n
}

// hitSource counts a hit and starts the window in one step. The expiry is
// also restored on any key found without one.
const hitSource = `
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`

var hitScript = redis.NewScript(hitSource)

// RateLimiter is a fixed-window limiter keyed by an arbitrary subject.
type RateLimiter struct {
	client redis.Scripter
	prefix string
	max    int64
	window time.Duration
}

func NewRateLimiter(client redis.Scripter, prefix string, max int64, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, max: max, window: window}
}

// Allow counts one hit for subject and reports whether it is within the limit.
func (r *RateLimiter) Allow(ctx context.Context, subject string) (bool, error) {
	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, subject)

	count, err := hitScript.Run(ctx, r.client, []string{key}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	return count <= r.max, nil
}
