package applications

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	velocityWindow = 60 * time.Second
	velocityKeyTTL = 70 * time.Second
	velocityKeyFmt = "velocity:%d"
)

// VelocityCounter tracks registration bursts in Redis. Each submission bumps
// a per-second counter; Count sums the counters covering the trailing minute.
type VelocityCounter struct {
	client redis.Cmdable
}

// NewVelocityCounter creates a Redis-backed registration rate counter
func NewVelocityCounter(client redis.Cmdable) *VelocityCounter {
	return &VelocityCounter{client: client}
}

var _ RecentCounter = (*VelocityCounter)(nil)

// Record notes one registration at the given instant
func (v *VelocityCounter) Record(ctx context.Context, at time.Time) error {
	key := fmt.Sprintf(velocityKeyFmt, at.Unix())

	pipe := v.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, velocityKeyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Count returns how many registrations happened in the minute before now
func (v *VelocityCounter) Count(ctx context.Context, now time.Time) (int, error) {
	seconds := int(velocityWindow / time.Second)
	keys := make([]string, 0, seconds)
	for i := 0; i < seconds; i++ {
		keys = append(keys, fmt.Sprintf(velocityKeyFmt, now.Unix()-int64(i)))
	}

	values, err := v.client.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}

	total := 0
	for _, val := range values {
		if val == nil {
			continue
		}
		s, ok := val.(string)
		if !ok {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			total += n
		}
	}
	return total, nil
}
