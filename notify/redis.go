package notify

import (
	"context"

	"Gin_postgres_redis_asset_lending/lending"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "lending:events"

// RedisNotifier publishes lifecycle events as JSON on a Redis channel.
// Delivery is best effort: PUBLISH to a channel nobody listens on is not an error.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
}

var _ lending.Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(rdb *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, ev lending.Event) error {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(ev)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, b).Err()
}
