package transcript

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPublishTimeout = 2 * time.Second

// RedisPublisher publishes every delivered entry as JSON on a Redis channel,
// so that observers outside the group can compare transcripts of different
// peers. A failed publish is logged; delivery itself never waits on Redis
// longer than redisPublishTimeout.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *log.Logger) *RedisPublisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// DialRedis connects to addr and checks the server answers.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (p *RedisPublisher) Deliver(e Entry) {
	b, err := json.Marshal(e)
	if err != nil {
		p.logger.Printf("encode entry %d: %v", e.Seq, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, b).Err(); err != nil {
		p.logger.Printf("publish entry %d to %s: %v", e.Seq, p.channel, err)
	}
}
