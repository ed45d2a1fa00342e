// services/redis_feed.go - ChangeFeed over Redis pub/sub
package services

import (
	"context"

	"gfgchapter/config"

	"github.com/go-redis/redis/v8"
)

// RedisFeed shares change signals between replicas through PUBLISH/SUBSCRIBE.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisFeed(client *redis.Client, prefix string) *RedisFeed {
	return &RedisFeed{client: client, prefix: prefix}
}

func (f *RedisFeed) channel(topic string) string {
	return f.prefix + "feed:" + topic
}

func (f *RedisFeed) Publish(ctx context.Context, topic string) error {
	return f.client.Publish(ctx, f.channel(topic), "changed").Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (<-chan struct{}, error) {
	ps := f.client.Subscribe(ctx, f.channel(topic))
	// wait for the subscription confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
