package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"bakery_tracker/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	eventsChannel = "orders:events"
	listKeyPrefix = "orders:list:"
)

// list variants cached by the order service
var listKeys = []string{"all", "pending", "delivered"}

type Client struct {
	rdb      *redis.Client
	cacheTTL time.Duration
}

func Initialize(redisURL string, cacheTTL time.Duration) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb, cacheTTL: cacheTTL}, nil
}

// Live order feed
func (c *Client) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return c.rdb.Publish(ctx, eventsChannel, jsonData).Err()
}

// SubscribeOrderEvents streams decoded events until ctx is done.
// The returned channel is closed when the subscription ends.
func (c *Client) SubscribeOrderEvents(ctx context.Context) (<-chan models.OrderEvent, error) {
	pubsub := c.rdb.Subscribe(ctx, eventsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to order events: %w", err)
	}

	out := make(chan models.OrderEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event models.OrderEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("Warning: dropping malformed order event: %v", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Order list cache
func (c *Client) GetOrderList(ctx context.Context, key string) ([]models.Order, bool) {
	val, err := c.rdb.Get(ctx, listKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Warning: failed to read cached order list: %v", err)
		}
		return nil, false
	}

	var orders []models.Order
	if err := json.Unmarshal([]byte(val), &orders); err != nil {
		return nil, false
	}
	return orders, true
}

func (c *Client) SetOrderList(ctx context.Context, key string, orders []models.Order) error {
	jsonData, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("failed to marshal order list: %w", err)
	}
	return c.rdb.Set(ctx, listKeyPrefix+key, jsonData, c.cacheTTL).Err()
}

func (c *Client) InvalidateOrderLists(ctx context.Context) error {
	keys := make([]string, 0, len(listKeys))
	for _, k := range listKeys {
		keys = append(keys, listKeyPrefix+k)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
