package redis

import (
	"ProctorGolang/internal/entity"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IRedis fans scored events out to live dashboards.
type IRedis interface {
	PublishEvent(ctx context.Context, event entity.ProctorEvent) error
	Subscribe(ctx context.Context) <-chan entity.ProctorEvent
	Close() error
}

type redisClient struct {
	client  *redis.Client
	channel string
}

// New connects to REDIS_ADDRESS. It returns nil when no address is configured
// so callers can treat publishing as optional.
func New() IRedis {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		logrus.Info("REDIS_ADDRESS not set, event publishing disabled")
		return nil
	}

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return NewFromClient(client, os.Getenv("REDIS_EVENT_CHANNEL"))
}

func NewFromClient(client *redis.Client, channel string) IRedis {
	if channel == "" {
		channel = "proctor:events"
	}
	return &redisClient{client: client, channel: channel}
}

func (r *redisClient) PublishEvent(ctx context.Context, event entity.ProctorEvent) error {
	body, err := jsoniter.Marshal(event)
	if err != nil {
		return err
	}

	logrus.Debug(fmt.Sprintf("Publishing event %d (%s) to %s", event.ID, event.EventType, r.channel))
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error publishing event %d: %v", event.ID, err))
		return err
	}
	return nil
}

// Subscribe streams events from the channel until ctx is done. Messages that
// are not events are skipped.
func (r *redisClient) Subscribe(ctx context.Context) <-chan entity.ProctorEvent {
	out := make(chan entity.ProctorEvent)
	sub := r.client.Subscribe(ctx, r.channel)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event entity.ProctorEvent
				if err := jsoniter.UnmarshalFromString(msg.Payload, &event); err != nil {
					logrus.Debug(fmt.Sprintf("Skipping non-event message on %s: %v", r.channel, err))
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

	return out
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
