package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/leadflow-backend/internal/logger"
)

// WorkBus is a pub/sub wake channel for queue consumers. Publishing a lead
// id tells consumers "poll now instead of waiting out the ticker". Delivery
// is best-effort; the DB queue remains the source of truth.
type WorkBus interface {
	PublishWork(ctx context.Context, leadID uuid.UUID) error
	StartForwarder(ctx context.Context, onWork func(leadID uuid.UUID)) error
	Close() error
}

type workBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewWorkBus(log *logger.Logger) (WorkBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_WORK_CHANNEL"))
	if ch == "" {
		ch = "leadflow:work"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &workBus{
		log:     log.With("service", "RedisWorkBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *workBus) PublishWork(ctx context.Context, leadID uuid.UUID) error {
	if leadID == uuid.Nil {
		return nil
	}
	return b.rdb.Publish(ctx, b.channel, leadID.String()).Err()
}

func (b *workBus) StartForwarder(ctx context.Context, onWork func(leadID uuid.UUID)) error {
	if onWork == nil {
		return fmt.Errorf("onWork callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	go func() {
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
				leadID, err := uuid.Parse(strings.TrimSpace(msg.Payload))
				if err != nil {
					b.log.Warn("Work bus message was not a lead id", "payload", msg.Payload)
					continue
				}
				onWork(leadID)
			}
		}
	}()
	return nil
}

func (b *workBus) Close() error {
	return b.rdb.Close()
}
