package service

import (
	"context"
	"time"

	commonredis "github.com/VNP-Solutions/vnp-scraper-backend-sub000/common/redis"
	"github.com/VNP-Solutions/vnp-scraper-backend-sub000/internal/domain"

	"github.com/go-redis/redis/v8"
)

const (
	ActivityGrantUpserted = "grant.upserted"
	ActivityGrantDeleted  = "grant.deleted"
)

// ActivityEvent 授权变更记录
type ActivityEvent struct {
	Action  string       `json:"action"`
	Grant   domain.Grant `json:"grant"`
	ActorID string       `json:"actor_id"`
	At      time.Time    `json:"at"`
}

// ActivityPublisher 授权变更的审计输出
type ActivityPublisher interface {
	Publish(ctx context.Context, event ActivityEvent) error
}

// RedisActivityPublisher 写入 Redis Stream（data=<json>, timestamp=<unix>）
type RedisActivityPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisActivityPublisher(client *redis.Client, stream string) *RedisActivityPublisher {
	return &RedisActivityPublisher{client: client, stream: stream}
}

var _ ActivityPublisher = (*RedisActivityPublisher)(nil)

func (p *RedisActivityPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	_, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, event)
	return err
}
