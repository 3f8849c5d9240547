package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opsboard/config"
	"opsboard/internal/core"
	client "opsboard/internal/database/client"
	"opsboard/internal/telemetry"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("aggregation lock held")

// 只刪除自己持有的鎖，避免過期後誤刪他人重新取得的鎖
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type AggregationLockRepository struct {
	trace  *telemetry.Trace
	client *redis.Client
	ttl    time.Duration
}

func NewAggregationLockRepository(trace *telemetry.Trace, redisClient *client.RedisClient, conf *config.Configuration) *AggregationLockRepository {
	ttl := time.Duration(conf.Aggregation.LockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &AggregationLockRepository{trace: trace, client: redisClient.Client(), ttl: ttl}
}

// Acquire SET NX PX；Redis 未啟用時直接回傳空的 release
func (repository *AggregationLockRepository) Acquire(contextValue context.Context, kind core.AggregationKind, locationID string) (release func(context.Context) error, returnedError error) {
	if repository.client == nil {
		return func(context.Context) error { return nil }, nil
	}

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	redisKey := repository.buildKey(kind, locationID)
	token := uuid.NewString()
	acquired, setError := repository.client.SetNX(contextValue, redisKey, token, repository.ttl).Result()
	if setError != nil {
		return nil, fmt.Errorf("acquire %s: %w", redisKey, setError)
	}
	repository.trace.ApplyTraceAttributes(span, core.TraceAggregationPassMeta{Kind: string(kind), LocationID: locationID})
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, redisKey)
	}

	return func(releaseContext context.Context) error {
		return releaseScript.Run(releaseContext, repository.client, []string{redisKey}, token).Err()
	}, nil
}

func (repository *AggregationLockRepository) buildKey(kind core.AggregationKind, locationID string) string {
	if locationID == "" {
		locationID = "*"
	}
	return fmt.Sprintf("%s:%s:%s:%s", core.RedisKeyServerName, core.RedisKeyAggregationLock, kind, locationID)
}
