package database

import (
	client "opsboard/internal/database/client"
	fluentdRepo "opsboard/internal/database/fluentd/repository"
	mongoRepo "opsboard/internal/database/mongodb/repository"
	redisRepo "opsboard/internal/database/redis/repository"

	"github.com/google/wire"
)

// ProviderSet 定義所有 DB Client 與 repository 的依賴
var ProviderSet = wire.NewSet(
	client.NewMongoClient,
	client.NewRedisClient,
	client.NewFluentdClient,
	mongoRepo.ProviderSet,
	redisRepo.ProviderSet,
	fluentdRepo.ProviderSet,
)
