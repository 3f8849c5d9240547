package service

import (
	"opsboard/internal/database/client"
	fluentdRepository "opsboard/internal/database/fluentd/repository"
	redisRepository "opsboard/internal/database/redis/repository"

	"github.com/google/wire"
)

var ProviderSet = wire.NewSet(
	NewAggregationService,
	NewJobService,
	NewHealthService,
	wire.Bind(new(AggregationLocker), new(*redisRepository.AggregationLockRepository)),
	wire.Bind(new(AuditLogger), new(*fluentdRepository.AuditLogRepository)),
	wire.Bind(new(Pinger), new(*client.MongoClient)),
)
