package repository

import (
	"context"
	"testing"

	"opsboard/config"
	"opsboard/internal/core"
	client "opsboard/internal/database/client"
	"opsboard/internal/telemetry"

	"go.uber.org/zap"
)

func TestAcquireWithoutRedisIsNoop(t *testing.T) {
	redisClient, cleanup, err := client.NewRedisClient(zap.NewNop(), &config.Configuration{})
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	defer cleanup()

	repo := NewAggregationLockRepository(telemetry.NewNoopTrace(), redisClient, &config.Configuration{})
	release, err := repo.Acquire(context.Background(), core.KindSalesLineItems, "L1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	// 未啟用時同一把鎖可重複取得
	if _, err := repo.Acquire(context.Background(), core.KindSalesLineItems, "L1"); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
}

func TestLockKey(t *testing.T) {
	repo := &AggregationLockRepository{}
	tests := []struct {
		kind core.AggregationKind
		loc  string
		want string
	}{
		{core.KindSalesLineItems, "L1", "opsboard:aggregation_lock:sales_line_items:L1"},
		{core.KindWorkerProfiles, "", "opsboard:aggregation_lock:worker_profiles:*"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := repo.buildKey(tt.kind, tt.loc); got != tt.want {
				t.Fatalf("got %s want %s", got, tt.want)
			}
		})
	}
}

func TestDefaultTTL(t *testing.T) {
	redisClient, _, _ := client.NewRedisClient(zap.NewNop(), &config.Configuration{})
	repo := NewAggregationLockRepository(telemetry.NewNoopTrace(), redisClient, &config.Configuration{})
	if repo.ttl.Minutes() != 15 {
		t.Fatalf("ttl = %v want 15m", repo.ttl)
	}
}
