package repository

import (
	"context"
	"encoding/json"
	"time"

	"opsboard/config"
	"opsboard/internal/core"
	"opsboard/internal/database/client"
	"opsboard/internal/database/fluentd/model"
)

const loggedAtLayout = "2006-01-02 15:04:05.999999 UTC"

// AuditLogRepository 把聚合執行紀錄與身分比對問題送到 Fluentd
type AuditLogRepository struct {
	fluentdClient client.Client
	version       string
}

func NewAuditLogRepository(config *config.Configuration, fluentdClient client.Client) *AuditLogRepository {
	version := "1.0.0"
	if config.App.Version != "" {
		version = config.App.Version
	}
	return &AuditLogRepository{fluentdClient: fluentdClient, version: version}
}

func (repository *AuditLogRepository) LogAggregationRun(ctx context.Context, record model.AggregationRunLog) error {
	record.LoggedAt = repository.now()
	if record.Version == "" {
		record.Version = repository.version
	}
	return repository.post(ctx, core.FluentdAggregationRun, record)
}

func (repository *AuditLogRepository) LogIdentityDuplicate(ctx context.Context, record model.IdentityDuplicateLog) error {
	record.LoggedAt = repository.now()
	if record.Version == "" {
		record.Version = repository.version
	}
	return repository.post(ctx, core.FluentdIdentityDuplicate, record)
}

func (repository *AuditLogRepository) LogIdentityUnmatched(ctx context.Context, record model.IdentityUnmatchedLog) error {
	record.LoggedAt = repository.now()
	if record.Version == "" {
		record.Version = repository.version
	}
	return repository.post(ctx, core.FluentdIdentityUnmatched, record)
}

func (repository *AuditLogRepository) now() string {
	return time.Now().UTC().Format(loggedAtLayout)
}

// post fluent-logger 以 msgpack 編碼 map，先經 JSON 轉成 map[string]any
func (repository *AuditLogRepository) post(ctx context.Context, tag core.FluentdSubTag, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	var fluentdMessage map[string]any
	if err := json.Unmarshal(raw, &fluentdMessage); err != nil {
		return err
	}
	return repository.fluentdClient.Post(ctx, string(tag), fluentdMessage)
}
