package client

import (
	"context"
	"time"

	"opsboard/config"

	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
)

// Client 發送稽核紀錄的最小介面，測試時以 NoopClient 或 fake 取代
type Client interface {
	Post(ctx context.Context, tag string, rec map[string]any) error
	Close() error
}

type FluentdClient struct {
	client    *fluent.Fluent
	tagPrefix string
}

// NewFluentdClient FLUENTD__ENABLED=false 時回傳 NoopClient
func NewFluentdClient(logger *zap.Logger, config *config.Configuration) (Client, func(), error) {
	if !config.Fluentd.Enabled {
		logger.Info("Fluentd disabled, audit records are dropped")
		return &NoopClient{}, func() {}, nil
	}
	prefix := "opsboard"
	if config.Fluentd.TagPrefix != "" {
		prefix = config.Fluentd.TagPrefix
	}
	var timeout time.Duration
	if config.Fluentd.Timeout > 0 {
		timeout = time.Duration(config.Fluentd.Timeout) * time.Millisecond
	}

	logger.Info("Connecting to Fluentd", zap.String("host", config.Fluentd.Host), zap.Int("port", config.Fluentd.Port))
	f, err := fluent.New(fluent.Config{
		FluentHost: config.Fluentd.Host,
		FluentPort: config.Fluentd.Port,
		Timeout:    timeout,
		TagPrefix:  prefix,
		Async:      config.Fluentd.Async,
	})
	if err != nil {
		logger.Error("failed to connect to Fluentd", zap.Error(err))
		return nil, nil, err
	}
	fluentdClient := &FluentdClient{client: f, tagPrefix: prefix}
	cleanup := func() {
		if err := fluentdClient.Close(); err != nil {
			logger.Error("failed to close Fluentd client", zap.Error(err))
		}
	}
	return fluentdClient, cleanup, nil
}

func (c *FluentdClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Post tag 會由 fluent-logger 自動加上 TagPrefix
func (c *FluentdClient) Post(ctx context.Context, tag string, rec map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.client.Post(tag, rec)
}

type NoopClient struct{}

func (n *NoopClient) Post(ctx context.Context, tag string, rec map[string]any) error { return nil }
func (n *NoopClient) Close() error                                                   { return nil }
