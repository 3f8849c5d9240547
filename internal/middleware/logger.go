package middleware

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"opsboard/internal/core"
	"opsboard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxBodyPreview 觸發聚合的 request body 很小，超過就截斷
const maxBodyPreview = 2000

type Logger struct {
	logger *zap.Logger
	trace  *telemetry.Trace
}

func NewLogger(logger *zap.Logger, trace *telemetry.Trace) *Logger {
	return &Logger{logger: logger, trace: trace}
}

// LoggerHandler 記錄每個請求；body 讀完後回填給下游
func (m *Logger) LoggerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if isUntraced(endpoint) {
			c.Next()
			return
		}

		_, span, end := m.trace.WithSpan(m.trace.GetTraceContext(c), string(core.SpanLoggerMiddleware))

		var bodyRaw string
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			data, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(data))
			bodyRaw = toSafePreview(data, maxBodyPreview)
		}

		paramsMap := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			paramsMap[p.Key] = p.Value
		}

		meta := core.LoggerRequestMeta{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			FullPath:   endpoint,
			Query:      c.Request.URL.RawQuery,
			Body:       bodyRaw,
			Host:       c.Request.Host,
			UserAgent:  c.Request.UserAgent(),
			ContentLen: c.Request.ContentLength,
			ClientIP:   c.ClientIP(),
			Params:     paramsMap,
		}
		m.trace.ApplyTraceAttributes(span, meta)

		traceID := span.SpanContext().TraceID()
		spanID := span.SpanContext().SpanID()
		logFields := []zap.Field{
			zap.String("method", meta.Method),
			zap.String("path", meta.Path),
			zap.String("client_ip", meta.ClientIP),
		}
		if meta.Query != "" {
			logFields = append(logFields, zap.String("query", meta.Query))
		}
		if bodyRaw != "" {
			logFields = append(logFields, zap.String("body", bodyRaw))
		}
		logFields = append(logFields,
			zap.String("spanId", fmt.Sprintf("%x", spanID[:])),
			zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
		)
		m.logger.Info("[Request] logging middleware message", logFields...)
		end(nil)
		c.Next()
	}
}

// 僅對文字內容做安全預覽：UTF-8 直接截斷；非 UTF-8 以 Base64 表示
func toSafePreview(b []byte, max int) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		s := strings.TrimSpace(string(b))
		if len(s) > max {
			return s[:max] + "…"
		}
		return s
	}
	if len(b) > max {
		b = b[:max]
	}
	return "b64:" + base64.StdEncoding.EncodeToString(b)
}
