package middleware

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"opsboard/internal/core"
	cErr "opsboard/internal/pkg/error"
	res "opsboard/internal/pkg/response"
	"opsboard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Recovery struct {
	logger *zap.Logger
	trace  *telemetry.Trace
}

func NewRecovery(logger *zap.Logger, trace *telemetry.Trace) *Recovery {
	return &Recovery{logger: logger, trace: trace}
}

func requestStart(c *gin.Context) time.Time {
	if startTime, exists := c.Get("requestDuration"); exists {
		if t, ok := startTime.(time.Time); ok {
			return t
		}
	}
	return time.Now()
}

// ErrorHandler panic 與 c.Errors 統一轉成 Response 格式
func (middleware *Recovery) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestTime := requestStart(c)
		requestID, err := uuid.NewV7()
		if err != nil {
			requestID = uuid.New()
		}
		c.Set(core.ContextRequestIDKey, requestID.String())

		// panic recover 必須在 c.Next() 之前註冊
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			duration := time.Since(requestTime)
			_, span, end := middleware.trace.WithSpan(middleware.trace.GetTraceContext(c), string(core.SpanRecoveryMiddleware))
			meta := core.TracePanicMeta{
				Path:       c.Request.URL.Path,
				Method:     c.Request.Method,
				ClientIP:   c.ClientIP(),
				UserAgent:  c.Request.UserAgent(),
				DurationMs: float64(duration.Milliseconds()),
				Message:    toSafeString(fmt.Sprint(rec)),
				Stack:      toSafeStack(debug.Stack()),
				Status:     http.StatusInternalServerError,
			}
			middleware.trace.ApplyTraceAttributes(span, meta)

			middleware.logger.Error("[PANIC] Recovered",
				zap.String("path", meta.Path),
				zap.String("method", meta.Method),
				zap.String("client_ip", meta.ClientIP),
				zap.Duration("duration", duration),
				zap.String("panic", meta.Message),
				zap.String("stacktrace", meta.Stack),
				zap.String("requestId", requestID.String()),
			)

			appErr := cErr.InternalServer("unexpected panic")
			end(appErr)
			if !c.Writer.Written() {
				res.FailByErr(c, requestID.String(), appErr)
			}
			c.Abort()
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		duration := time.Since(requestTime)

		// 非 *cErr.Error（例如 context.Canceled）由 cErr.From 轉換
		appErr := cErr.From(c.Errors.Last().Err)
		middleware.logger.Warn(appErr.Error(),
			zap.Int("code", appErr.ErrorCode()),
			zap.String("data", appErr.ErrorDesc()),
			zap.Duration("duration", duration),
			zap.String("requestId", requestID.String()),
		)
		res.FailByErr(c, requestID.String(), appErr)
		c.Abort()
	}
}

// ---- helpers ----

func toSafeString(s string) string {
	const max = 8000
	if utf8.ValidString(s) {
		if len(s) > max {
			return s[:max] + "…"
		}
		return s
	}
	b := []byte(s)
	if len(b) > max {
		b = b[:max]
	}
	return "b64:" + base64.StdEncoding.EncodeToString(b)
}

func toSafeStack(b []byte) string {
	const max = 16000
	if utf8.Valid(b) {
		if len(b) > max {
			return string(b[:max]) + "…"
		}
		return string(b)
	}
	if len(b) > max {
		b = b[:max]
	}
	return "b64:" + base64.StdEncoding.EncodeToString(b)
}
