package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"opsboard/internal/core"
	cErr "opsboard/internal/pkg/error"
	"opsboard/internal/pkg/response"
	"opsboard/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	logger *zap.Logger
	trace  *telemetry.Trace
}

func NewResponse(logger *zap.Logger, trace *telemetry.Trace) *Response {
	return &Response{logger: logger, trace: trace}
}

// FormatHandler handler 以 response.Success 設定 data，這裡統一包成 Response
func (middleware *Response) FormatHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isUntraced(c.FullPath()) {
			c.Next()
			return
		}
		requestTime := requestStart(c)

		c.Next()

		// 已有錯誤交給 Recovery，或 handler 自行寫出回應
		if len(c.Errors) > 0 || c.Writer.Written() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode >= http.StatusBadRequest {
			response.AbortWithError(c, cErr.MapHttpStatusToError(statusCode, "request error"))
			return
		}

		_, span, end := middleware.trace.WithSpan(middleware.trace.GetTraceContext(c), string(core.SpanResponseMiddleware))
		defer end(nil)

		data, _ := c.Get("data")
		if data == nil {
			data = map[string]any{}
		}
		message := "Request Success"
		if s, ok := c.Get("message"); ok {
			if str, _ := s.(string); str != "" {
				message = str
			}
		}
		requestID := c.GetString(core.ContextRequestIDKey)
		duration := time.Since(requestTime)
		traceID := span.SpanContext().TraceID()

		middleware.trace.ApplyTraceAttributes(span, core.TraceResponseMeta{
			Path:       c.Request.URL.Path,
			Method:     c.Request.Method,
			Status:     statusCode,
			Message:    message,
			Code:       cErr.SUCCESS,
			DurationMs: float64(duration.Milliseconds()),
			Data:       safePreviewJSON(data, 2000),
		})
		middleware.logger.Info("[Response] "+message,
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Int("status", statusCode),
			zap.Duration("duration", duration),
			zap.String("requestId", requestID),
			zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
		)

		jsonBytes, err := json.Marshal(response.Response{
			RequestID:   requestID,
			Code:        cErr.SUCCESS,
			Data:        data,
			Message:     "OK",
			Description: message,
		})
		if err != nil {
			response.AbortWithError(c, cErr.InternalServer("marshal response failed"))
			return
		}
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Writer.WriteHeader(statusCode)
		if _, werr := c.Writer.Write(jsonBytes); werr != nil {
			middleware.logger.Warn("write response failed", zap.Error(werr))
		}
	}
}

// safePreviewJSON 會把資料序列化為 JSON 字串（UTF-8），並限制長度。
func safePreviewJSON(data any, max int) string {
	switch v := data.(type) {
	case string:
		// 原邏輯：試圖解析 JSON 字串
		var js any
		if err := json.Unmarshal([]byte(v), &js); err != nil {
			if len(v) > max {
				return v[:max] + "…"
			}
			return v
		}
		b, _ := json.Marshal(js)
		out := string(b)
		if len(out) > max {
			return out[:max] + "…"
		}
		return out
	default:
		// 對 struct/map/其他型別，直接 Marshal
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("[marshal error: %v]", err)
		}
		out := string(b)
		if len(out) > max {
			return out[:max] + "…"
		}
		return out
	}
}
