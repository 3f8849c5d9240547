package middleware

import (
	"opsboard/config"
	"opsboard/internal/core"
	"opsboard/internal/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Cors struct {
	trace  *telemetry.Trace
	config *config.Configuration
}

func NewCors(trace *telemetry.Trace, config *config.Configuration) *Cors {
	return &Cors{trace: trace, config: config}
}

// CorsHandler 儀表板可直接觸發聚合；未設定 ALLOW_ORIGINS 時允許所有來源但不帶 credentials
func (m *Cors) CorsHandler() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
	if len(m.config.App.AllowOrigins) > 0 {
		cfg.AllowOrigins = m.config.App.AllowOrigins
		cfg.AllowCredentials = true
	} else {
		cfg.AllowAllOrigins = true
	}
	corsHandler := cors.New(cfg)

	type corsMeta struct {
		AllowOrigins []string `trace:"http.cors.allow_origins,omitempty"`
		AllowMethods []string `trace:"http.cors.allow_methods"`
		AllowHeaders []string `trace:"http.cors.allow_headers"`
		AllowCreds   bool     `trace:"http.cors.allow_credentials"`
	}

	return func(c *gin.Context) {
		if isUntraced(c.FullPath()) {
			corsHandler(c)
			return
		}

		_, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanCorsMiddleware))
		m.trace.ApplyTraceAttributes(span, corsMeta{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: cfg.AllowMethods,
			AllowHeaders: cfg.AllowHeaders,
			AllowCreds:   cfg.AllowCredentials,
		})
		end(nil)

		// cors 內部會呼叫 c.Next()
		corsHandler(c)
	}
}
