package router

import (
	"opsboard/internal/handler"

	"github.com/gin-gonic/gin"
)

// HealthRouter 探針與版本資訊，皆不需驗證也不進 trace（見 middleware.isUntraced）
type HealthRouter struct {
	healthHandler *handler.HealthHandler
}

func NewHealthRouter(healthHandler *handler.HealthHandler) *HealthRouter {
	return &HealthRouter{healthHandler: healthHandler}
}

func (hr *HealthRouter) RegisterHealthRoutes(r gin.IRouter) {
	r.GET("/health-check", hr.healthHandler.HealthCheck)
	r.GET("/version", hr.healthHandler.Version)

	health := r.Group("/health")
	health.GET("/liveness", hr.healthHandler.Liveness)
	health.GET("/readiness", hr.healthHandler.Readiness)
}
