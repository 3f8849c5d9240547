package handler

import (
	"net/http"

	"opsboard/config"
	"opsboard/internal/service"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthStatus *service.HealthService
	config       *config.Configuration
}

func NewHealthHandler(status *service.HealthService, config *config.Configuration) *HealthHandler {
	return &HealthHandler{healthStatus: status, config: config}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	if h.healthStatus.IsLive() {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
		return
	}
	c.Status(http.StatusServiceUnavailable)
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.healthStatus.IsReady(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	c.Status(http.StatusServiceUnavailable)
}

// HealthCheck 負載平衡器用，不檢查相依服務
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    h.config.App.Name,
		"version": h.config.App.Version,
		"env":     h.config.App.Env,
	})
}
