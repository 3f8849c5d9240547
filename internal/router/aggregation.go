package router

import (
	"opsboard/internal/core"
	"opsboard/internal/handler"
	"opsboard/internal/middleware"

	"github.com/gin-gonic/gin"
)

type AggregationRouter struct {
	aggregationHandler *handler.AggregationHandler
	auth               *middleware.Auth
}

func NewAggregationRouter(
	aggregationHandler *handler.AggregationHandler,
	auth *middleware.Auth,
) *AggregationRouter {
	return &AggregationRouter{
		aggregationHandler: aggregationHandler,
		auth:               auth,
	}
}

func (ar *AggregationRouter) RegisterRoutes(r *gin.Engine) {
	g := r.Group("/aggregations", ar.auth.Handler(core.ScopeAggregationTrigger))
	{
		g.POST("/sales-line-items", ar.aggregationHandler.SalesLineItems)
		g.POST("/labor-hours", ar.aggregationHandler.LaborHours)
		g.POST("/worker-profiles", ar.aggregationHandler.WorkerProfiles)
		g.GET("/changes", ar.aggregationHandler.Changes)
	}
}
