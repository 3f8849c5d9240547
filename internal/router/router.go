package router

import (
	"fmt"

	"opsboard/config"
	"opsboard/internal/middleware"
	"opsboard/internal/pkg/request"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ProviderSet = wire.NewSet(
	NewRouter,
	NewHealthRouter,
	NewAggregationRouter,
)

// 透過依賴注入將 middleware 與各路由組裝成 gin.Engine
func NewRouter(
	config *config.Configuration,
	traceEntry *middleware.TraceEntry,
	recovery *middleware.Recovery,
	cors *middleware.Cors,
	logger *middleware.Logger,
	responseMiddleware *middleware.Response,
	healthRouter *HealthRouter,
	aggregationRouter *AggregationRouter,
) (*gin.Engine, error) {

	switch config.App.Env {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := request.RegisterValidations(v); err != nil {
			return nil, fmt.Errorf("register validations: %w", err)
		}
	}

	router := gin.New()
	router.Use(traceEntry.Handler())
	router.Use(logger.LoggerHandler())
	router.Use(cors.CorsHandler())
	router.Use(recovery.ErrorHandler())
	router.Use(responseMiddleware.FormatHandler())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	healthRouter.RegisterHealthRoutes(router)
	aggregationRouter.RegisterRoutes(router)

	if config.App.Env != "production" {
		pprof.Register(router)
	}
	return router, nil
}
