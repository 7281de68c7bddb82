package httpapi

import (
	"voyage-rewards/pkg/config"
	"voyage-rewards/pkg/health"
	"voyage-rewards/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	health.Module,
	fx.Provide(ProvideEngine),
	fx.Invoke(registerHealthEndpoint),
)

func ProvideEngine(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Error())

	return engine
}

func registerHealthEndpoint(engine *gin.Engine, svc health.HealthService) {
	engine.GET("/healthz", svc.Liveness)
	engine.GET("/readyz", svc.Readiness)
}
