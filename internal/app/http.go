package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/api"
	"github.com/taoyao-code/s1-panel-bridge/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/s1-panel-bridge/internal/config"
	"github.com/taoyao-code/s1-panel-bridge/internal/health"
	"github.com/taoyao-code/s1-panel-bridge/internal/httpserver"
	"github.com/taoyao-code/s1-panel-bridge/internal/logging"
)

// NewAdminServer 管理端 HTTP 服务：/api 面板路由、/health 检查与指标
func NewAdminServer(cfg *cfgpkg.Config, tel *Telemetry, engine *Engine, agg *health.Aggregator, readyFn func() bool, log *zap.Logger) *httpserver.Server {
	log = logging.OrNop(log)
	var metricsHandler http.Handler
	if cfg.Metrics.Enable {
		metricsHandler = tel.Handler
	}
	srv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, readyFn)
	srv.Register(func(r *gin.Engine) {
		api.RegisterPanelRoutes(r, engine, middleware.AuthConfig{
			APIKeys: cfg.API.Auth.APIKeys,
			Enabled: cfg.API.Auth.Enabled,
		}, log)
		RegisterHealthRoutes(r, agg)
	})
	return srv
}
