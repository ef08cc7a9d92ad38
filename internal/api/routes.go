package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/api/middleware"
)

// RegisterPanelRoutes 注册面板管理路由
func RegisterPanelRoutes(r *gin.Engine, engine Engine, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || engine == nil {
		return
	}
	handler := NewPanelHandler(engine, logger)

	api := r.Group("/api")
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	api.GET("/queue", handler.Queue)
	api.POST("/configure", handler.Configure)
	api.GET("/panels/:addr/fingerprints", handler.Fingerprints)
	api.GET("/missing", handler.Missing)
	api.GET("/controls", handler.GetControls)
	api.PUT("/controls", handler.SetControls)
	api.POST("/weather", handler.Weather)

	logger.Info("panel routes registered", zap.Int("endpoints", 7))
}
