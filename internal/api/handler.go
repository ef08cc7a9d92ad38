package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/s1-panel-bridge/internal/gateway"
	"github.com/taoyao-code/s1-panel-bridge/internal/outbound"
	"github.com/taoyao-code/s1-panel-bridge/internal/planner"
	"github.com/taoyao-code/s1-panel-bridge/internal/storage"
)

// Engine 管理接口用到的引擎操作
type Engine interface {
	Snapshot() outbound.Snapshot
	Reload(ctx context.Context) (*planner.Plan, error)
	Fingerprints(ctx context.Context, panel string) (*storage.Record, error)
	Missing() []gateway.MissingChannel
	SetControls(enabled bool)
	Controls() bool
	PushWeather(ctx context.Context, w gateway.Weather) error
}

// ErrReloadFailed 面板文件无法加载
var ErrReloadFailed = errors.New("reload panels failed")

// PanelHandler 面板管理接口处理器
type PanelHandler struct {
	engine Engine
	logger *zap.Logger
}

// NewPanelHandler 创建面板管理接口处理器
func NewPanelHandler(engine Engine, logger *zap.Logger) *PanelHandler {
	return &PanelHandler{engine: engine, logger: logger}
}

// Queue 配置队列状态
// @Summary 查询配置队列
// @Tags 面板管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} outbound.Snapshot
// @Router /api/queue [get]
func (h *PanelHandler) Queue(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

// Configure 重新读取面板文件并规划配置
// @Summary 重新配置面板
// @Tags 面板管理
// @Produce json
// @Security ApiKeyAuth
// @Success 202 {object} map[string]interface{}
// @Router /api/configure [post]
func (h *PanelHandler) Configure(c *gin.Context) {
	plan, err := h.engine.Reload(c.Request.Context())
	if err != nil {
		h.logger.Error("configure failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   ErrReloadFailed.Error(),
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"panels": plan.Panels,
		"jobs":   len(plan.Jobs),
		"names":  len(plan.Names),
	})
}

// Fingerprints 面板已保存的指纹与名称
// @Summary 查询面板指纹
// @Tags 面板管理
// @Produce json
// @Security ApiKeyAuth
// @Param addr path string true "面板 IEEE 地址"
// @Success 200 {object} storage.Record
// @Router /api/panels/{addr}/fingerprints [get]
func (h *PanelHandler) Fingerprints(c *gin.Context) {
	addr := c.Param("addr")
	rec, err := h.engine.Fingerprints(c.Request.Context(), addr)
	if err != nil {
		h.logger.Error("load fingerprints failed", zap.String("panel", addr), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"panel": addr, "channels": rec.Channels, "names": rec.Names})
}

// Missing 面板报告缺失的通道
// @Summary 查询缺失通道
// @Tags 面板管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/missing [get]
func (h *PanelHandler) Missing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"missing": h.engine.Missing()})
}

type controlsRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetControls 打开或关闭面板对设备的控制
// @Summary 面板控制开关
// @Tags 面板管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/controls [put]
func (h *PanelHandler) SetControls(c *gin.Context) {
	var req controlsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	h.engine.SetControls(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": h.engine.Controls()})
}

// GetControls 面板控制开关状态
func (h *PanelHandler) GetControls(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.engine.Controls()})
}

type weatherRequest struct {
	Temperature *float64 `json:"temperature" binding:"required"`
	Humidity    *float64 `json:"humidity" binding:"required"`
	WeatherCode int      `json:"weatherCode"`
	UVIndex     *float64 `json:"uvIndex"`
}

// Weather 推送天气页数据，未变化的值不会重发
// @Summary 推送天气
// @Tags 面板管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/weather [post]
func (h *PanelHandler) Weather(c *gin.Context) {
	var req weatherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	w := gateway.Weather{
		Temperature: *req.Temperature,
		Humidity:    *req.Humidity,
		WeatherCode: req.WeatherCode,
		UVIndex:     gateway.UnknownUV,
	}
	if req.UVIndex != nil {
		w.UVIndex = *req.UVIndex
	}
	if err := h.engine.PushWeather(c.Request.Context(), w); err != nil {
		h.logger.Warn("weather push failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"weather": w})
}
