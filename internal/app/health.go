package app

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/s1-panel-bridge/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器，数据库未启用时为空
func NewHealthAggregator(dbpool *pgxpool.Pool) *health.Aggregator {
	if dbpool == nil {
		return health.NewAggregator()
	}
	return health.NewAggregator(
		health.NewDatabaseChecker(dbpool),
	)
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}

// AddMQTTChecker 添加设备总线检查器到聚合器
func AddMQTTChecker(aggregator *health.Aggregator, bus health.BusStatus, broker string) {
	aggregator.AddChecker(health.NewMQTTChecker(bus, broker))
}

// AddQueueChecker 添加配置队列检查器
func AddQueueChecker(aggregator *health.Aggregator, e *Engine) {
	aggregator.AddChecker(health.NewQueueChecker(func() health.QueueStats {
		snap := e.Snapshot()
		s := health.QueueStats{Queued: len(snap.Queued)}
		if snap.Current != nil {
			s.Job = snap.Current.ID
			s.Failures = snap.Current.Failures
		}
		return s
	}))
}
