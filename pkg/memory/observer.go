package memory

import (
	"context"

	"github.com/easyops/astrocontext-go/pkg/otel"
)

// MetricsObserver 把记忆事件转换为指标。
//
// 作为 MemoryCallback 注册到滑动窗口、摘要缓冲或垃圾回收器上，
// 收集淘汰、压缩与回收相关的计数。
type MetricsObserver struct {
	BaseMemoryCallback
	metrics otel.Metrics
}

// NewMetricsObserver 创建指标观察器。
// metrics 为 nil 时使用全局指标收集器。
func NewMetricsObserver(metrics otel.Metrics) *MetricsObserver {
	if metrics == nil {
		metrics = otel.GetMetrics()
	}
	return &MetricsObserver{metrics: metrics}
}

// OnEviction 统计被淘汰的轮次数。
func (o *MetricsObserver) OnEviction(turns []ConversationTurn, remainingTokens int) {
	ctx := context.Background()
	o.metrics.Counter(otel.MetricMemoryEvictions).Add(ctx, int64(len(turns)))
	o.metrics.Gauge(otel.MetricMemoryTokens).Set(ctx, float64(remainingTokens))
}

// OnCompaction 统计摘要压缩次数。
func (o *MetricsObserver) OnCompaction(evictedTurns []ConversationTurn, summary, previousSummary string) {
	o.metrics.Counter(otel.MetricMemoryCompactions).Add(context.Background(), 1)
}

// OnExpiryPrune 统计因过期回收的条目数。
func (o *MetricsObserver) OnExpiryPrune(pruned []MemoryEntry) {
	o.metrics.Counter(otel.MetricGCPrunedExpired).Add(context.Background(), int64(len(pruned)))
}

// OnDecayPrune 统计因衰减回收的条目数。
func (o *MetricsObserver) OnDecayPrune(pruned []MemoryEntry, threshold float64) {
	o.metrics.Counter(otel.MetricGCPrunedDecayed).Add(context.Background(), int64(len(pruned)))
}

// 编译时接口检查
var _ MemoryCallback = (*MetricsObserver)(nil)
