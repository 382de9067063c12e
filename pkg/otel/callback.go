package otel

import (
	"context"
	"time"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

// MetricsCallback 把流水线事件转换为指标与调试日志。
//
// 方法签名与流水线回调接口一致，注册后即可收集
// 构建次数、步骤耗时、窗口使用率等指标。
type MetricsCallback struct {
	metrics Metrics
	logger  Logger
}

// NewMetricsCallback 创建指标回调。
// metrics 为 nil 时使用全局指标收集器，logger 为 nil 时使用全局日志器。
func NewMetricsCallback(metrics Metrics, logger Logger) *MetricsCallback {
	if metrics == nil {
		metrics = GetMetrics()
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &MetricsCallback{metrics: metrics, logger: logger}
}

// OnPipelineStart 记录构建开始。
func (c *MetricsCallback) OnPipelineStart(query ctxcore.QueryBundle) {
	ctx := context.Background()
	c.metrics.Counter(MetricPipelineBuilds).Add(ctx, 1)
	c.logger.Debug("context build started", "query_len", len(query.QueryStr))
}

// OnStepStart 记录步骤开始。
func (c *MetricsCallback) OnStepStart(stepName string, items []ctxcore.ContextItem) {
	c.logger.Debug("pipeline step started", "step", stepName, "items", len(items))
}

// OnStepEnd 记录步骤耗时。
func (c *MetricsCallback) OnStepEnd(stepName string, items []ctxcore.ContextItem, duration time.Duration) {
	ctx := context.Background()
	c.metrics.Histogram(MetricPipelineStepDuration).Record(ctx,
		float64(duration.Milliseconds()),
		NewAttr(AttrPipelineStep, stepName))
}

// OnStepError 记录步骤失败。
func (c *MetricsCallback) OnStepError(stepName string, err error) {
	ctx := context.Background()
	c.metrics.Counter(MetricPipelineStepErrors).Add(ctx, 1,
		NewAttr(AttrPipelineStep, stepName))
	c.logger.Warn("pipeline step failed", "step", stepName, "error", err)
}

// OnPipelineEnd 记录构建结果指标。
func (c *MetricsCallback) OnPipelineEnd(result *ctxcore.ContextResult) {
	if result == nil {
		return
	}
	ctx := context.Background()
	d := result.Diagnostics

	c.metrics.Histogram(MetricPipelineBuildDuration).Record(ctx,
		float64(result.BuildTime.Milliseconds()))
	c.metrics.Counter(MetricContextItemsIncluded).Add(ctx, int64(d.ItemsIncluded))
	c.metrics.Counter(MetricContextItemsOverflow).Add(ctx, int64(d.ItemsOverflow))
	c.metrics.Histogram(MetricContextTokenUtilization).Record(ctx, d.TokenUtilization)
	if n := len(d.SkippedSteps); n > 0 {
		c.metrics.Counter(MetricPipelineStepsSkipped).Add(ctx, int64(n))
	}
}
