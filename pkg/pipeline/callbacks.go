package pipeline

import (
	"time"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
	"github.com/easyops/astrocontext-go/pkg/otel"
)

// PipelineCallback 定义流水线执行过程的事件钩子。
//
// 钩子中的 panic 会被捕获并记录，不会中断构建；
// 钩子收到的条目切片是快照，修改它不影响流水线。
type PipelineCallback interface {
	// OnPipelineStart 在构建开始时调用。
	OnPipelineStart(query ctxcore.QueryBundle)

	// OnStepStart 在步骤执行前调用。
	OnStepStart(stepName string, items []ctxcore.ContextItem)

	// OnStepEnd 在步骤成功后调用。
	OnStepEnd(stepName string, items []ctxcore.ContextItem, duration time.Duration)

	// OnStepError 在步骤失败时调用（无论失败策略如何）。
	OnStepError(stepName string, err error)

	// OnPipelineEnd 在构建成功后调用。
	OnPipelineEnd(result *ctxcore.ContextResult)
}

// BaseCallback 提供 PipelineCallback 的空实现。
// 嵌入后只需覆盖关心的方法。
type BaseCallback struct{}

func (BaseCallback) OnPipelineStart(query ctxcore.QueryBundle)                 {}
func (BaseCallback) OnStepStart(stepName string, items []ctxcore.ContextItem) {}
func (BaseCallback) OnStepEnd(stepName string, items []ctxcore.ContextItem, duration time.Duration) {
}
func (BaseCallback) OnStepError(stepName string, err error)      {}
func (BaseCallback) OnPipelineEnd(result *ctxcore.ContextResult) {}

// firePipelineCallback 逐个触发回调并隔离其中的 panic。
// 有缺陷的回调绝不能中断构建本身。
func firePipelineCallback(callbacks []PipelineCallback, logger otel.Logger, fn func(cb PipelineCallback)) {
	for _, cb := range callbacks {
		invokePipelineCallback(cb, logger, fn)
	}
}

func invokePipelineCallback(cb PipelineCallback, logger otel.Logger, fn func(cb PipelineCallback)) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Warn("pipeline callback panicked", "panic", r)
		}
	}()
	fn(cb)
}

// 编译时接口检查
var _ PipelineCallback = BaseCallback{}
var _ PipelineCallback = (*otel.MetricsCallback)(nil)
