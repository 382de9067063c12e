package ctxcore

import "time"

// StepDiagnostic 记录单个流水线步骤的执行情况。
type StepDiagnostic struct {
	// Name 是步骤名称。
	Name string

	// ItemsAfter 是该步骤执行后的条目数量。
	ItemsAfter int

	// Duration 是该步骤的执行耗时。
	Duration time.Duration
}

// PipelineDiagnostics 汇总一次上下文构建的诊断信息。
type PipelineDiagnostics struct {
	// Steps 按执行顺序记录各步骤的诊断。
	Steps []StepDiagnostic

	// MemoryItems 是从记忆层注入的条目数。
	MemoryItems int

	// TotalItemsConsidered 是进入窗口装配前的候选条目总数。
	TotalItemsConsidered int

	// ItemsIncluded 是最终装入窗口的条目数。
	ItemsIncluded int

	// ItemsOverflow 是因预算不足被拒绝的条目数。
	ItemsOverflow int

	// TokenUtilization 是窗口 Token 使用率（0.0-1.0）。
	TokenUtilization float64

	// TokenUsageBySource 按来源统计装入窗口的 Token 数。
	TokenUsageBySource map[SourceType]int

	// QueryEnriched 报告查询是否经过富化。
	QueryEnriched bool

	// SkippedSteps 记录因错误被跳过的步骤名称。
	SkippedSteps []string

	// FailedStep 记录导致构建失败的步骤名称，成功时为空。
	FailedStep string
}

// Clone 返回诊断信息的深拷贝。
func (d PipelineDiagnostics) Clone() PipelineDiagnostics {
	clone := d

	clone.Steps = make([]StepDiagnostic, len(d.Steps))
	copy(clone.Steps, d.Steps)

	clone.SkippedSteps = make([]string, len(d.SkippedSteps))
	copy(clone.SkippedSteps, d.SkippedSteps)

	if d.TokenUsageBySource != nil {
		clone.TokenUsageBySource = make(map[SourceType]int, len(d.TokenUsageBySource))
		for k, v := range d.TokenUsageBySource {
			clone.TokenUsageBySource[k] = v
		}
	}

	return clone
}

// ContextResult 是上下文流水线的最终输出。
type ContextResult struct {
	// Window 是装配完成的上下文窗口。
	Window *ContextWindow

	// FormattedOutput 是格式化后的文本输出。
	FormattedOutput string

	// FormatType 标识使用的格式化器类型。
	FormatType string

	// OverflowItems 是因预算不足未装入窗口的条目。
	OverflowItems []ContextItem

	// Diagnostics 是本次构建的诊断信息。
	Diagnostics PipelineDiagnostics

	// BuildTime 是本次构建的总耗时。
	BuildTime time.Duration
}
