package otel

// 预定义的指标名称
// 遵循 OpenTelemetry 语义约定
const (
	// Pipeline 指标
	MetricPipelineBuilds        = "pipeline.builds"         // 计数器: 上下文构建次数
	MetricPipelineBuildDuration = "pipeline.build.duration" // 直方图: 构建耗时(ms)
	MetricPipelineStepDuration  = "pipeline.step.duration"  // 直方图: 单步执行耗时(ms)
	MetricPipelineStepErrors    = "pipeline.step.errors"    // 计数器: 步骤失败次数
	MetricPipelineStepsSkipped  = "pipeline.steps.skipped"  // 计数器: 被跳过的步骤数

	// Context 指标
	MetricContextItemsIncluded    = "context.items.included"    // 计数器: 装入窗口的条目数
	MetricContextItemsOverflow    = "context.items.overflow"    // 计数器: 溢出条目数
	MetricContextTokenUtilization = "context.token.utilization" // 直方图: 窗口 Token 使用率

	// Memory 指标
	MetricMemoryTurnsAdded  = "memory.turns.added"  // 计数器: 写入的对话轮次
	MetricMemoryEvictions   = "memory.evictions"    // 计数器: 被逐出的轮次
	MetricMemoryCompactions = "memory.compactions"  // 计数器: 摘要压缩次数
	MetricMemoryTokens      = "memory.tokens.total" // 仪表: 记忆层当前 Token 数

	// GC 指标
	MetricGCRuns          = "gc.runs"           // 计数器: 垃圾回收执行次数
	MetricGCPrunedExpired = "gc.pruned.expired" // 计数器: 因过期清理的条目
	MetricGCPrunedDecayed = "gc.pruned.decayed" // 计数器: 因衰减清理的条目
)

// MetricUnit 指标单位
type MetricUnit string

const (
	UnitNone         MetricUnit = ""
	UnitMilliseconds MetricUnit = "ms"
	UnitSeconds      MetricUnit = "s"
	UnitBytes        MetricUnit = "By"
	UnitCount        MetricUnit = "1"
)

// MetricDescription 指标描述
type MetricDescription struct {
	Name        string
	Description string
	Unit        MetricUnit
	Type        string // counter, histogram, gauge
}

// PredefinedMetrics 预定义指标列表
var PredefinedMetrics = []MetricDescription{
	{MetricPipelineBuilds, "Number of context builds", UnitCount, "counter"},
	{MetricPipelineBuildDuration, "Duration of context builds", UnitMilliseconds, "histogram"},
	{MetricPipelineStepDuration, "Duration of pipeline steps", UnitMilliseconds, "histogram"},
	{MetricPipelineStepErrors, "Number of failed pipeline steps", UnitCount, "counter"},
	{MetricPipelineStepsSkipped, "Number of skipped pipeline steps", UnitCount, "counter"},

	{MetricContextItemsIncluded, "Number of items packed into windows", UnitCount, "counter"},
	{MetricContextItemsOverflow, "Number of items rejected by the token budget", UnitCount, "counter"},
	{MetricContextTokenUtilization, "Token utilization of assembled windows", UnitNone, "histogram"},

	{MetricMemoryTurnsAdded, "Number of conversation turns recorded", UnitCount, "counter"},
	{MetricMemoryEvictions, "Number of evicted conversation turns", UnitCount, "counter"},
	{MetricMemoryCompactions, "Number of summary compactions", UnitCount, "counter"},
	{MetricMemoryTokens, "Current token usage of conversation memory", UnitCount, "gauge"},

	{MetricGCRuns, "Number of garbage collection runs", UnitCount, "counter"},
	{MetricGCPrunedExpired, "Number of entries pruned for expiry", UnitCount, "counter"},
	{MetricGCPrunedDecayed, "Number of entries pruned for decayed retention", UnitCount, "counter"},
}
