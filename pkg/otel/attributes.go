package otel

import "go.opentelemetry.io/otel/attribute"

// 预定义的语义属性键
// 遵循 OpenTelemetry 语义约定
const (
	// Pipeline 相关属性
	AttrPipelineStep      = "pipeline.step"
	AttrPipelineStepCount = "pipeline.step_count"
	AttrPipelinePolicy    = "pipeline.error_policy"

	// Context 相关属性
	AttrContextSource      = "context.source"
	AttrContextItems       = "context.items"
	AttrContextTokens      = "context.tokens"
	AttrContextMaxTokens   = "context.max_tokens"
	AttrContextUtilization = "context.utilization"
	AttrContextFormat      = "context.format"

	// Memory 相关属性
	AttrMemoryBackend = "memory.backend"
	AttrMemoryTurns   = "memory.turns"
	AttrMemoryTokens  = "memory.tokens"

	// GC 相关属性
	AttrGCDryRun    = "gc.dry_run"
	AttrGCThreshold = "gc.retention_threshold"

	// Error 相关属性
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// PipelineStep 创建步骤名称属性
func PipelineStep(name string) attribute.KeyValue {
	return attribute.String(AttrPipelineStep, name)
}

// PipelineStepCount 创建步骤数量属性
func PipelineStepCount(n int) attribute.KeyValue {
	return attribute.Int(AttrPipelineStepCount, n)
}

// ContextSource 创建条目来源属性
func ContextSource(source string) attribute.KeyValue {
	return attribute.String(AttrContextSource, source)
}

// ContextItems 创建条目数量属性
func ContextItems(n int) attribute.KeyValue {
	return attribute.Int(AttrContextItems, n)
}

// ContextTokens 创建 Token 数量属性
func ContextTokens(n int) attribute.KeyValue {
	return attribute.Int(AttrContextTokens, n)
}

// ContextUtilization 创建窗口使用率属性
func ContextUtilization(ratio float64) attribute.KeyValue {
	return attribute.Float64(AttrContextUtilization, ratio)
}

// MemoryBackend 创建记忆后端类型属性
func MemoryBackend(backend string) attribute.KeyValue {
	return attribute.String(AttrMemoryBackend, backend)
}

// GCDryRun 创建干跑标记属性
func GCDryRun(dryRun bool) attribute.KeyValue {
	return attribute.Bool(AttrGCDryRun, dryRun)
}

// ErrorAttrs 创建错误属性
func ErrorAttrs(errType, message string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, message),
	}
}
