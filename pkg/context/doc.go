// Package ctxcore 提供上下文组装引擎的核心数据模型。
//
// 本包实现了 Token 感知的上下文窗口装配：ContextItem 是流经
// 流水线的原子单元，ContextWindow 按优先级贪心装入条目，
// TokenBudget 负责跨来源的 Token 预算分配。
package ctxcore
