package memory

import (
	"github.com/easyops/astrocontext-go/pkg/otel"
)

// MemoryCallback 定义记忆操作的观察钩子。
//
// 钩子在状态更新完成后同步调用，且不持有记忆内部锁。
// 钩子中的 panic 会被捕获并记录，不会中断记忆操作。
type MemoryCallback interface {
	// OnEviction 在轮次被淘汰出滑动窗口后调用。
	// remainingTokens 是淘汰后窗口内剩余的 Token 数。
	OnEviction(turns []ConversationTurn, remainingTokens int)

	// OnCompaction 在被淘汰轮次被压缩为摘要后调用。
	// previousSummary 在首次压缩时为空字符串。
	OnCompaction(evictedTurns []ConversationTurn, summary, previousSummary string)

	// OnExpiryPrune 在过期条目被回收时调用。
	OnExpiryPrune(pruned []MemoryEntry)

	// OnDecayPrune 在保留度低于阈值的条目被回收时调用。
	OnDecayPrune(pruned []MemoryEntry, threshold float64)
}

// BaseMemoryCallback 提供 MemoryCallback 的空实现。
// 嵌入后只需覆盖关心的方法。
type BaseMemoryCallback struct{}

func (BaseMemoryCallback) OnEviction(turns []ConversationTurn, remainingTokens int) {}
func (BaseMemoryCallback) OnCompaction(evictedTurns []ConversationTurn, summary, previousSummary string) {
}
func (BaseMemoryCallback) OnExpiryPrune(pruned []MemoryEntry)                  {}
func (BaseMemoryCallback) OnDecayPrune(pruned []MemoryEntry, threshold float64) {}

// fireMemoryCallback 逐个触发回调并隔离其中的 panic。
// 有缺陷的回调绝不能中断记忆操作本身。
func fireMemoryCallback(callbacks []MemoryCallback, logger otel.Logger, fn func(cb MemoryCallback)) {
	for _, cb := range callbacks {
		invokeMemoryCallback(cb, logger, fn)
	}
}

func invokeMemoryCallback(cb MemoryCallback, logger otel.Logger, fn func(cb MemoryCallback)) {
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Warn("memory callback panicked", "panic", r)
		}
	}()
	fn(cb)
}

// 编译时接口检查
var _ MemoryCallback = BaseMemoryCallback{}
