package ctxcore

import (
	"fmt"
	"sort"
)

// DefaultWindowTokens 是调用方未显式配置时建议使用的 Token 上限。
const DefaultWindowTokens = 8192

// ContextWindow 表示一个可供格式化的完整上下文窗口。
//
// 窗口是 Token 感知的：条目按优先级装入，超出预算的条目被
// 拒绝并作为溢出返回。ContextWindow 不是并发安全的，
// 由调用方（通常是单次流水线构建）独占使用。
type ContextWindow struct {
	items      []ContextItem
	maxTokens  int
	usedTokens int
	metadata   map[string]interface{}
}

// NewContextWindow 创建具有给定 Token 上限的空窗口。
// maxTokens 必须为正，否则返回包装了 ErrInvalidWindow 的错误。
func NewContextWindow(maxTokens int) (*ContextWindow, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidWindow, maxTokens)
	}
	return &ContextWindow{
		items:     make([]ContextItem, 0),
		maxTokens: maxTokens,
		metadata:  make(map[string]interface{}),
	}, nil
}

// MaxTokens 返回窗口的 Token 上限。
func (w *ContextWindow) MaxTokens() int { return w.maxTokens }

// UsedTokens 返回已装入条目的 Token 总量。
func (w *ContextWindow) UsedTokens() int { return w.usedTokens }

// RemainingTokens 返回剩余可用 Token 数，最小为 0。
func (w *ContextWindow) RemainingTokens() int {
	remaining := w.maxTokens - w.usedTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Utilization 返回 Token 预算的使用率（0.0-1.0）。
func (w *ContextWindow) Utilization() float64 {
	if w.maxTokens == 0 {
		return 0
	}
	u := float64(w.usedTokens) / float64(w.maxTokens)
	if u > 1 {
		return 1
	}
	return u
}

// Len 返回窗口中的条目数量。
func (w *ContextWindow) Len() int { return len(w.items) }

// Items 返回窗口条目的副本，顺序为装入顺序。
func (w *ContextWindow) Items() []ContextItem {
	out := make([]ContextItem, len(w.items))
	copy(out, w.items)
	return out
}

// AddItem 在 Token 预算允许时装入条目，返回是否装入成功。
// Token 数为 0 的条目视为免费，即使剩余预算为 0 也会被装入。
func (w *ContextWindow) AddItem(item ContextItem) bool {
	if item.TokenCount() > w.RemainingTokens() {
		return false
	}
	w.items = append(w.items, item)
	w.usedTokens += item.TokenCount()
	return true
}

// AddItemsByPriority 按优先级从高到低装入条目，返回未能装入的溢出条目。
//
// 排序键为（优先级降序，评分降序），排序是稳定的：
// 优先级与评分都相同的条目保持输入顺序。被高优先级大条目
// 挤掉预算后，后续更小的条目仍会尝试装入。
func (w *ContextWindow) AddItemsByPriority(items []ContextItem) []ContextItem {
	sorted := make([]ContextItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority() != sorted[j].Priority() {
			return sorted[i].Priority() > sorted[j].Priority()
		}
		return sorted[i].Score() > sorted[j].Score()
	})

	overflow := make([]ContextItem, 0)
	for _, item := range sorted {
		if !w.AddItem(item) {
			overflow = append(overflow, item)
		}
	}
	return overflow
}

// SetMetadata 设置窗口级元数据。
func (w *ContextWindow) SetMetadata(key string, value interface{}) {
	if w.metadata == nil {
		w.metadata = make(map[string]interface{})
	}
	w.metadata[key] = value
}

// GetMetadata 获取窗口级元数据。
func (w *ContextWindow) GetMetadata(key string) (interface{}, bool) {
	if w.metadata == nil {
		return nil, false
	}
	v, ok := w.metadata[key]
	return v, ok
}
