package memory

import (
	"sync"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
	corerrors "github.com/easyops/astrocontext-go/pkg/core/errors"
	"github.com/easyops/astrocontext-go/pkg/otel"
)

// DefaultSummaryPriority 是摘要条目的默认优先级，
// 介于记忆条目（7）与检索条目（5）之间。
const DefaultSummaryPriority = 6

// SummaryBufferMemory 是两级记忆：近期轮次逐字保留，
// 被淘汰的轮次压缩为一条滚动摘要。
//
// 内部滑动窗口淘汰轮次时，压缩函数被调用并更新摘要。
// 必须配置 WithCompactor 与 WithProgressiveCompactor 中的恰好一个：
// 简单压缩只接收新淘汰的轮次，渐进压缩还会接收上一轮摘要。
// 压缩失败时保留旧摘要并记录日志，本次淘汰的轮次不会进入摘要。
type SummaryBufferMemory struct {
	window          *SlidingWindowMemory
	counter         ctxcore.TokenCounter
	compactor       Compactor
	progressive     ProgressiveCompactor
	summaryPriority int
	callbacks       []MemoryCallback
	logger          otel.Logger

	mu            sync.Mutex
	summary       string
	hasSummary    bool
	summaryTokens int
}

// SummaryBufferOption 配置 SummaryBufferMemory。
type SummaryBufferOption func(*SummaryBufferMemory)

// WithCompactor 设置简单压缩函数（与 WithProgressiveCompactor 互斥）。
func WithCompactor(compactor Compactor) SummaryBufferOption {
	return func(m *SummaryBufferMemory) {
		m.compactor = compactor
	}
}

// WithProgressiveCompactor 设置渐进压缩函数（与 WithCompactor 互斥）。
func WithProgressiveCompactor(compactor ProgressiveCompactor) SummaryBufferOption {
	return func(m *SummaryBufferMemory) {
		m.progressive = compactor
	}
}

// WithSummaryPriority 设置摘要条目的优先级（默认 6）。
func WithSummaryPriority(priority int) SummaryBufferOption {
	return func(m *SummaryBufferMemory) {
		m.summaryPriority = priority
	}
}

// WithSummaryCounter 设置 Token 计数器。
func WithSummaryCounter(counter ctxcore.TokenCounter) SummaryBufferOption {
	return func(m *SummaryBufferMemory) {
		m.counter = counter
	}
}

// WithSummaryCallbacks 注册记忆观察回调。
func WithSummaryCallbacks(callbacks ...MemoryCallback) SummaryBufferOption {
	return func(m *SummaryBufferMemory) {
		m.callbacks = append(m.callbacks, callbacks...)
	}
}

// WithSummaryLogger 设置日志器。
func WithSummaryLogger(logger otel.Logger) SummaryBufferOption {
	return func(m *SummaryBufferMemory) {
		m.logger = logger
	}
}

// NewSummaryBufferMemory 创建摘要缓冲记忆。
//
// maxTokens 是内部滑动窗口的 Token 预算，必须为正。
// 未配置压缩函数或同时配置两种压缩函数都会返回
// 包装了 ErrCompactorRequired 的错误。
func NewSummaryBufferMemory(maxTokens int, opts ...SummaryBufferOption) (*SummaryBufferMemory, error) {
	m := &SummaryBufferMemory{
		summaryPriority: DefaultSummaryPriority,
	}

	for _, opt := range opts {
		opt(m)
	}

	if (m.compactor == nil) == (m.progressive == nil) {
		return nil, ErrCompactorRequired
	}
	if m.counter == nil {
		m.counter = ctxcore.DefaultTokenCounter()
	}
	if m.logger == nil {
		m.logger = otel.NewSlogLogger(nil)
	}

	window, err := NewSlidingWindowMemory(maxTokens,
		WithTokenCounter(m.counter),
		WithOnEvict(m.handleEviction),
		WithMemoryCallbacks(m.callbacks...),
		WithMemoryLogger(m.logger),
	)
	if err != nil {
		return nil, err
	}
	m.window = window

	return m, nil
}

// handleEviction 由滑动窗口在轮次被淘汰后调用。
func (m *SummaryBufferMemory) handleEviction(evicted []ConversationTurn) {
	m.mu.Lock()

	previous := m.summary
	hadSummary := m.hasSummary

	var summary string
	var err error
	if m.progressive != nil {
		summary, err = m.progressive.Compact(evicted, previous)
	} else {
		summary, err = m.compactor.Compact(evicted)
	}

	if err != nil {
		// 压缩失败：保留旧摘要，淘汰的轮次就此丢失
		m.mu.Unlock()
		m.logger.Warn("summary compaction failed",
			"error", err,
			"evicted_turns", len(evicted),
			"retryable", corerrors.IsRetryable(err),
		)
		return
	}

	m.summary = summary
	m.hasSummary = true
	m.summaryTokens = m.counter.Count(summary)
	m.mu.Unlock()

	previousForCallback := ""
	if hadSummary {
		previousForCallback = previous
	}
	fireMemoryCallback(m.callbacks, m.logger, func(cb MemoryCallback) {
		cb.OnCompaction(evicted, summary, previousForCallback)
	})
}

// AddTurn 追加一个对话轮次。窗口超出预算时旧轮次被淘汰并压缩进摘要。
func (m *SummaryBufferMemory) AddTurn(role Role, content string) (ConversationTurn, error) {
	return m.window.AddTurn(role, content)
}

// AddTurnWithMetadata 追加携带元数据的对话轮次。
func (m *SummaryBufferMemory) AddTurnWithMetadata(role Role, content string, metadata map[string]interface{}) (ConversationTurn, error) {
	return m.window.AddTurnWithMetadata(role, content, metadata)
}

// Summary 返回当前滚动摘要，布尔值报告摘要是否存在。
func (m *SummaryBufferMemory) Summary() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary, m.hasSummary
}

// SummaryTokens 返回当前摘要的 Token 数量。
func (m *SummaryBufferMemory) SummaryTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryTokens
}

// Turns 返回滑动窗口内轮次的快照。
func (m *SummaryBufferMemory) Turns() []ConversationTurn {
	return m.window.Turns()
}

// TotalTokens 返回滑动窗口内的 Token 总量（不含摘要）。
func (m *SummaryBufferMemory) TotalTokens() int {
	return m.window.TotalTokens()
}

// ToContextItems 将摘要与窗口轮次转换为上下文条目。
//
// 摘要（如存在）作为第一个条目输出，使用摘要优先级、
// 评分 0.5，元数据标记 role=system、summary=true。
// 窗口轮次随后以给定优先级输出。
func (m *SummaryBufferMemory) ToContextItems(priority int) []ctxcore.ContextItem {
	items := make([]ctxcore.ContextItem, 0)

	m.mu.Lock()
	if m.hasSummary {
		items = append(items, ctxcore.NewContextItem(m.summary, ctxcore.SourceConversation,
			ctxcore.WithScore(0.5),
			ctxcore.WithPriority(m.summaryPriority),
			ctxcore.WithTokenCount(m.summaryTokens),
			ctxcore.WithItemMetadata("role", string(RoleSystem)),
			ctxcore.WithItemMetadata("summary", true),
		))
	}
	m.mu.Unlock()

	return append(items, m.window.ToContextItems(priority)...)
}

// Clear 清空滑动窗口与滚动摘要。
func (m *SummaryBufferMemory) Clear() {
	m.window.Clear()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.summary = ""
	m.hasSummary = false
	m.summaryTokens = 0
}
