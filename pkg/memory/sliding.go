package memory

import (
	"fmt"
	"math"
	"sort"
	"sync"

	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
	"github.com/easyops/astrocontext-go/pkg/otel"
)

// DefaultConversationTokens 是对话记忆的默认 Token 预算。
const DefaultConversationTokens = 4096

// EvictFn 在轮次被淘汰后接收被淘汰的轮次（从旧到新）。
type EvictFn func(evicted []ConversationTurn)

// SlidingWindowMemory 在 Token 预算内维护滚动的对话窗口。
//
// 新轮次导致超出预算时，由淘汰策略选择要移除的旧轮次
// （默认 FIFO）。单个轮次超过整个预算时会被截断。
// 所有公开方法都是并发安全的，读取方法返回内部状态的快照。
type SlidingWindowMemory struct {
	maxTokens   int
	counter     ctxcore.TokenCounter
	policy      EvictionPolicy
	scorer      RecencyScorer
	onEvict     EvictFn
	callbacks   []MemoryCallback
	logger      otel.Logger
	turns       []ConversationTurn
	totalTokens int
	mu          sync.Mutex
}

// SlidingWindowOption 配置 SlidingWindowMemory。
type SlidingWindowOption func(*SlidingWindowMemory)

// WithTokenCounter 设置 Token 计数器。
func WithTokenCounter(counter ctxcore.TokenCounter) SlidingWindowOption {
	return func(m *SlidingWindowMemory) {
		m.counter = counter
	}
}

// WithEvictionPolicy 设置淘汰策略（默认 FIFO）。
func WithEvictionPolicy(policy EvictionPolicy) SlidingWindowOption {
	return func(m *SlidingWindowMemory) {
		m.policy = policy
	}
}

// WithRecencyScorer 设置新近度评分器（默认线性，最旧 0.5）。
func WithRecencyScorer(scorer RecencyScorer) SlidingWindowOption {
	return func(m *SlidingWindowMemory) {
		m.scorer = scorer
	}
}

// WithOnEvict 设置淘汰通知函数。
func WithOnEvict(fn EvictFn) SlidingWindowOption {
	return func(m *SlidingWindowMemory) {
		m.onEvict = fn
	}
}

// WithMemoryCallbacks 注册记忆观察回调。
func WithMemoryCallbacks(callbacks ...MemoryCallback) SlidingWindowOption {
	return func(m *SlidingWindowMemory) {
		m.callbacks = append(m.callbacks, callbacks...)
	}
}

// WithMemoryLogger 设置日志器。
func WithMemoryLogger(logger otel.Logger) SlidingWindowOption {
	return func(m *SlidingWindowMemory) {
		m.logger = logger
	}
}

// NewSlidingWindowMemory 创建滑动窗口记忆。
// maxTokens 必须为正，否则返回包装了 ErrInvalidMaxTokens 的错误。
func NewSlidingWindowMemory(maxTokens int, opts ...SlidingWindowOption) (*SlidingWindowMemory, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxTokens, maxTokens)
	}

	m := &SlidingWindowMemory{
		maxTokens: maxTokens,
		policy:    FIFOEviction{},
		turns:     make([]ConversationTurn, 0),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.counter == nil {
		m.counter = ctxcore.DefaultTokenCounter()
	}
	if m.scorer == nil {
		// 默认线性评分：最旧 0.5，最新 1.0
		scorer, err := NewLinearRecencyScorer(0.5)
		if err != nil {
			return nil, err
		}
		m.scorer = scorer
	}
	if m.logger == nil {
		m.logger = otel.NewSlogLogger(nil)
	}

	return m, nil
}

// AddTurn 追加一个对话轮次，必要时先淘汰旧轮次。
//
// 单个轮次超过整个预算时内容会被截断到预算上限，
// 并在元数据中标记 truncated=true。返回实际存储的轮次。
func (m *SlidingWindowMemory) AddTurn(role Role, content string) (ConversationTurn, error) {
	return m.AddTurnWithMetadata(role, content, nil)
}

// AddTurnWithMetadata 追加携带元数据的对话轮次。
func (m *SlidingWindowMemory) AddTurnWithMetadata(role Role, content string, metadata map[string]interface{}) (ConversationTurn, error) {
	turn := NewConversationTurn(role, content)
	for k, v := range metadata {
		turn.Metadata[k] = v
	}
	turn.TokenCount = m.counter.Count(content)

	// 单轮超出整个预算：截断到预算上限
	if turn.TokenCount > m.maxTokens {
		turn.Content = m.counter.Truncate(content, m.maxTokens)
		turn.TokenCount = m.maxTokens
		turn.Metadata["truncated"] = true
	}

	m.mu.Lock()
	evicted := m.evictLocked(turn.TokenCount)
	m.turns = append(m.turns, turn)
	m.totalTokens += turn.TokenCount
	remaining := m.totalTokens
	m.mu.Unlock()

	if len(evicted) > 0 {
		m.notifyEviction(evicted, remaining)
	}

	return turn, nil
}

// evictLocked 淘汰旧轮次直到新轮次能够装入，返回被淘汰的轮次。
// 调用方必须持有锁。
func (m *SlidingWindowMemory) evictLocked(incomingTokens int) []ConversationTurn {
	evicted := make([]ConversationTurn, 0)

	for len(m.turns) > 0 && m.totalTokens+incomingTokens > m.maxTokens {
		tokensToFree := m.totalTokens + incomingTokens - m.maxTokens
		removed := m.removeLocked(m.policy.SelectForEviction(m.turns, tokensToFree))
		if len(removed) == 0 {
			// 策略选择为空或全部越界，退回 FIFO 以保证推进
			removed = m.removeLocked([]int{0})
		}
		evicted = append(evicted, removed...)
	}

	return evicted
}

// removeLocked 按下标移除轮次并更新 Token 总量，
// 返回被移除的轮次（保持原有顺序）。调用方必须持有锁。
func (m *SlidingWindowMemory) removeLocked(indices []int) []ConversationTurn {
	sorted := make([]int, 0, len(indices))
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(m.turns) || seen[idx] {
			continue
		}
		seen[idx] = true
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	removed := make([]ConversationTurn, 0, len(sorted))
	kept := make([]ConversationTurn, 0, len(m.turns)-len(sorted))
	for i, turn := range m.turns {
		if seen[i] {
			removed = append(removed, turn)
			m.totalTokens -= turn.TokenCount
		} else {
			kept = append(kept, turn)
		}
	}
	m.turns = kept
	return removed
}

// notifyEviction 触发淘汰通知与观察回调，隔离其中的 panic。
func (m *SlidingWindowMemory) notifyEviction(evicted []ConversationTurn, remainingTokens int) {
	if m.onEvict != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Warn("eviction notification panicked", "panic", r)
				}
			}()
			m.onEvict(evicted)
		}()
	}

	fireMemoryCallback(m.callbacks, m.logger, func(cb MemoryCallback) {
		cb.OnEviction(evicted, remainingTokens)
	})
}

// Turns 返回当前窗口内轮次的快照（从旧到新）。
func (m *SlidingWindowMemory) Turns() []ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ConversationTurn, len(m.turns))
	copy(out, m.turns)
	return out
}

// TotalTokens 返回窗口内轮次的 Token 总量。
func (m *SlidingWindowMemory) TotalTokens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalTokens
}

// MaxTokens 返回窗口的 Token 预算。
func (m *SlidingWindowMemory) MaxTokens() int {
	return m.maxTokens
}

// Len 返回当前窗口内的轮次数量。
func (m *SlidingWindowMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

// ToContextItems 将窗口内的轮次转换为上下文条目。
//
// 内容原样存储、不加角色前缀，角色放在元数据 "role" 键下，
// 由下游格式化器自行处理，避免双重角色前缀。
// 评分由新近度评分器给出（默认最旧 0.5、最新 1.0）。
func (m *SlidingWindowMemory) ToContextItems(priority int) []ctxcore.ContextItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]ctxcore.ContextItem, 0, len(m.turns))
	total := len(m.turns)
	for i, turn := range m.turns {
		score := math.Round(m.scorer.Score(i, total)*10000) / 10000
		opts := []ctxcore.ItemOption{
			ctxcore.WithScore(score),
			ctxcore.WithPriority(priority),
			ctxcore.WithTokenCount(turn.TokenCount),
			ctxcore.WithCreatedAt(turn.Timestamp),
			ctxcore.WithItemMetadata("role", string(turn.Role)),
		}
		for k, v := range turn.Metadata {
			opts = append(opts, ctxcore.WithItemMetadata(k, v))
		}
		items = append(items, ctxcore.NewContextItem(turn.Content, ctxcore.SourceConversation, opts...))
	}
	return items
}

// Clear 清空窗口。
func (m *SlidingWindowMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = make([]ConversationTurn, 0)
	m.totalTokens = 0
}
