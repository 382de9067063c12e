package memory

import (
	ctxcore "github.com/easyops/astrocontext-go/pkg/context"
)

// ConversationMemory 是对话记忆后端的公共接口，
// 由 SlidingWindowMemory 与 SummaryBufferMemory 实现。
type ConversationMemory interface {
	// AddTurn 追加一个对话轮次。
	AddTurn(role Role, content string) (ConversationTurn, error)

	// Turns 返回当前保留的轮次快照。
	Turns() []ConversationTurn

	// TotalTokens 返回保留轮次的 Token 总量。
	TotalTokens() int

	// ToContextItems 将记忆内容转换为上下文条目。
	ToContextItems(priority int) []ctxcore.ContextItem

	// Clear 清空记忆。
	Clear()
}

// DefaultMemoryPriority 是记忆条目进入流水线时的默认优先级。
const DefaultMemoryPriority = 7

// MemoryManager 协调对话记忆并向流水线输出上下文条目。
//
// 后端在构造时二选一：默认使用滑动窗口，配置了压缩函数时
// 使用摘要缓冲。构造后不可更换。
type MemoryManager struct {
	conversation ConversationMemory
}

// ManagerOption 配置 MemoryManager。
type ManagerOption func(*managerConfig)

type managerConfig struct {
	counter     ctxcore.TokenCounter
	compactor   Compactor
	progressive ProgressiveCompactor
	callbacks   []MemoryCallback
}

// WithManagerCounter 设置 Token 计数器。
func WithManagerCounter(counter ctxcore.TokenCounter) ManagerOption {
	return func(c *managerConfig) {
		c.counter = counter
	}
}

// WithSummaryBackend 选择摘要缓冲后端并设置简单压缩函数。
func WithSummaryBackend(compactor Compactor) ManagerOption {
	return func(c *managerConfig) {
		c.compactor = compactor
	}
}

// WithProgressiveSummaryBackend 选择摘要缓冲后端并设置渐进压缩函数。
func WithProgressiveSummaryBackend(compactor ProgressiveCompactor) ManagerOption {
	return func(c *managerConfig) {
		c.progressive = compactor
	}
}

// WithManagerCallbacks 注册记忆观察回调。
func WithManagerCallbacks(callbacks ...MemoryCallback) ManagerOption {
	return func(c *managerConfig) {
		c.callbacks = append(c.callbacks, callbacks...)
	}
}

// NewMemoryManager 创建记忆管理器。
// conversationTokens 是对话记忆的 Token 预算，必须为正。
func NewMemoryManager(conversationTokens int, opts ...ManagerOption) (*MemoryManager, error) {
	cfg := &managerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.counter == nil {
		cfg.counter = ctxcore.DefaultTokenCounter()
	}

	var conversation ConversationMemory
	if cfg.compactor != nil || cfg.progressive != nil {
		sbOpts := []SummaryBufferOption{
			WithSummaryCounter(cfg.counter),
			WithSummaryCallbacks(cfg.callbacks...),
		}
		if cfg.compactor != nil {
			sbOpts = append(sbOpts, WithCompactor(cfg.compactor))
		}
		if cfg.progressive != nil {
			sbOpts = append(sbOpts, WithProgressiveCompactor(cfg.progressive))
		}
		sb, err := NewSummaryBufferMemory(conversationTokens, sbOpts...)
		if err != nil {
			return nil, err
		}
		conversation = sb
	} else {
		sw, err := NewSlidingWindowMemory(conversationTokens,
			WithTokenCounter(cfg.counter),
			WithMemoryCallbacks(cfg.callbacks...),
		)
		if err != nil {
			return nil, err
		}
		conversation = sw
	}

	return &MemoryManager{conversation: conversation}, nil
}

// Conversation 返回底层对话记忆。
func (m *MemoryManager) Conversation() ConversationMemory {
	return m.conversation
}

// AddUserMessage 追加用户消息。
func (m *MemoryManager) AddUserMessage(content string) error {
	_, err := m.conversation.AddTurn(RoleUser, content)
	return err
}

// AddAssistantMessage 追加助手消息。
func (m *MemoryManager) AddAssistantMessage(content string) error {
	_, err := m.conversation.AddTurn(RoleAssistant, content)
	return err
}

// AddSystemMessage 追加系统消息。
func (m *MemoryManager) AddSystemMessage(content string) error {
	_, err := m.conversation.AddTurn(RoleSystem, content)
	return err
}

// AddToolMessage 追加工具消息。
func (m *MemoryManager) AddToolMessage(content string) error {
	_, err := m.conversation.AddTurn(RoleTool, content)
	return err
}

// GetContextItems 以给定优先级输出全部记忆条目。
func (m *MemoryManager) GetContextItems(priority int) []ctxcore.ContextItem {
	return m.conversation.ToContextItems(priority)
}

// Clear 清空全部记忆。
func (m *MemoryManager) Clear() {
	m.conversation.Clear()
}

// 编译时接口检查
var _ ConversationMemory = (*SlidingWindowMemory)(nil)
var _ ConversationMemory = (*SummaryBufferMemory)(nil)
