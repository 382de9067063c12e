package ctxcore

import (
	"time"

	"github.com/google/uuid"
)

// SourceType 表示上下文条目的来源类型。
type SourceType string

const (
	// SourceRetrieval 表示来自检索的条目。
	SourceRetrieval SourceType = "retrieval"

	// SourceMemory 表示来自记忆层的条目。
	SourceMemory SourceType = "memory"

	// SourceSystem 表示系统指令条目。
	SourceSystem SourceType = "system"

	// SourceUser 表示用户提供的条目。
	SourceUser SourceType = "user"

	// SourceTool 表示工具输出条目。
	SourceTool SourceType = "tool"

	// SourceConversation 表示对话历史条目。
	SourceConversation SourceType = "conversation"
)

// ContextItem 表示将被装入 LLM 提示词的单个上下文单元。
//
// 条目创建后不可变：所有字段均为私有，只能通过访问器读取。
// 需要变更时使用 Transform 生成携带变更的新条目，
// 原条目保持不变，避免上下文污染类缺陷。
type ContextItem struct {
	id         string
	content    string
	source     SourceType
	score      float64
	priority   int
	tokenCount int
	metadata   map[string]interface{}
	createdAt  time.Time
}

// ItemOption 配置 ContextItem。
type ItemOption func(*ContextItem)

// WithScore 设置相关性评分（0.0-1.0，超出范围会被钳制）。
func WithScore(score float64) ItemOption {
	return func(it *ContextItem) {
		it.score = clampScore(score)
	}
}

// WithPriority 设置优先级（1-10，超出范围会被钳制）。
func WithPriority(priority int) ItemOption {
	return func(it *ContextItem) {
		it.priority = clampPriority(priority)
	}
}

// WithTokenCount 设置 Token 数量（跳过后续的自动计数）。
func WithTokenCount(count int) ItemOption {
	return func(it *ContextItem) {
		if count < 0 {
			count = 0
		}
		it.tokenCount = count
	}
}

// WithItemMetadata 设置单个元数据键值。
func WithItemMetadata(key string, value interface{}) ItemOption {
	return func(it *ContextItem) {
		if it.metadata == nil {
			it.metadata = make(map[string]interface{})
		}
		it.metadata[key] = value
	}
}

// WithContent 替换条目内容。通常与 Transform 配合使用。
func WithContent(content string) ItemOption {
	return func(it *ContextItem) {
		it.content = content
	}
}

// WithCreatedAt 设置条目创建时间。
func WithCreatedAt(ts time.Time) ItemOption {
	return func(it *ContextItem) {
		it.createdAt = ts
	}
}

// NewContextItem 使用给定的内容、来源和选项创建新的 ContextItem。
// 默认优先级为 5，评分为 0.0。
func NewContextItem(content string, source SourceType, opts ...ItemOption) ContextItem {
	it := ContextItem{
		id:        uuid.NewString(),
		content:   content,
		source:    source,
		priority:  5,
		createdAt: time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(&it)
	}

	return it
}

// Transform 返回应用了给定选项的条目副本，接收者保持不变。
// 元数据会被深拷贝，副本保留原条目的 ID 与创建时间。
func (it ContextItem) Transform(opts ...ItemOption) ContextItem {
	clone := it
	clone.metadata = copyMetadata(it.metadata)

	for _, opt := range opts {
		opt(&clone)
	}

	return clone
}

// ID 返回条目的唯一标识。
func (it ContextItem) ID() string { return it.id }

// Content 返回条目内容。
func (it ContextItem) Content() string { return it.content }

// Source 返回条目来源类型。
func (it ContextItem) Source() SourceType { return it.source }

// Score 返回相关性评分。
func (it ContextItem) Score() float64 { return it.score }

// Priority 返回优先级（数值越大越优先）。
func (it ContextItem) Priority() int { return it.priority }

// TokenCount 返回条目的 Token 数量。
func (it ContextItem) TokenCount() int { return it.tokenCount }

// CreatedAt 返回条目创建时间。
func (it ContextItem) CreatedAt() time.Time { return it.createdAt }

// Metadata 返回元数据的副本，调用方修改副本不影响条目本身。
func (it ContextItem) Metadata() map[string]interface{} {
	return copyMetadata(it.metadata)
}

// MetadataValue 获取单个元数据值。
func (it ContextItem) MetadataValue(key string) (interface{}, bool) {
	if it.metadata == nil {
		return nil, false
	}
	v, ok := it.metadata[key]
	return v, ok
}

func copyMetadata(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func clampPriority(priority int) int {
	if priority < 1 {
		return 1
	}
	if priority > 10 {
		return 10
	}
	return priority
}
