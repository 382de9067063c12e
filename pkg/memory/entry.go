package memory

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// MemoryType 按认知类型对记忆条目分类。
type MemoryType string

const (
	// MemoryTypeSemantic 表示语义记忆（事实与知识）。
	MemoryTypeSemantic MemoryType = "semantic"

	// MemoryTypeEpisodic 表示情景记忆（事件与经历）。
	MemoryTypeEpisodic MemoryType = "episodic"

	// MemoryTypeProcedural 表示程序性记忆（操作与流程）。
	MemoryTypeProcedural MemoryType = "procedural"

	// MemoryTypeConversation 表示对话记忆。
	MemoryTypeConversation MemoryType = "conversation"
)

// MemoryEntry 表示带相关性追踪的持久化记忆条目。
type MemoryEntry struct {
	// ID 是条目的唯一标识。
	ID string

	// Content 是记忆内容。
	Content string

	// RelevanceScore 是相关性评分（0.0-1.0）。
	RelevanceScore float64

	// AccessCount 是条目被访问的次数。
	AccessCount int

	// LastAccessed 是最近一次访问时间。
	LastAccessed time.Time

	// CreatedAt 是条目创建时间。
	CreatedAt time.Time

	// UpdatedAt 是条目最近更新时间。
	UpdatedAt time.Time

	// ExpiresAt 是过期时间，nil 表示永不过期。
	ExpiresAt *time.Time

	// Type 是记忆的认知类型。
	Type MemoryType

	// UserID 标识条目所属用户，可为空。
	UserID string

	// SessionID 标识条目所属会话，可为空。
	SessionID string

	// ContentHash 是内容的 MD5 摘要，用于去重。
	ContentHash string

	// Tags 是条目标签。
	Tags []string

	// Metadata 是附加键值数据。
	Metadata map[string]interface{}
}

// EntryOption 配置 MemoryEntry。
type EntryOption func(*MemoryEntry)

// WithEntryID 指定条目 ID（默认自动生成 UUID）。
func WithEntryID(id string) EntryOption {
	return func(e *MemoryEntry) {
		e.ID = id
	}
}

// WithRelevance 设置相关性评分。
func WithRelevance(score float64) EntryOption {
	return func(e *MemoryEntry) {
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		e.RelevanceScore = score
	}
}

// WithMemoryType 设置记忆类型。
func WithMemoryType(t MemoryType) EntryOption {
	return func(e *MemoryEntry) {
		e.Type = t
	}
}

// WithTags 设置条目标签。
func WithTags(tags ...string) EntryOption {
	return func(e *MemoryEntry) {
		e.Tags = tags
	}
}

// WithExpiresAt 设置过期时间。
func WithExpiresAt(t time.Time) EntryOption {
	return func(e *MemoryEntry) {
		e.ExpiresAt = &t
	}
}

// WithUserID 设置所属用户。
func WithUserID(userID string) EntryOption {
	return func(e *MemoryEntry) {
		e.UserID = userID
	}
}

// WithSessionID 设置所属会话。
func WithSessionID(sessionID string) EntryOption {
	return func(e *MemoryEntry) {
		e.SessionID = sessionID
	}
}

// WithEntryMetadata 设置单个元数据键值。
func WithEntryMetadata(key string, value interface{}) EntryOption {
	return func(e *MemoryEntry) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]interface{})
		}
		e.Metadata[key] = value
	}
}

// NewMemoryEntry 创建新的记忆条目。
// 默认相关性评分为 0.5，类型为语义记忆。
func NewMemoryEntry(content string, opts ...EntryOption) MemoryEntry {
	now := time.Now().UTC()
	e := MemoryEntry{
		ID:             uuid.NewString(),
		Content:        content,
		RelevanceScore: 0.5,
		LastAccessed:   now,
		CreatedAt:      now,
		UpdatedAt:      now,
		Type:           MemoryTypeSemantic,
		Tags:           make([]string, 0),
		Metadata:       make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(&e)
	}

	if e.ContentHash == "" {
		e.ContentHash = contentHash(e.Content)
	}

	return e
}

// IsExpired 报告条目是否已过期。
func (e MemoryEntry) IsExpired() bool {
	if e.ExpiresAt == nil {
		return false
	}
	return !time.Now().UTC().Before(*e.ExpiresAt)
}

// Touch 返回访问计数加一、访问时间刷新后的条目副本。
func (e MemoryEntry) Touch() MemoryEntry {
	clone := e
	clone.AccessCount++
	clone.LastAccessed = time.Now().UTC()
	return clone
}

// contentHash 计算内容的 MD5 摘要（仅用于去重，非安全用途）。
func contentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
