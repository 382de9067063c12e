// Package memory 提供对话记忆与长期记忆管理能力。
//
// 本包实现滑动窗口对话记忆、摘要缓冲记忆、可插拔的淘汰策略
// 与衰减曲线，以及长期记忆条目的垃圾回收。
package memory

import (
	"time"
)

// Role 表示对话轮次的角色。
type Role string

const (
	// RoleUser 表示用户消息。
	RoleUser Role = "user"

	// RoleAssistant 表示助手消息。
	RoleAssistant Role = "assistant"

	// RoleSystem 表示系统消息。
	RoleSystem Role = "system"

	// RoleTool 表示工具输出消息。
	RoleTool Role = "tool"
)

// ConversationTurn 表示对话中的单个轮次。
type ConversationTurn struct {
	// Role 是发言角色。
	Role Role

	// Content 是消息文本。
	Content string

	// TokenCount 是内容的 Token 数量。
	TokenCount int

	// Timestamp 是轮次创建时间。
	Timestamp time.Time

	// Metadata 是附加在轮次上的任意键值数据。
	Metadata map[string]interface{}
}

// NewConversationTurn 创建新的对话轮次，时间戳为当前时间。
func NewConversationTurn(role Role, content string) ConversationTurn {
	return ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
	}
}
