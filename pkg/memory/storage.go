package memory

import (
	"context"
	"errors"
)

// ErrEntryNotFound 表示请求的记忆条目不存在。
var ErrEntryNotFound = errors.New("memory entry not found")

// MemoryEntryStore 定义长期记忆条目的存储接口。
//
// ListAllUnfiltered 必须返回包括已过期条目在内的全部条目，
// 垃圾回收器依赖这一点来识别并删除过期条目。
type MemoryEntryStore interface {
	// Add 写入或更新一个条目（按 ID 幂等）。
	Add(ctx context.Context, entry MemoryEntry) error

	// Get 按 ID 读取条目，不存在时返回 ErrEntryNotFound。
	Get(ctx context.Context, id string) (MemoryEntry, error)

	// ListAllUnfiltered 返回全部条目，包括已过期的。
	ListAllUnfiltered(ctx context.Context) ([]MemoryEntry, error)

	// Delete 按 ID 删除条目，返回条目是否存在。
	Delete(ctx context.Context, id string) (bool, error)

	// Clear 删除全部条目。
	Clear(ctx context.Context) error
}
