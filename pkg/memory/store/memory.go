// Package store 提供 MemoryEntryStore 的各种后端实现。
//
// 内置三种后端：进程内存储（默认）、SQLite 持久化存储
// 与 Neo4j 图存储。所有实现都返回条目快照，
// 且对 ListAllUnfiltered 不做过期过滤。
package store

import (
	"context"
	"sync"

	"github.com/easyops/astrocontext-go/pkg/memory"
)

// InMemoryStore 进程内记忆条目存储
//
// 基于 map 的非持久化存储，适用于测试与单进程场景。
// 所有方法并发安全，列表顺序为插入顺序。
type InMemoryStore struct {
	entries map[string]memory.MemoryEntry
	order   []string
	mu      sync.RWMutex
}

// NewInMemoryStore 创建进程内存储。
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memory.MemoryEntry),
		order:   make([]string, 0),
	}
}

// Add 写入或更新条目。
func (s *InMemoryStore) Add(ctx context.Context, entry memory.MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; !exists {
		s.order = append(s.order, entry.ID)
	}
	s.entries[entry.ID] = entry
	return nil
}

// Get 按 ID 读取条目。
func (s *InMemoryStore) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return memory.MemoryEntry{}, memory.ErrEntryNotFound
	}
	return entry, nil
}

// ListAllUnfiltered 返回全部条目（包括已过期的），按插入顺序。
func (s *InMemoryStore) ListAllUnfiltered(ctx context.Context) ([]memory.MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]memory.MemoryEntry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out, nil
}

// Delete 按 ID 删除条目，返回条目是否存在。
func (s *InMemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)

	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Clear 删除全部条目。
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memory.MemoryEntry)
	s.order = make([]string, 0)
	return nil
}

// Len 返回当前条目数量。
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// compile-time interface check
var _ memory.MemoryEntryStore = (*InMemoryStore)(nil)
