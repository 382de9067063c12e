package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	corerrors "github.com/easyops/astrocontext-go/pkg/core/errors"
	"github.com/easyops/astrocontext-go/pkg/memory"
)

// Neo4jStore Neo4j 记忆条目存储
//
// 将记忆条目存储为 Memory 节点，适合与图谱类记忆共存的部署。
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

// Neo4jConfig Neo4j 连接配置
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
}

// NewNeo4jStore 创建 Neo4j 存储。
func NewNeo4jStore(config Neo4jConfig) (*Neo4jStore, error) {
	if config.URI == "" {
		config.URI = "bolt://localhost:7687"
	}

	auth := neo4j.NoAuth()
	if config.Username != "" && config.Password != "" {
		auth = neo4j.BasicAuth(config.Username, config.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(config.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create driver: %v", corerrors.ErrStoreUnavailable, err)
	}

	// 验证连接
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to verify connectivity: %v", corerrors.ErrStoreUnavailable, err)
	}

	store := &Neo4jStore{driver: driver}

	// 创建索引
	if err := store.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to create indexes: %v", corerrors.ErrStoreUnavailable, err)
	}

	return store, nil
}

// createIndexes 创建索引
func (s *Neo4jStore) createIndexes(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		"CREATE INDEX memory_id IF NOT EXISTS FOR (m:Memory) ON (m.id)", nil)
	return err
}

// Add 写入或更新条目（按 ID 幂等）。
func (s *Neo4jStore) Add(ctx context.Context, entry memory.MemoryEntry) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	tags, err := json.Marshal(entry.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var expiresAt interface{}
	if entry.ExpiresAt != nil {
		expiresAt = entry.ExpiresAt.UnixMilli()
	}

	query := `
	MERGE (m:Memory {id: $id})
	SET
		m.content = $content,
		m.relevance_score = $relevance_score,
		m.access_count = $access_count,
		m.last_accessed = $last_accessed,
		m.created_at = $created_at,
		m.updated_at = $updated_at,
		m.expires_at = $expires_at,
		m.memory_type = $memory_type,
		m.user_id = $user_id,
		m.session_id = $session_id,
		m.content_hash = $content_hash,
		m.tags = $tags,
		m.metadata = $metadata
	`

	params := map[string]interface{}{
		"id":              entry.ID,
		"content":         entry.Content,
		"relevance_score": entry.RelevanceScore,
		"access_count":    entry.AccessCount,
		"last_accessed":   entry.LastAccessed.UnixMilli(),
		"created_at":      entry.CreatedAt.UnixMilli(),
		"updated_at":      entry.UpdatedAt.UnixMilli(),
		"expires_at":      expiresAt,
		"memory_type":     string(entry.Type),
		"user_id":         entry.UserID,
		"session_id":      entry.SessionID,
		"content_hash":    entry.ContentHash,
		"tags":            string(tags),
		"metadata":        string(metadata),
	}

	_, err = session.Run(ctx, query, params)
	return err
}

// Get 按 ID 读取条目。
func (s *Neo4jStore) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (m:Memory {id: $id}) RETURN m`,
		map[string]interface{}{"id": id})
	if err != nil {
		return memory.MemoryEntry{}, err
	}

	if result.Next(ctx) {
		record := result.Record()
		nodeVal, _ := record.Get("m")
		node, ok := nodeVal.(neo4j.Node)
		if !ok {
			return memory.MemoryEntry{}, fmt.Errorf("unexpected record type %T", nodeVal)
		}
		return nodeToEntry(node)
	}

	return memory.MemoryEntry{}, memory.ErrEntryNotFound
}

// ListAllUnfiltered 返回全部条目（包括已过期的）。
func (s *Neo4jStore) ListAllUnfiltered(ctx context.Context) ([]memory.MemoryEntry, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (m:Memory) RETURN m ORDER BY m.created_at ASC`, nil)
	if err != nil {
		return nil, err
	}

	var entries []memory.MemoryEntry
	for result.Next(ctx) {
		nodeVal, _ := result.Record().Get("m")
		node, ok := nodeVal.(neo4j.Node)
		if !ok {
			continue
		}
		entry, err := nodeToEntry(node)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, result.Err()
}

// Delete 按 ID 删除条目，返回条目是否存在。
func (s *Neo4jStore) Delete(ctx context.Context, id string) (bool, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (m:Memory {id: $id}) DETACH DELETE m RETURN count(m) AS deleted`,
		map[string]interface{}{"id": id})
	if err != nil {
		return false, err
	}

	if result.Next(ctx) {
		deletedVal, _ := result.Record().Get("deleted")
		if deleted, ok := deletedVal.(int64); ok {
			return deleted > 0, nil
		}
	}

	return false, result.Err()
}

// Clear 删除全部条目。
func (s *Neo4jStore) Clear(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `MATCH (m:Memory) DETACH DELETE m`, nil)
	return err
}

// Close 关闭驱动连接。
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// nodeToEntry 从 Neo4j 节点还原记忆条目。
func nodeToEntry(node neo4j.Node) (memory.MemoryEntry, error) {
	props := node.Props

	entry := memory.MemoryEntry{
		ID:             stringProp(props, "id"),
		Content:        stringProp(props, "content"),
		RelevanceScore: floatProp(props, "relevance_score"),
		AccessCount:    int(intProp(props, "access_count")),
		LastAccessed:   time.UnixMilli(intProp(props, "last_accessed")).UTC(),
		CreatedAt:      time.UnixMilli(intProp(props, "created_at")).UTC(),
		UpdatedAt:      time.UnixMilli(intProp(props, "updated_at")).UTC(),
		Type:           memory.MemoryType(stringProp(props, "memory_type")),
		UserID:         stringProp(props, "user_id"),
		SessionID:      stringProp(props, "session_id"),
		ContentHash:    stringProp(props, "content_hash"),
	}

	if raw, ok := props["expires_at"]; ok && raw != nil {
		if ms, ok := raw.(int64); ok {
			t := time.UnixMilli(ms).UTC()
			entry.ExpiresAt = &t
		}
	}

	if tags := stringProp(props, "tags"); tags != "" {
		if err := json.Unmarshal([]byte(tags), &entry.Tags); err != nil {
			return memory.MemoryEntry{}, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if metadata := stringProp(props, "metadata"); metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
			return memory.MemoryEntry{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return entry, nil
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func intProp(props map[string]interface{}, key string) int64 {
	if v, ok := props[key].(int64); ok {
		return v
	}
	return 0
}

func floatProp(props map[string]interface{}, key string) float64 {
	if v, ok := props[key].(float64); ok {
		return v
	}
	return 0
}

// compile-time interface check
var _ memory.MemoryEntryStore = (*Neo4jStore)(nil)
