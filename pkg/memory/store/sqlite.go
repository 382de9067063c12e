package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	corerrors "github.com/easyops/astrocontext-go/pkg/core/errors"
	"github.com/easyops/astrocontext-go/pkg/memory"
)

// SQLiteStore SQLite 记忆条目存储
//
// 基于 SQLite 的持久化存储，适用于生产环境。
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 创建 SQLite 存储。
// 数据库无法打开或初始化时返回包装了 ErrStoreUnavailable 的错误。
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", corerrors.ErrStoreUnavailable, err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: failed to ping database: %v", corerrors.ErrStoreUnavailable, err)
	}

	store := &SQLiteStore{db: db}

	// 初始化表结构
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("%w: failed to init schema: %v", corerrors.ErrStoreUnavailable, err)
	}

	return store, nil
}

// initSchema 初始化表结构
func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS memory_entries (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		relevance_score REAL NOT NULL,
		access_count INTEGER NOT NULL,
		last_accessed INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER,
		memory_type TEXT NOT NULL,
		user_id TEXT,
		session_id TEXT,
		content_hash TEXT NOT NULL,
		tags TEXT,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memory_entries_expires_at ON memory_entries(expires_at);
	CREATE INDEX IF NOT EXISTS idx_memory_entries_last_accessed ON memory_entries(last_accessed);
	`

	_, err := s.db.Exec(query)
	return err
}

// Add 写入或更新条目（按 ID 幂等）。
func (s *SQLiteStore) Add(ctx context.Context, entry memory.MemoryEntry) error {
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
	INSERT INTO memory_entries (
		id, content, relevance_score, access_count, last_accessed,
		created_at, updated_at, expires_at, memory_type,
		user_id, session_id, content_hash, tags, metadata
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		content = excluded.content,
		relevance_score = excluded.relevance_score,
		access_count = excluded.access_count,
		last_accessed = excluded.last_accessed,
		updated_at = excluded.updated_at,
		expires_at = excluded.expires_at,
		memory_type = excluded.memory_type,
		user_id = excluded.user_id,
		session_id = excluded.session_id,
		content_hash = excluded.content_hash,
		tags = excluded.tags,
		metadata = excluded.metadata
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.Content, entry.RelevanceScore, entry.AccessCount,
		entry.LastAccessed.UnixMilli(), entry.CreatedAt.UnixMilli(),
		entry.UpdatedAt.UnixMilli(), expiresAt, string(entry.Type),
		entry.UserID, entry.SessionID, entry.ContentHash,
		string(tags), string(metadata),
	)
	return err
}

// Get 按 ID 读取条目。
func (s *SQLiteStore) Get(ctx context.Context, id string) (memory.MemoryEntry, error) {
	query := selectColumns + ` FROM memory_entries WHERE id = ?`

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return memory.MemoryEntry{}, memory.ErrEntryNotFound
	}
	if err != nil {
		return memory.MemoryEntry{}, err
	}
	return entry, nil
}

// ListAllUnfiltered 返回全部条目（包括已过期的）。
func (s *SQLiteStore) ListAllUnfiltered(ctx context.Context) ([]memory.MemoryEntry, error) {
	query := selectColumns + ` FROM memory_entries ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []memory.MemoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Delete 按 ID 删除条目，返回条目是否存在。
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE id = ?`, id)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Clear 删除全部条目。
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memory_entries`)
	return err
}

// Count 返回当前条目数量。
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_entries`).Scan(&count)
	return count, err
}

// Close 关闭数据库连接。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, content, relevance_score, access_count, last_accessed,
	created_at, updated_at, expires_at, memory_type,
	user_id, session_id, content_hash, tags, metadata`

// rowScanner 同时适配 *sql.Row 与 *sql.Rows。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry 从查询结果还原记忆条目。
func scanEntry(row rowScanner) (memory.MemoryEntry, error) {
	var entry memory.MemoryEntry
	var lastAccessed, createdAt, updatedAt int64
	var expiresAt sql.NullInt64
	var memoryType string
	var userID, sessionID sql.NullString
	var tagsStr, metadataStr sql.NullString

	err := row.Scan(
		&entry.ID, &entry.Content, &entry.RelevanceScore, &entry.AccessCount,
		&lastAccessed, &createdAt, &updatedAt, &expiresAt, &memoryType,
		&userID, &sessionID, &entry.ContentHash, &tagsStr, &metadataStr,
	)
	if err != nil {
		return memory.MemoryEntry{}, err
	}

	entry.LastAccessed = time.UnixMilli(lastAccessed).UTC()
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	entry.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if expiresAt.Valid {
		t := time.UnixMilli(expiresAt.Int64).UTC()
		entry.ExpiresAt = &t
	}
	entry.Type = memory.MemoryType(memoryType)
	entry.UserID = userID.String
	entry.SessionID = sessionID.String

	if tagsStr.Valid && tagsStr.String != "" {
		if err := json.Unmarshal([]byte(tagsStr.String), &entry.Tags); err != nil {
			return memory.MemoryEntry{}, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if metadataStr.Valid && metadataStr.String != "" {
		if err := json.Unmarshal([]byte(metadataStr.String), &entry.Metadata); err != nil {
			return memory.MemoryEntry{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return entry, nil
}

// compile-time interface check
var _ memory.MemoryEntryStore = (*SQLiteStore)(nil)
