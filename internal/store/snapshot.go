package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrSnapshotNotFound 快照不存在
var ErrSnapshotNotFound = errors.New("snapshot not found")

// GetSnapshot 读取指定键的快照原文
func (s *Store) GetSnapshot(key string) ([]byte, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv_snapshots WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return []byte(value), nil
}

// PutSnapshot 整体替换指定键的快照
func (s *Store) PutSnapshot(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO kv_snapshots (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	return nil
}

// DeleteSnapshot 删除快照，不存在时不报错
func (s *Store) DeleteSnapshot(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv_snapshots WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}
	return nil
}
