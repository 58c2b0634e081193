package store

import (
	"encoding/json"
	"fmt"
	"time"

	"marksheet/internal/model"
)

// MergeLog 花名册合并记录
type MergeLog struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	RosterFormat string    `json:"rosterFormat"`
	TotalRows    int       `json:"totalRows"`
	MatchedRows  int       `json:"matchedRows"`
	UpdatedRows  int       `json:"updatedRows"`
	Collisions   int       `json:"collisions"`
	UnmappedKeys int       `json:"unmappedKeys"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateMergeLog 写入合并日志，返回 merge_log_id
func (s *Store) CreateMergeLog(filename string, format model.RosterFormat, report *model.MergeReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to encode merge report: %w", err)
	}
	res, err := s.db.Exec(`
		INSERT INTO merge_logs (
			filename, roster_format,
			total_rows, matched_rows, updated_rows,
			collisions, unmapped_keys, report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		filename, string(format),
		report.TotalRows, report.MatchedRows, report.UpdatedCount,
		len(report.Collisions), len(report.UnmappedKeys), string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create merge log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get merge log id: %w", err)
	}
	return id, nil
}

// ListMergeLogs 最近的合并日志（按时间倒序）
func (s *Store) ListMergeLogs(limit int) ([]MergeLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, filename, roster_format, total_rows, matched_rows, updated_rows,
			collisions, unmapped_keys, created_at
		FROM merge_logs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge logs: %w", err)
	}
	defer rows.Close()

	logs := []MergeLog{}
	for rows.Next() {
		var l MergeLog
		if err := rows.Scan(
			&l.ID, &l.Filename, &l.RosterFormat, &l.TotalRows, &l.MatchedRows, &l.UpdatedRows,
			&l.Collisions, &l.UnmappedKeys, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// CreateExportLog 记录一次汇总导出
func (s *Store) CreateExportLog(format string, sheetCount, keyCount int) error {
	_, err := s.db.Exec(`
		INSERT INTO export_logs (format, sheet_count, key_count) VALUES (?, ?, ?)
	`, format, sheetCount, keyCount)
	if err != nil {
		return fmt.Errorf("failed to create export log: %w", err)
	}
	return nil
}

// CountExportLogs 导出次数
func (s *Store) CountExportLogs() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM export_logs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count export logs: %w", err)
	}
	return n, nil
}
