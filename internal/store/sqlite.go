// Package store persists the dashboard's own activity log in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaopang/insight/internal/model"
)

const defaultListLimit = 100

// Store 数据存储
type Store struct {
	db *sql.DB
}

// New 创建存储实例
func New(dbPath string) (*Store, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// migrate 数据库迁移
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		subject TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		latency_ms INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity(timestamp);
	CREATE INDEX IF NOT EXISTS idx_activity_kind ON activity(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordActivity 保存一条活动
func (s *Store) RecordActivity(a model.Activity) error {
	_, err := s.db.Exec(`
		INSERT INTO activity (id, kind, subject, success, error, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Kind, a.Subject, a.Success, a.Error, a.LatencyMs, a.Timestamp.UTC())
	return err
}

// ListActivity 按时间倒序查询
func (s *Store) ListActivity(f model.ActivityFilter) ([]model.Activity, error) {
	query := "SELECT id, kind, subject, success, error, latency_ms, timestamp FROM activity WHERE 1=1"
	args := []any{}

	if f.Kind != "" {
		query += " AND kind = ?"
		args = append(args, f.Kind)
	}
	if f.Success != nil {
		query += " AND success = ?"
		args = append(args, *f.Success)
	}
	if !f.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, f.Since.UTC())
	}

	query += " ORDER BY timestamp DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.Kind, &a.Subject, &a.Success, &a.Error, &a.LatencyMs, &a.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Summary 汇总 since 之后每种类型的结果
func (s *Store) Summary(since time.Time) ([]model.ActivitySummary, error) {
	rows, err := s.db.Query(`
		SELECT
			kind,
			COUNT(*) as total,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) as succeeded,
			ROUND(AVG(latency_ms), 2) as avg_latency
		FROM activity
		WHERE timestamp >= ?
		GROUP BY kind
		ORDER BY kind
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ActivitySummary{}
	for rows.Next() {
		var sum model.ActivitySummary
		if err := rows.Scan(&sum.Kind, &sum.Total, &sum.Succeeded, &sum.AvgLatencyMs); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// CleanBefore 清理过期活动
func (s *Store) CleanBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM activity WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
