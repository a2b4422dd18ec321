// Package sqlite persists roll history in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/oracles/internal/oracle/history"
	"github.com/louisbranch/oracles/internal/oracle/history/filter"
	"github.com/louisbranch/oracles/internal/oracle/history/sqlite/migrations"
	apperrors "github.com/louisbranch/oracles/internal/platform/errors"
	"github.com/louisbranch/oracles/internal/platform/pagination"
	"github.com/louisbranch/oracles/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis reverses toMillis for persisted millisecond timestamps.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is a SQLite-backed history.Store.
type Store struct {
	sqlDB *sql.DB
}

var _ history.Store = (*Store)(nil)

// Open opens the history database at path and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.HistoryFS, "history"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveEntry stores entry and its children. Saving an ID twice keeps the
// first copy.
func (s *Store) SaveEntry(ctx context.Context, entry history.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("entry id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save entry: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
INSERT INTO entries (id, oracle_id, oracle_name, roll, result, original_result, shortcut, region, language, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
		entry.ID,
		entry.OracleID,
		entry.OracleName,
		entry.Roll,
		entry.Result,
		entry.OriginalResult,
		entry.Shortcut,
		entry.Region,
		entry.Language,
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if inserted == 0 {
		return nil
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	for i, child := range entry.Children {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO entry_children (entry_seq, position, oracle_id, oracle_name, roll, result, original_result)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			seq, i, child.OracleID, child.OracleName, child.Roll, child.Result, child.OriginalResult,
		); err != nil {
			return fmt.Errorf("insert child %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entry: %w", err)
	}
	return nil
}

// ListEntries returns one page of entries matching opts.
func (s *Store) ListEntries(ctx context.Context, opts history.ListOptions) (history.Page, error) {
	if err := ctx.Err(); err != nil {
		return history.Page{}, err
	}
	if s == nil || s.sqlDB == nil {
		return history.Page{}, fmt.Errorf("storage is not configured")
	}

	orderBy, err := pagination.NormalizeOrderBy(strings.TrimSpace(opts.OrderBy), history.OrderBys)
	if err != nil {
		return history.Page{}, apperrors.WrapWithMetadata(apperrors.CodeFilterInvalid, "invalid order", map[string]string{"Filter": opts.OrderBy}, err)
	}
	pageSize := pagination.ClampPageSize(opts.PageSize, history.PageSizes)

	condition, err := filter.Parse(opts.Filter)
	if err != nil {
		return history.Page{}, err
	}

	plan := listPlan{descending: orderBy == history.OrderNewestFirst, condition: condition, pageSize: pageSize}
	if opts.PageToken != "" {
		c, err := pagination.Decode(opts.PageToken)
		if err == nil {
			err = pagination.Validate(c, opts.Filter, orderBy)
		}
		if err != nil {
			return history.Page{}, apperrors.WrapWithMetadata(apperrors.CodeFilterInvalid, "invalid page token", map[string]string{"Filter": opts.Filter}, err)
		}
		plan.afterSeq = c.Seq
	}

	query, params := plan.sql()
	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return history.Page{}, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var (
			entry   history.Entry
			created int64
		)
		if err := rows.Scan(
			&entry.Seq,
			&entry.ID,
			&entry.OracleID,
			&entry.OracleName,
			&entry.Roll,
			&entry.Result,
			&entry.OriginalResult,
			&entry.Shortcut,
			&entry.Region,
			&entry.Language,
			&created,
		); err != nil {
			return history.Page{}, fmt.Errorf("scan entry: %w", err)
		}
		entry.CreatedAt = fromMillis(created)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return history.Page{}, fmt.Errorf("list entries: %w", err)
	}
	_ = rows.Close()

	page := history.Page{}
	if len(entries) > pageSize {
		entries = entries[:pageSize]
		dir := pagination.DirectionForward
		if plan.descending {
			dir = pagination.DirectionBackward
		}
		token, err := pagination.Encode(pagination.NewCursor(entries[len(entries)-1].Seq, dir, opts.Filter, orderBy))
		if err != nil {
			return history.Page{}, err
		}
		page.NextPageToken = token
	}
	if err := s.loadChildren(ctx, entries); err != nil {
		return history.Page{}, err
	}
	page.Entries = entries
	return page, nil
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clear: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entry_children"); err != nil {
		return 0, fmt.Errorf("clear children: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM entries")
	if err != nil {
		return 0, fmt.Errorf("clear entries: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit clear: %w", err)
	}
	return removed, nil
}

func (s *Store) loadChildren(ctx context.Context, entries []history.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	bySeq := make(map[int64]*history.Entry, len(entries))
	placeholders := make([]string, 0, len(entries))
	params := make([]any, 0, len(entries))
	for i := range entries {
		bySeq[entries[i].Seq] = &entries[i]
		placeholders = append(placeholders, "?")
		params = append(params, entries[i].Seq)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT entry_seq, oracle_id, oracle_name, roll, result, original_result
FROM entry_children
WHERE entry_seq IN (`+strings.Join(placeholders, ", ")+`)
ORDER BY entry_seq, position`, params...)
	if err != nil {
		return fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq   int64
			child history.Record
		)
		if err := rows.Scan(&seq, &child.OracleID, &child.OracleName, &child.Roll, &child.Result, &child.OriginalResult); err != nil {
			return fmt.Errorf("scan child: %w", err)
		}
		if entry, ok := bySeq[seq]; ok {
			entry.Children = append(entry.Children, child)
		}
	}
	return rows.Err()
}
