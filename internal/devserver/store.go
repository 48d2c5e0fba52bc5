// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/gazette-assist/internal/model"
)

// MemoryPath opens a private in-memory store.
const MemoryPath = ":memory:"

// DefaultSearchLimit caps the rows returned by one search.
const DefaultSearchLimit = 50

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("notice store is closed")

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS notices (
	id             TEXT PRIMARY KEY,
	notice_type    TEXT NOT NULL,
	title          TEXT NOT NULL,
	person_name    TEXT,
	old_name       TEXT,
	new_name       TEXT,
	gazette_number TEXT,
	published_at   TEXT,
	location       TEXT,
	authority      TEXT,
	body           TEXT
);
CREATE INDEX IF NOT EXISTS idx_notices_type ON notices(notice_type);
CREATE INDEX IF NOT EXISTS idx_notices_published ON notices(published_at);
`

// noticeColumns are the optional text columns, in select order after id,
// notice_type and title.
var noticeColumns = []string{
	"person_name",
	"old_name",
	"new_name",
	"gazette_number",
	"published_at",
	"location",
	"authority",
	"body",
}

// searchColumns are matched against free-text terms.
var searchColumns = []string{
	"title",
	"person_name",
	"old_name",
	"new_name",
	"gazette_number",
	"location",
	"authority",
	"body",
}

// =============================================================================
// NOTICE
// =============================================================================

// Notice is one gazette notice row.
type Notice struct {
	ID            string
	NoticeType    string
	Title         string
	PersonName    string
	OldName       string
	NewName       string
	GazetteNumber string
	PublishedAt   string
	Location      string
	Authority     string
	Body          string
}

// Record converts the notice to a sparse result record. Empty columns are
// omitted so clients see the same shape the live service sends.
func (n Notice) Record() model.ResultRecord {
	rec := model.ResultRecord{
		"id":          n.ID,
		"notice_type": n.NoticeType,
		"title":       n.Title,
	}
	for k, v := range map[string]string{
		"person_name":    n.PersonName,
		"old_name":       n.OldName,
		"new_name":       n.NewName,
		"gazette_number": n.GazetteNumber,
		"published_at":   n.PublishedAt,
		"location":       n.Location,
		"authority":      n.Authority,
		"body":           n.Body,
	} {
		if v != "" {
			rec[k] = v
		}
	}
	return rec
}

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed notice index.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenStore opens (creating if needed) the notice index at path. Use
// MemoryPath for a throwaway store.
func OpenStore(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, errors.New("store path cannot be empty")
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and each :memory:
	// connection would otherwise get its own database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, logger: logger.Named("store")}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Count returns the number of stored notices.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrStoreClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notices").Scan(&n); err != nil {
		return 0, fmt.Errorf("count notices: %w", err)
	}
	return n, nil
}

// Insert stores notices, replacing rows with the same id.
func (s *Store) Insert(ctx context.Context, notices ...Notice) error {
	if s.db == nil {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO notices
		(id, notice_type, title, person_name, old_name, new_name,
		 gazette_number, published_at, location, authority, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range notices {
		if n.ID == "" || n.NoticeType == "" || n.Title == "" {
			return fmt.Errorf("notice %q: id, notice_type and title are required", n.ID)
		}
		if _, err := stmt.ExecContext(ctx,
			n.ID, n.NoticeType, n.Title,
			nullable(n.PersonName), nullable(n.OldName), nullable(n.NewName),
			nullable(n.GazetteNumber), nullable(n.PublishedAt),
			nullable(n.Location), nullable(n.Authority), nullable(n.Body),
		); err != nil {
			return fmt.Errorf("insert notice %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// SeedIfEmpty loads the sample notices into an empty store. It reports
// whether anything was inserted.
func (s *Store) SeedIfEmpty(ctx context.Context) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := s.Insert(ctx, SeedNotices...); err != nil {
		return false, err
	}
	s.logger.Info("notice index seeded", zap.Int("count", len(SeedNotices)))
	return true, nil
}

// Search returns notices matching q, newest first.
func (s *Store) Search(ctx context.Context, q Query, limit int) ([]Notice, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var (
		where []string
		args  []any
	)
	if len(q.Types) > 0 {
		marks := make([]string, len(q.Types))
		for i, t := range q.Types {
			marks[i] = "?"
			args = append(args, t)
		}
		where = append(where, "notice_type IN ("+strings.Join(marks, ", ")+")")
	}
	for _, term := range q.Terms {
		ors := make([]string, len(searchColumns))
		for i, col := range searchColumns {
			ors[i] = "LOWER(COALESCE(" + col + ", '')) LIKE ? ESCAPE '\\'"
			args = append(args, "%"+escapeLike(term)+"%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	query := "SELECT id, notice_type, title, " + strings.Join(noticeColumns, ", ") + " FROM notices"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY published_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search notices: %w", err)
	}
	defer rows.Close()

	notices := make([]Notice, 0)
	for rows.Next() {
		var (
			n   Notice
			opt [8]sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.NoticeType, &n.Title,
			&opt[0], &opt[1], &opt[2], &opt[3], &opt[4], &opt[5], &opt[6], &opt[7]); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		n.PersonName = opt[0].String
		n.OldName = opt[1].String
		n.NewName = opt[2].String
		n.GazetteNumber = opt[3].String
		n.PublishedAt = opt[4].String
		n.Location = opt[5].String
		n.Authority = opt[6].String
		n.Body = opt[7].String
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search notices: %w", err)
	}
	return notices, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.ToLower(s))
}
