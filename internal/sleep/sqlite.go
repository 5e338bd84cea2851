package sleep

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps records in the sleeps table of a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", withBusyTimeout(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// busyTimeoutMillis lets concurrent writers wait for the lock instead of
// failing with "database is locked".
const busyTimeoutMillis = 5000

func withBusyTimeout(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", path, sep, busyTimeoutMillis)
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS sleeps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			sleep_start TEXT NOT NULL,
			sleep_end TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sleeps_date ON sleeps(date);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, date, sleep_start, sleep_end, note, created_at, updated_at FROM sleeps`

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, selectColumns+` ORDER BY date ASC, id ASC`)
}

func (s *SQLiteStore) Recent(ctx context.Context, days int) ([]Record, error) {
	if days <= 0 {
		return nil, nil
	}
	return s.query(ctx, `SELECT * FROM (`+selectColumns+` ORDER BY date DESC, id DESC LIMIT ?) ORDER BY date ASC, id ASC`, days)
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get sleep %d: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Create(ctx context.Context, rec NewRecord) (Record, error) {
	rec = rec.normalized()
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sleeps (date, sleep_start, sleep_end, note, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Date, rec.SleepStart, rec.SleepEnd, rec.Note, now, now)
	if err != nil {
		return Record{}, fmt.Errorf("insert sleep: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("insert sleep: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, rec NewRecord) (Record, error) {
	rec = rec.normalized()
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sleeps SET date = ?, sleep_start = ?, sleep_end = ?, note = ?, updated_at = ? WHERE id = ?`,
		rec.Date, rec.SleepStart, rec.SleepEnd, rec.Note, now, id)
	if err != nil {
		return Record{}, fmt.Errorf("update sleep %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Record{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sleeps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sleep %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sleeps`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sleeps: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query sleeps: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sleep: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec                  Record
		createdAt, updatedAt string
	)
	if err := row.Scan(&rec.ID, &rec.Date, &rec.SleepStart, &rec.SleepEnd, &rec.Note, &createdAt, &updatedAt); err != nil {
		return Record{}, err
	}
	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Record{}, fmt.Errorf("created_at of sleep %d: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Record{}, fmt.Errorf("updated_at of sleep %d: %w", rec.ID, err)
	}
	return rec, nil
}
