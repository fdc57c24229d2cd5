package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite" // Local SQLite driver
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wadjakorntonsri/shorturl/pkg/core/domain"
	"github.com/wadjakorntonsri/shorturl/pkg/ports"
)

const dbTimeout = 5 * time.Second

type SQLiteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IsRemote reports whether dbURL points at a Turso/libSQL server.
func IsRemote(dbURL string) bool {
	return strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://")
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if IsRemote(dbURL) {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if driverName == "sqlite" {
		// One connection keeps in-memory databases and pragmas consistent and
		// serialises writers, which SQLite does anyway.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if driverName == "sqlite" {
		_, _ = db.Exec("PRAGMA busy_timeout = 5000;")
		_, _ = db.Exec("PRAGMA foreign_keys = ON;")
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{
		db:     db,
		logger: zap.L().With(zap.String("component", "SQLiteRepository")),
	}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_url TEXT NOT NULL,
		short_code TEXT NOT NULL UNIQUE,
		custom BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		expires_at DATETIME,
		click_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_urls_original_url ON urls(original_url);
	CREATE INDEX IF NOT EXISTS idx_urls_created_at ON urls(created_at);

	CREATE TABLE IF NOT EXISTS clicks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url_id INTEGER NOT NULL,
		clicked_at DATETIME NOT NULL,
		ip_address VARCHAR(45),
		user_agent TEXT,
		referer TEXT,
		FOREIGN KEY(url_id) REFERENCES urls(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_clicks_url_id ON clicks(url_id, clicked_at);
	`
	_, err := db.Exec(query)
	return err
}

// Close releases the underlying DB.
func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) Create(ctx context.Context, url *domain.URL) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `INSERT INTO urls (original_url, short_code, custom, created_at, expires_at, click_count)
			  VALUES (?, ?, ?, ?, ?, ?)`

	var expiresAt any
	if url.ExpiresAt != nil {
		expiresAt = url.ExpiresAt.UTC()
	}

	res, err := r.db.ExecContext(ctx, query, url.OriginalURL, url.ShortCode, url.Custom,
		url.CreatedAt.UTC(), expiresAt, url.ClickCount)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, url.ShortCode)
		}
		r.logger.Error("Failed to insert URL", zap.Error(err), zap.String("short_code", url.ShortCode))
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	url.ID = id
	return nil
}

const selectURL = `SELECT id, original_url, short_code, custom, created_at, expires_at, click_count FROM urls`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanURL(row rowScanner) (*domain.URL, error) {
	var u domain.URL
	var expiresAt sql.NullTime
	if err := row.Scan(&u.ID, &u.OriginalURL, &u.ShortCode, &u.Custom, &u.CreatedAt, &expiresAt, &u.ClickCount); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		u.ExpiresAt = &t
	}
	return &u, nil
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, arg any) (*domain.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	u, err := scanURL(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Database query error", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return u, nil
}

func (r *SQLiteRepository) FindByCode(ctx context.Context, code string) (*domain.URL, error) {
	return r.findOne(ctx, selectURL+` WHERE short_code = ?`, code)
}

// FindLiveByOriginalURL walks the records for originalURL newest first and returns the
// first one not expired at now. Expiry is checked in Go so the comparison does not
// depend on how the driver serialises timestamps.
func (r *SQLiteRepository) FindLiveByOriginalURL(ctx context.Context, originalURL string, now time.Time) (*domain.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectURL+` WHERE original_url = ? ORDER BY created_at DESC, id DESC`, originalURL)
	if err != nil {
		r.logger.Error("Database query error", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
		}
		if !u.IsExpired(now) {
			return u, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil, domain.ErrNotFound
}

func (r *SQLiteRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM urls WHERE short_code = ?`, code).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to check code existence", zap.Error(err), zap.String("short_code", code))
		return false, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return count > 0, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) ([]domain.URL, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM urls`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}

	urls, err := r.queryURLs(ctx, selectURL+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return urls, total, nil
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.URL, error) {
	return r.queryURLs(ctx, selectURL+` ORDER BY id ASC`)
}

func (r *SQLiteRepository) queryURLs(ctx context.Context, query string, args ...any) ([]domain.URL, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	urls := []domain.URL{}
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
		}
		urls = append(urls, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return urls, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM urls WHERE short_code = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}

	// Clicks go first so the cascade holds even where foreign keys are not enforced.
	if _, err := tx.ExecContext(ctx, `DELETE FROM clicks WHERE url_id = ?`, id); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM urls WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit delete", zap.Error(err), zap.String("short_code", code))
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

// RecordClick bumps the URL's click_count and appends the click row in one
// transaction. A missing parent URL leaves both untouched and returns ErrNotFound.
func (r *SQLiteRepository) RecordClick(ctx context.Context, click *domain.Click) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	defer tx.Rollback()

	if err := incrementClickCount(ctx, tx, click.URLID); err != nil {
		return err
	}
	if err := insertClick(ctx, tx, click); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return nil
}

func incrementClickCount(ctx context.Context, db execer, urlID int64) error {
	res, err := db.ExecContext(ctx, `UPDATE urls SET click_count = click_count + 1 WHERE id = ?`, urlID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func insertClick(ctx context.Context, db execer, click *domain.Click) error {
	query := `INSERT INTO clicks (url_id, clicked_at, ip_address, user_agent, referer) VALUES (?, ?, ?, ?, ?)`
	res, err := db.ExecContext(ctx, query, click.URLID, click.ClickedAt.UTC(), click.IPAddress, click.UserAgent, click.Referer)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	click.ID = id
	return nil
}

func (r *SQLiteRepository) RecentClicks(ctx context.Context, urlID int64, limit int) ([]domain.Click, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `SELECT id, url_id, clicked_at, ip_address, user_agent, referer
			  FROM clicks WHERE url_id = ?
			  ORDER BY clicked_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, urlID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	clicks := []domain.Click{}
	for rows.Next() {
		var c domain.Click
		var ip, ua, ref sql.NullString
		if err := rows.Scan(&c.ID, &c.URLID, &c.ClickedAt, &ip, &ua, &ref); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
		}
		c.ClickedAt = c.ClickedAt.UTC()
		c.IPAddress, c.UserAgent, c.Referer = ip.String, ua.String, ref.String
		clicks = append(clicks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return clicks, nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	// libsql reports constraint failures as plain text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ensure interface compliance
var _ ports.URLRepository = (*SQLiteRepository)(nil)
