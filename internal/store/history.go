package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/phoenixlab/rewriter/internal/logger"
)

// History persists users, their submitted URLs and processing results
// in Postgres. With an empty DSN every method is a no-op, the service
// works without a database.
type History struct {
	db *sql.DB
}

// OpenHistory connects to Postgres. The connection is verified eagerly
// so a bad DSN surfaces at startup.
func OpenHistory(dsn string) (*History, error) {
	if dsn == "" {
		logger.Info("database not configured, history disabled")
		return &History{}, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	h := &History{db: db}
	if err := h.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// Enabled reports whether a database is connected.
func (h *History) Enabled() bool { return h.db != nil }

func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

func (h *History) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(100) UNIQUE NOT NULL,
			email VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_urls (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			title VARCHAR(500),
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			last_processed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS processing_results (
			id SERIAL PRIMARY KEY,
			url_id INTEGER NOT NULL REFERENCES user_urls(id) ON DELETE CASCADE,
			original_text TEXT,
			rewritten_text TEXT,
			style VARCHAR(50),
			provider VARCHAR(50),
			processing_time_ms INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_urls_user_id ON user_urls(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_processing_results_url_id ON processing_results(url_id)`,
	}
	for _, stmt := range statements {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// EnsureUser returns the id for a username, creating the row if needed.
func (h *History) EnsureUser(ctx context.Context, username, email string) (int64, error) {
	if h.db == nil {
		return 0, nil
	}
	var id int64
	err := h.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email) VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id`, username, email).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure user: %w", err)
	}
	return id, nil
}

// SaveURL records a submitted URL for a user and returns its id.
func (h *History) SaveURL(ctx context.Context, userID int64, url, title string) (int64, error) {
	if h.db == nil {
		return 0, nil
	}
	var id int64
	err := h.db.QueryRowContext(ctx, `
		INSERT INTO user_urls (user_id, url, title, last_processed_at)
		VALUES ($1, $2, NULLIF($3, ''), NOW())
		RETURNING id`, userID, url, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save url: %w", err)
	}
	return id, nil
}

// SaveResult stores the outcome of one rewrite for a saved URL.
func (h *History) SaveResult(ctx context.Context, urlID int64, originalText, rewrittenText, style, provider string, elapsed time.Duration) error {
	if h.db == nil || urlID == 0 {
		return nil
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO processing_results (url_id, original_text, rewritten_text, style, provider, processing_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		urlID, originalText, rewrittenText, style, provider, elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// URLRecord is one row of a user's submission history.
type URLRecord struct {
	ID              int64
	URL             string
	Title           string
	Status          string
	CreatedAt       time.Time
	LastProcessedAt sql.NullTime
}

// UserURLs lists a user's submitted URLs, newest first.
func (h *History) UserURLs(ctx context.Context, userID int64) ([]URLRecord, error) {
	if h.db == nil {
		return nil, nil
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, url, COALESCE(title, ''), status, created_at, last_processed_at
		FROM user_urls WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list urls: %w", err)
	}
	defer rows.Close()

	var out []URLRecord
	for rows.Next() {
		var rec URLRecord
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Title, &rec.Status, &rec.CreatedAt, &rec.LastProcessedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ResultRecord is one stored rewrite outcome.
type ResultRecord struct {
	ID            int64
	OriginalText  string
	RewrittenText string
	Style         string
	Provider      string
	CreatedAt     time.Time
}

// URLResults lists the stored rewrites of one URL, newest first.
func (h *History) URLResults(ctx context.Context, urlID int64) ([]ResultRecord, error) {
	if h.db == nil {
		return nil, nil
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, COALESCE(original_text, ''), COALESCE(rewritten_text, ''),
		       COALESCE(style, ''), COALESCE(provider, ''), created_at
		FROM processing_results WHERE url_id = $1 ORDER BY created_at DESC`, urlID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var rec ResultRecord
		if err := rows.Scan(&rec.ID, &rec.OriginalText, &rec.RewrittenText, &rec.Style, &rec.Provider, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
