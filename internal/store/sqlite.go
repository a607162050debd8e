package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MikeSquared-Agency/civixity/internal/model"
)

// SQLite is a file-backed adapter with the same method set as Store, used for
// local development and tests.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db at %s: %w", path, err)
	}

	s := &SQLite{db: db}
	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the posts and chat_interactions tables.
func (s *SQLite) InitSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			severity INTEGER NOT NULL DEFAULT 0,
			location TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			upvotes INTEGER NOT NULL DEFAULT 0,
			downvotes INTEGER NOT NULL DEFAULT 0,
			image_url TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);

		CREATE TABLE IF NOT EXISTS chat_interactions (
			user_id TEXT NOT NULL,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chat_interactions_user ON chat_interactions(user_id, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// InsertIssue stores a post. Only seeding and tests write posts; citizen
// submission lives outside this service.
func (s *SQLite) InsertIssue(ctx context.Context, r model.IssueReport) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, description, category, severity, location, created_at, upvotes, downvotes, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Description, r.Category, r.Severity, r.Location, r.CreatedAt.UTC(),
		r.Upvotes, r.Downvotes, r.ImageURL,
	)
	if err != nil {
		return unavailable("insert post", err)
	}
	return nil
}

func (s *SQLite) ListIssues(ctx context.Context, q IssueQuery) ([]model.IssueReport, error) {
	var location string
	if q.Location != "" {
		location = likeContains(q.Location)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, category, severity, location, created_at, upvotes, downvotes, image_url
		FROM posts
		WHERE (?1 = '' OR category = ?1)
		  AND (?2 = '' OR location LIKE ?2 ESCAPE '\')
		ORDER BY created_at DESC
		LIMIT ?3`,
		q.Category, location, q.limit(),
	)
	if err != nil {
		return nil, unavailable("query posts", err)
	}
	defer rows.Close()

	var out []model.IssueReport
	for rows.Next() {
		var (
			r        model.IssueReport
			imageURL sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Category, &r.Severity,
			&r.Location, &r.CreatedAt, &r.Upvotes, &r.Downvotes, &imageURL); err != nil {
			return nil, unavailable("scan post", err)
		}
		if imageURL.Valid {
			r.ImageURL = &imageURL.String
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate posts", err)
	}
	return out, nil
}

func (s *SQLite) RecentTurns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, message, response, timestamp
		FROM chat_interactions
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, unavailable("query chat_interactions", err)
	}
	defer rows.Close()

	var out []model.ConversationTurn
	for rows.Next() {
		var t model.ConversationTurn
		if err := rows.Scan(&t.UserID, &t.Message, &t.Response, &t.Timestamp); err != nil {
			return nil, unavailable("scan chat_interaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate chat_interactions", err)
	}
	return out, nil
}

func (s *SQLite) InsertTurn(ctx context.Context, t model.ConversationTurn) error {
	t = normaliseTurn(t)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_interactions (user_id, message, response, timestamp)
		VALUES (?, ?, ?, ?)`,
		t.UserID, t.Message, t.Response, t.Timestamp.UTC(),
	)
	if err != nil {
		return unavailable("insert chat_interaction", err)
	}
	return nil
}

// CountTurns reports how many turns are stored for userID.
func (s *SQLite) CountTurns(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chat_interactions WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, unavailable("count chat_interactions", err)
	}
	return n, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLite) Close() {
	s.db.Close()
}
