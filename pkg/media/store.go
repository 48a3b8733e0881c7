package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA foreign_keys = ON;

-- Attachments: one row per stored image, unique per source URL and owner
CREATE TABLE IF NOT EXISTS attachments (
    attachment_id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_url TEXT NOT NULL,
    post_id INTEGER NOT NULL DEFAULT 0,
    file_name TEXT NOT NULL,
    mime_type TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    alt_text TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source_url, post_id)
);

CREATE INDEX IF NOT EXISTS idx_attachments_post ON attachments(post_id);

-- Posts: status of the documents that own attachments
CREATE TABLE IF NOT EXISTS posts (
    post_id INTEGER PRIMARY KEY,
    status TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// PostStatusDraft is the status a post gets after media was imported into it.
const PostStatusDraft = "draft"

// Record is a stored attachment row.
type Record struct {
	ID        int64
	SourceURL string
	PostID    int
	FileName  string
	MimeType  string
	SizeBytes int64
	Alt       string
}

// Store is the SQLite attachment catalogue.
type Store struct {
	*sql.DB
	path string
}

// openDB opens a SQLite database at the given path.
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database only exists on the connection that created it.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return sqlDB, nil
}

// OpenStore opens or creates the catalogue at dbPath and ensures the schema.
// Use ":memory:" for a throwaway catalogue.
func OpenStore(dbPath string) (*Store, error) {
	sqlDB, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{DB: sqlDB, path: dbPath}
	if err := s.InitSchema(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// InitSchema creates the tables if they do not exist.
func (s *Store) InitSchema() error {
	_, err := s.Exec(schema)
	return err
}

// FindAttachment returns the attachment stored for sourceURL and postID,
// or ErrNotFound.
func (s *Store) FindAttachment(ctx context.Context, sourceURL string, postID int) (Record, error) {
	return s.scanOne(ctx, `
		SELECT attachment_id, source_url, post_id, file_name, mime_type, size_bytes, alt_text
		FROM attachments WHERE source_url = ? AND post_id = ?
	`, sourceURL, postID)
}

// Attachment returns the attachment with the given id, or ErrNotFound.
func (s *Store) Attachment(ctx context.Context, id int64) (Record, error) {
	return s.scanOne(ctx, `
		SELECT attachment_id, source_url, post_id, file_name, mime_type, size_bytes, alt_text
		FROM attachments WHERE attachment_id = ?
	`, id)
}

func (s *Store) scanOne(ctx context.Context, query string, args ...any) (Record, error) {
	var r Record
	err := s.QueryRowContext(ctx, query, args...).
		Scan(&r.ID, &r.SourceURL, &r.PostID, &r.FileName, &r.MimeType, &r.SizeBytes, &r.Alt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to query attachment: %w", err)
	}
	return r, nil
}

// InsertAttachment stores r and returns its id.
func (s *Store) InsertAttachment(ctx context.Context, r Record) (int64, error) {
	result, err := s.ExecContext(ctx, `
		INSERT INTO attachments (source_url, post_id, file_name, mime_type, size_bytes, alt_text)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.SourceURL, r.PostID, r.FileName, r.MimeType, r.SizeBytes, r.Alt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get attachment ID: %w", err)
	}
	return id, nil
}

// UpdateAlt replaces the alt text of an attachment.
func (s *Store) UpdateAlt(ctx context.Context, id int64, alt string) error {
	result, err := s.ExecContext(ctx, `UPDATE attachments SET alt_text = ? WHERE attachment_id = ?`, alt, id)
	if err != nil {
		return fmt.Errorf("failed to update alt text: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAttachments returns the number of attachments owned by postID.
func (s *Store) CountAttachments(ctx context.Context, postID int) (int, error) {
	var n int
	if err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM attachments WHERE post_id = ?`, postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count attachments: %w", err)
	}
	return n, nil
}

// MarkDraft sets the status of postID to draft, creating the row if needed.
func (s *Store) MarkDraft(ctx context.Context, postID int) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO posts (post_id, status) VALUES (?, ?)
		ON CONFLICT(post_id) DO UPDATE SET status = excluded.status, updated_at = CURRENT_TIMESTAMP
	`, postID, PostStatusDraft)
	if err != nil {
		return fmt.Errorf("failed to mark post %d as draft: %w", postID, err)
	}
	return nil
}

// PostStatus returns the stored status of postID, or ErrNotFound.
func (s *Store) PostStatus(ctx context.Context, postID int) (string, error) {
	var status string
	err := s.QueryRowContext(ctx, `SELECT status FROM posts WHERE post_id = ?`, postID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query post status: %w", err)
	}
	return status, nil
}
