package session

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// SQLStore is the delegate backend: sessions live in a SQLite database with
// row-level writes, so it does not share the FileStore's whole-document
// race. Use it whenever more than a handful of users write concurrently.
type SQLStore struct {
	db *sql.DB
}

// OpenSQL opens (and if needed initializes) the session database at path.
func OpenSQL(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init session schema: %w", err)
	}
	slog.Info("session database opened", "path", path)
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) WhereOne(ctx context.Context, key Key) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data, seq, created_at, updated_at
		FROM sessions WHERE platform = ? AND user_id = ?
	`, key.Platform, key.UserID)

	var (
		raw                  string
		seq                  int64
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&raw, &seq, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	data := make(map[string]any)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("decode session data %s: %w", key, err)
		}
	}
	return &Session{
		Platform:  key.Platform,
		UserID:    key.UserID,
		Data:      data,
		Seq:       seq,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func (s *SQLStore) Save(ctx context.Context, key Key, sess *Session) error {
	raw, err := encodeData(sess)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (platform, user_id, data, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform, user_id) DO NOTHING
	`, key.Platform, key.UserID, raw, sess.Seq, now, now)
	if err != nil {
		return fmt.Errorf("save session %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, key Key, sess *Session) error {
	raw, err := encodeData(sess)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (platform, user_id, data, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(platform, user_id) DO UPDATE SET
			data = excluded.data,
			seq = excluded.seq,
			updated_at = excluded.updated_at
	`, key.Platform, key.UserID, raw, sess.Seq, now, now)
	if err != nil {
		return fmt.Errorf("update session %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key Key) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE platform = ? AND user_id = ?
	`, key.Platform, key.UserID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}

func encodeData(sess *Session) (string, error) {
	data := sess.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode session data: %w", err)
	}
	return string(raw), nil
}
