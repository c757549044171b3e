package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xaenox/askbro/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_configuration (
    id TEXT PRIMARY KEY,
    chat_id INTEGER NOT NULL UNIQUE,
    title TEXT,
    chat_type TEXT NOT NULL DEFAULT 'unknown',
    allowed INTEGER NOT NULL DEFAULT 0,
    provider TEXT NOT NULL DEFAULT '',
    model_name TEXT,
    system_message TEXT,
    temperature REAL,
    top_p REAL,
    max_output_tokens INTEGER,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`

// SQLiteStorage is the default single-file store, suited to running the bot
// without a database server.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) EnsureExists(ctx context.Context, chatID int64, title, chatType string) (*models.ChatConfiguration, error) {
	cfg, err := s.getByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		if err := s.syncMetadata(ctx, cfg, title, chatType); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	now := nowUTC()
	insert := `
		INSERT OR IGNORE INTO chat_configuration
			(id, chat_id, title, chat_type, allowed, provider, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, '', ?, ?)`

	_, err = s.db.ExecContext(ctx, insert, uuid.New().String(), chatID, nullableString(title), normalizeChatType(chatType), now, now)
	if err != nil {
		return nil, fmt.Errorf("error creating chat configuration: %v", err)
	}

	cfg, err = s.getByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("chat configuration for chat %d missing after insert", chatID)
	}
	return cfg, nil
}

func (s *SQLiteStorage) IsAllowed(ctx context.Context, chatID int64) (bool, error) {
	cfg, err := s.getByChatID(ctx, chatID)
	if err != nil {
		return false, err
	}
	return cfg != nil && cfg.Allowed, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) getByChatID(ctx context.Context, chatID int64) (*models.ChatConfiguration, error) {
	query := `
		SELECT id, chat_id, title, chat_type, allowed, provider,
		       model_name, system_message, temperature, top_p, max_output_tokens,
		       created_at, updated_at
		FROM chat_configuration
		WHERE chat_id = ?`

	cfg, err := scanConfiguration(s.db.QueryRowContext(ctx, query, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying chat configuration: %v", err)
	}
	return cfg, nil
}

func (s *SQLiteStorage) syncMetadata(ctx context.Context, cfg *models.ChatConfiguration, title, chatType string) error {
	chatType = normalizeChatType(chatType)
	if (title == "" || title == cfg.Title) && chatType == cfg.ChatType {
		return nil
	}

	query := `
		UPDATE chat_configuration
		SET title = COALESCE(NULLIF(?, ''), title),
		    chat_type = ?,
		    updated_at = ?
		WHERE chat_id = ?`

	if _, err := s.db.ExecContext(ctx, query, title, chatType, nowUTC(), cfg.ChatID); err != nil {
		return fmt.Errorf("error updating chat metadata: %v", err)
	}
	if title != "" {
		cfg.Title = title
	}
	cfg.ChatType = chatType
	return nil
}
