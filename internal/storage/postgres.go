package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/xaenox/askbro/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) EnsureExists(ctx context.Context, chatID int64, title, chatType string) (*models.ChatConfiguration, error) {
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

	// ON CONFLICT DO NOTHING keeps concurrent first contacts from failing;
	// the follow-up select returns whichever row won.
	insert := `
		INSERT INTO chat_configuration (id, chat_id, title, chat_type, allowed, provider)
		VALUES ($1, $2, $3, $4, FALSE, '')
		ON CONFLICT (chat_id) DO NOTHING`

	_, err = s.db.ExecContext(ctx, insert, uuid.New().String(), chatID, nullableString(title), normalizeChatType(chatType))
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

func (s *PostgresStorage) IsAllowed(ctx context.Context, chatID int64) (bool, error) {
	cfg, err := s.getByChatID(ctx, chatID)
	if err != nil {
		return false, err
	}
	return cfg != nil && cfg.Allowed, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) getByChatID(ctx context.Context, chatID int64) (*models.ChatConfiguration, error) {
	query := `
		SELECT id, chat_id, title, chat_type, allowed, provider,
		       model_name, system_message, temperature, top_p, max_output_tokens,
		       created_at, updated_at
		FROM chat_configuration
		WHERE chat_id = $1`

	cfg, err := scanConfiguration(s.db.QueryRowContext(ctx, query, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying chat configuration: %v", err)
	}
	return cfg, nil
}

func (s *PostgresStorage) syncMetadata(ctx context.Context, cfg *models.ChatConfiguration, title, chatType string) error {
	chatType = normalizeChatType(chatType)
	if (title == "" || title == cfg.Title) && chatType == cfg.ChatType {
		return nil
	}

	query := `
		UPDATE chat_configuration
		SET title = COALESCE(NULLIF($1, ''), title),
		    chat_type = $2,
		    updated_at = now()
		WHERE chat_id = $3`

	if _, err := s.db.ExecContext(ctx, query, title, chatType, cfg.ChatID); err != nil {
		return fmt.Errorf("error updating chat metadata: %v", err)
	}
	if title != "" {
		cfg.Title = title
	}
	cfg.ChatType = chatType
	return nil
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
