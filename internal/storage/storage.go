package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/xaenox/askbro/internal/models"
)

// Store persists chat access configuration. A brand-new chat receives a
// denied-by-default record on first contact; granting access and attaching a
// model configuration happens out of band (admin tooling), the bot only
// reads those fields.
type Store interface {
	// EnsureExists fetches the chat's configuration, creating a denied
	// record when none exists, and keeps the chat's title and type in sync.
	EnsureExists(ctx context.Context, chatID int64, title, chatType string) (*models.ChatConfiguration, error)

	// IsAllowed reports whether the chat has been granted access.
	IsAllowed(ctx context.Context, chatID int64) (bool, error)

	Close() error
}

// UnknownChatType is stored when Telegram does not report a chat type.
const UnknownChatType = "unknown"

type row interface {
	Scan(dest ...any) error
}

// scanConfiguration reads one chat_configuration row. Shared between the
// Postgres and SQLite stores, which use the same column order.
func scanConfiguration(r row) (*models.ChatConfiguration, error) {
	var (
		cfg             models.ChatConfiguration
		title           sql.NullString
		provider        sql.NullString
		modelName       sql.NullString
		systemMessage   sql.NullString
		temperature     sql.NullFloat64
		topP            sql.NullFloat64
		maxOutputTokens sql.NullInt64
	)

	err := r.Scan(
		&cfg.ID,
		&cfg.ChatID,
		&title,
		&cfg.ChatType,
		&cfg.Allowed,
		&provider,
		&modelName,
		&systemMessage,
		&temperature,
		&topP,
		&maxOutputTokens,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Title = title.String
	cfg.Provider = provider.String

	if modelName.Valid {
		model := &models.ModelConfiguration{
			Model:         modelName.String,
			SystemMessage: systemMessage.String,
		}
		if temperature.Valid {
			v := float32(temperature.Float64)
			model.Temperature = &v
		}
		if topP.Valid {
			v := float32(topP.Float64)
			model.TopP = &v
		}
		if maxOutputTokens.Valid {
			v := int(maxOutputTokens.Int64)
			model.MaxOutputTokens = &v
		}
		cfg.Model = model
	}

	return &cfg, nil
}

func normalizeChatType(chatType string) string {
	if chatType == "" {
		return UnknownChatType
	}
	return chatType
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
