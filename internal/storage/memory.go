package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/xaenox/askbro/internal/models"
)

// MemoryStorage keeps chat configurations in-process. Used when the bot runs
// without a database and as the store double in tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	chats map[int64]*models.ChatConfiguration
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		chats: make(map[int64]*models.ChatConfiguration),
	}
}

func (s *MemoryStorage) EnsureExists(_ context.Context, chatID int64, title, chatType string) (*models.ChatConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, exists := s.chats[chatID]; exists {
		if title != "" && title != cfg.Title {
			cfg.Title = title
			cfg.UpdatedAt = nowUTC()
		}
		if normalized := normalizeChatType(chatType); normalized != cfg.ChatType {
			cfg.ChatType = normalized
			cfg.UpdatedAt = nowUTC()
		}
		return copyConfiguration(cfg), nil
	}

	now := nowUTC()
	cfg := &models.ChatConfiguration{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Title:     title,
		ChatType:  normalizeChatType(chatType),
		Allowed:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.chats[chatID] = cfg
	return copyConfiguration(cfg), nil
}

func (s *MemoryStorage) IsAllowed(_ context.Context, chatID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, exists := s.chats[chatID]
	return exists && cfg.Allowed, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// SetAllowed grants or revokes a chat's access. Admin tooling owns this in
// production; in-memory deployments and tests flip it directly.
func (s *MemoryStorage) SetAllowed(chatID int64, allowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, exists := s.chats[chatID]; exists {
		cfg.Allowed = allowed
		cfg.UpdatedAt = nowUTC()
	}
}

// SetProvider points a chat at a named AI provider.
func (s *MemoryStorage) SetProvider(chatID int64, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, exists := s.chats[chatID]; exists {
		cfg.Provider = provider
		cfg.UpdatedAt = nowUTC()
	}
}

// SetModel attaches a model configuration to a chat.
func (s *MemoryStorage) SetModel(chatID int64, model *models.ModelConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, exists := s.chats[chatID]; exists {
		cfg.Model = model
		cfg.UpdatedAt = nowUTC()
	}
}

func copyConfiguration(cfg *models.ChatConfiguration) *models.ChatConfiguration {
	out := *cfg
	if cfg.Model != nil {
		model := *cfg.Model
		out.Model = &model
	}
	return &out
}
