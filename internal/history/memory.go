package history

import (
	"context"
	"sort"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/askbro/internal/models"
)

// MemoryStore is an in-process Store used for cache-less deployments and
// tests. It mirrors the Redis layout: records keyed by update id plus a
// per-chat index, with lazy expiry on read.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int]models.UpdateRecord
	chats   map[int64][]int
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int]models.UpdateRecord),
		chats:   make(map[int64][]int),
		now:     time.Now,
	}
}

func (s *MemoryStore) Store(_ context.Context, update tgbotapi.Update) {
	record := RecordFromUpdate(update)
	record.ReceivedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.UpdateID]; !exists && record.ChatID != 0 {
		s.chats[record.ChatID] = append(s.chats[record.ChatID], record.UpdateID)
	}
	s.records[record.UpdateID] = record
}

func (s *MemoryStore) LastMessages(_ context.Context, chatID int64, limit int, excludeUpdateID int) []models.UpdateRecord {
	if limit <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().UTC().Add(-updateTTL)
	candidates := make([]models.UpdateRecord, 0, len(s.chats[chatID]))
	for _, updateID := range s.chats[chatID] {
		record, ok := s.records[updateID]
		if !ok || record.ReceivedAt.Before(cutoff) {
			continue
		}
		candidates = append(candidates, record)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ReceivedAt.After(candidates[j].ReceivedAt)
	})
	if len(candidates) > maxHistoryFetch {
		candidates = candidates[:maxHistoryFetch]
	}

	records := make([]models.UpdateRecord, 0, limit)
	for _, record := range candidates {
		if excludeUpdateID != 0 && record.UpdateID == excludeUpdateID {
			continue
		}
		records = append(records, record)
		if len(records) >= limit {
			break
		}
	}
	return records
}

func (s *MemoryStore) Close() error {
	return nil
}
