package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xaenox/askbro/internal/models"
)

// RedisStore keeps update records in Redis: one JSON value per update plus a
// per-chat sorted set of update ids scored by receipt time, both expiring
// after the retention window.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStore(host string, port, db int, password string, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		DB:       db,
		Password: password,
	})
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Store(ctx context.Context, update tgbotapi.Update) {
	record := RecordFromUpdate(update)

	payload, err := json.Marshal(record)
	if err != nil {
		s.logger.Warn("Failed to serialize telegram update",
			zap.Error(err),
			zap.Int("update_id", record.UpdateID))
		return
	}

	if err := s.client.Set(ctx, recordKey(record.UpdateID), payload, updateTTL).Err(); err != nil {
		s.logger.Warn("Failed to store telegram update",
			zap.Error(err),
			zap.Int("update_id", record.UpdateID))
		return
	}

	if record.ChatID != 0 {
		s.indexUpdate(ctx, record)
	}
	s.logger.Debug("Stored telegram update in cache", zap.Int("update_id", record.UpdateID))
}

func (s *RedisStore) LastMessages(ctx context.Context, chatID int64, limit int, excludeUpdateID int) []models.UpdateRecord {
	if limit <= 0 {
		return nil
	}

	// Candidates are pulled up to the retention cap rather than just limit:
	// the excluded id may sit inside the newest window, and expired records
	// leave gaps in the index.
	chatKey := chatUpdatesKey(chatID)
	rawIDs, err := s.client.ZRevRange(ctx, chatKey, 0, int64(maxHistoryFetch-1)).Result()
	if err != nil {
		s.logger.Warn("Failed to fetch cached updates for chat",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		return nil
	}

	records := make([]models.UpdateRecord, 0, len(rawIDs))
	for _, rawID := range rawIDs {
		updateID, err := strconv.Atoi(rawID)
		if err != nil {
			continue
		}
		if excludeUpdateID != 0 && updateID == excludeUpdateID {
			continue
		}

		payload, err := s.client.Get(ctx, recordKey(updateID)).Result()
		if err != nil {
			// Expired records and transient failures are both skipped; the
			// batch continues.
			if err != redis.Nil {
				s.logger.Warn("Failed to fetch cached update",
					zap.Error(err),
					zap.Int("update_id", updateID))
			}
			continue
		}

		var record models.UpdateRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			s.logger.Debug("Failed to parse cached update",
				zap.Error(err),
				zap.Int("update_id", updateID))
			continue
		}

		records = append(records, record)
		if len(records) >= limit {
			break
		}
	}

	return records
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// indexUpdate adds the update to the per-chat sorted set used for history
// lookups and refreshes the set's expiry.
func (s *RedisStore) indexUpdate(ctx context.Context, record models.UpdateRecord) {
	chatKey := chatUpdatesKey(record.ChatID)
	member := redis.Z{
		Score:  float64(record.ReceivedAt.UnixMilli()) / 1000,
		Member: strconv.Itoa(record.UpdateID),
	}
	if err := s.client.ZAdd(ctx, chatKey, member).Err(); err != nil {
		s.logger.Debug("Failed to index telegram update",
			zap.Error(err),
			zap.Int("update_id", record.UpdateID),
			zap.Int64("chat_id", record.ChatID))
		return
	}
	if err := s.client.Expire(ctx, chatKey, updateTTL).Err(); err != nil {
		s.logger.Debug("Failed to refresh chat index expiry",
			zap.Error(err),
			zap.Int64("chat_id", record.ChatID))
	}
}

func recordKey(updateID int) string {
	return fmt.Sprintf("telegram:update:%d", updateID)
}

func chatUpdatesKey(chatID int64) string {
	return fmt.Sprintf("telegram:chat:%d:updates", chatID)
}
