// Package history stores recently seen Telegram updates for a bounded
// retention window so handlers can reconstruct conversation context beyond
// the immediate reply chain.
//
// The store is advisory: writes are best-effort and reads never fail. An
// empty result means "no history available", not "no messages ever sent".
package history

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/askbro/internal/models"
)

// updateTTL bounds how long a cached update is retained.
const updateTTL = 24 * time.Hour

// maxHistoryFetch caps the number of candidate ids pulled from the per-chat
// index per lookup, regardless of the requested limit.
const maxHistoryFetch = 200

type Store interface {
	// Store persists the update with a bounded TTL. Best-effort: failures
	// are logged and swallowed, the caller is never blocked by a cache
	// problem.
	Store(ctx context.Context, update tgbotapi.Update)

	// LastMessages returns up to limit most recent records for the chat,
	// newest first, skipping excludeUpdateID (0 means no exclusion) and any
	// record that fails to deserialize. Returns an empty slice on any
	// transport failure.
	LastMessages(ctx context.Context, chatID int64, limit int, excludeUpdateID int) []models.UpdateRecord

	Close() error
}

// RecordFromUpdate derives the cached snapshot of an inbound update. Message
// text falls back to the media caption; a message date is normalized to UTC.
func RecordFromUpdate(update tgbotapi.Update) models.UpdateRecord {
	msg := effectiveMessage(update)
	user := update.SentFrom()
	chat := update.FromChat()

	record := models.UpdateRecord{
		UpdateID:   update.UpdateID,
		ReceivedAt: time.Now().UTC(),
	}
	if msg != nil {
		record.MessageID = msg.MessageID
		record.MessageText = extractText(msg)
		if msg.Date != 0 {
			record.MessageDate = msg.Time().UTC()
		}
	}
	if chat != nil {
		record.ChatID = chat.ID
		record.ChatType = chat.Type
	}
	if user != nil {
		record.UserID = user.ID
		record.Username = user.UserName
		record.Author = userFullName(user)
		record.FirstName = user.FirstName
		record.LastName = user.LastName
		record.LanguageCode = user.LanguageCode
	}
	return record
}

func effectiveMessage(update tgbotapi.Update) *tgbotapi.Message {
	switch {
	case update.Message != nil:
		return update.Message
	case update.EditedMessage != nil:
		return update.EditedMessage
	case update.ChannelPost != nil:
		return update.ChannelPost
	default:
		return nil
	}
}

func extractText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func userFullName(user *tgbotapi.User) string {
	if user.LastName == "" {
		return user.FirstName
	}
	return user.FirstName + " " + user.LastName
}
