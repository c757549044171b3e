package bot

import (
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xaenox/askbro/internal/models"
)

// maxReplyDepth bounds reply-chain traversal. Telegram reply graphs are trees
// in practice, but a malformed chain must not loop forever.
const maxReplyDepth = 100

// ReplyChainToRecords converts a live message and its reply ancestry into
// update records ordered newest first. Synthetic update ids derive from the
// triggering message id plus an increasing offset, since the true update id
// of a replied-to message is not known.
func ReplyChainToRecords(msg *tgbotapi.Message) []models.UpdateRecord {
	if msg == nil {
		return nil
	}

	records := make([]models.UpdateRecord, 0, 4)
	visited := make(map[int]bool)
	current := msg
	offset := 0
	for current != nil && offset < maxReplyDepth {
		if visited[current.MessageID] {
			break
		}
		visited[current.MessageID] = true
		records = append(records, messageToRecord(current, msg.MessageID+offset))
		current = current.ReplyToMessage
		offset++
	}
	return records
}

func messageToRecord(msg *tgbotapi.Message, fallbackUpdateID int) models.UpdateRecord {
	record := models.UpdateRecord{
		UpdateID:   fallbackUpdateID,
		MessageID:  msg.MessageID,
		ReceivedAt: time.Now().UTC(),
	}
	record.MessageText = msg.Text
	if record.MessageText == "" {
		record.MessageText = msg.Caption
	}
	if msg.Date != 0 {
		record.MessageDate = msg.Time().UTC()
	}
	if msg.Chat != nil {
		record.ChatID = msg.Chat.ID
		record.ChatType = msg.Chat.Type
	}
	if user := msg.From; user != nil {
		record.UserID = user.ID
		record.Username = user.UserName
		record.Author = user.FirstName
		if user.LastName != "" {
			record.Author = user.FirstName + " " + user.LastName
		}
		record.FirstName = user.FirstName
		record.LastName = user.LastName
		record.LanguageCode = user.LanguageCode
	}
	return record
}

// BuildMessageChain converts update records into role-tagged messages,
// prepending the optional prefix. The chain preserves the order in which
// records are supplied: collections gathered newest first must be reversed
// by the caller before the chain goes to a provider, which expects oldest
// first.
func BuildMessageChain(records []models.UpdateRecord, selfID int64, prefix []models.ChatMessage) []models.ChatMessage {
	chain := make([]models.ChatMessage, 0, len(records)+len(prefix))
	chain = append(chain, prefix...)
	for _, record := range records {
		if msg, ok := recordToMessage(record, selfID); ok {
			chain = append(chain, msg)
		}
	}
	return chain
}

func recordToMessage(record models.UpdateRecord, selfID int64) (models.ChatMessage, bool) {
	if record.MessageText == "" {
		return models.ChatMessage{}, false
	}

	if record.UserID != 0 && record.UserID == selfID {
		return models.ChatMessage{
			Role:    models.RoleAssistant,
			Content: record.MessageText,
		}, true
	}

	return models.ChatMessage{
		Role:    models.RoleUser,
		Content: record.MessageText,
		Name:    resolveDisplayName(record),
	}, true
}

// resolveDisplayName picks the best available author name: username, then
// full name, then first name, then the numeric id, then a literal fallback.
func resolveDisplayName(record models.UpdateRecord) string {
	if record.Username != "" {
		return record.Username
	}
	if record.Author != "" {
		return record.Author
	}
	if record.FirstName != "" {
		return record.FirstName
	}
	if record.UserID != 0 {
		return strconv.FormatInt(record.UserID, 10)
	}
	return "Unknown"
}

func reverseRecords(records []models.UpdateRecord) []models.UpdateRecord {
	out := make([]models.UpdateRecord, len(records))
	for i, record := range records {
		out[len(records)-1-i] = record
	}
	return out
}
