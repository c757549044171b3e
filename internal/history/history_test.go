package history

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestRecordFromUpdateExtractsMessageFields(t *testing.T) {
	sent := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	update := tgbotapi.Update{
		UpdateID: 42,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Text:      "hello there",
			Date:      int(sent.Unix()),
			Chat:      &tgbotapi.Chat{ID: -100, Type: "supergroup"},
			From: &tgbotapi.User{
				ID:           12,
				UserName:     "alice",
				FirstName:    "Alice",
				LastName:     "Smith",
				LanguageCode: "en",
			},
		},
	}

	record := RecordFromUpdate(update)

	if record.UpdateID != 42 || record.MessageID != 7 {
		t.Fatalf("unexpected identifiers: %+v", record)
	}
	if record.MessageText != "hello there" {
		t.Fatalf("unexpected text %q", record.MessageText)
	}
	if record.ChatID != -100 || record.ChatType != "supergroup" {
		t.Fatalf("unexpected chat fields: %+v", record)
	}
	if record.UserID != 12 || record.Username != "alice" || record.Author != "Alice Smith" {
		t.Fatalf("unexpected author fields: %+v", record)
	}
	if !record.MessageDate.Equal(sent) {
		t.Fatalf("expected message date %v, got %v", sent, record.MessageDate)
	}
	if record.MessageDate.Location() != time.UTC {
		t.Fatalf("expected UTC message date, got %v", record.MessageDate.Location())
	}
	if record.ReceivedAt.IsZero() {
		t.Fatal("expected receipt timestamp to be set")
	}
}

func TestRecordFromUpdateFallsBackToCaption(t *testing.T) {
	update := tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 1,
			Caption:   "photo of a cat",
			Chat:      &tgbotapi.Chat{ID: 5, Type: "private"},
		},
	}

	record := RecordFromUpdate(update)
	if record.MessageText != "photo of a cat" {
		t.Fatalf("expected caption fallback, got %q", record.MessageText)
	}
}

func TestRecordFromUpdateWithoutMessage(t *testing.T) {
	record := RecordFromUpdate(tgbotapi.Update{UpdateID: 9})
	if record.UpdateID != 9 {
		t.Fatalf("unexpected update id %d", record.UpdateID)
	}
	if record.MessageText != "" || record.ChatID != 0 {
		t.Fatalf("expected empty record fields, got %+v", record)
	}
}
