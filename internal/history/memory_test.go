package history

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func textUpdate(updateID int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: updateID,
		Message: &tgbotapi.Message{
			MessageID: updateID,
			Text:      text,
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "group"},
			From:      &tgbotapi.User{ID: 100, UserName: "someone"},
		},
	}
}

// tickingStore returns a MemoryStore whose clock advances one second per
// call, so receipt timestamps are distinct and deterministic.
func tickingStore(start time.Time) *MemoryStore {
	s := NewMemoryStore()
	current := start
	s.now = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
	return s
}

func TestLastMessagesNewestFirstWithFetchCap(t *testing.T) {
	ctx := context.Background()
	s := tickingStore(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))

	for i := 1; i <= 250; i++ {
		s.Store(ctx, textUpdate(i, 1, "message"))
	}

	records := s.LastMessages(ctx, 1, 200, 0)
	if len(records) != 200 {
		t.Fatalf("expected 200 records, got %d", len(records))
	}
	if records[0].UpdateID != 250 {
		t.Fatalf("expected newest record first, got update %d", records[0].UpdateID)
	}

	seen := make(map[int]bool)
	prev := records[0].ReceivedAt.Add(time.Second)
	for _, record := range records {
		if seen[record.UpdateID] {
			t.Fatalf("duplicate update id %d", record.UpdateID)
		}
		seen[record.UpdateID] = true
		if record.ReceivedAt.After(prev) {
			t.Fatalf("records not in newest-first order around update %d", record.UpdateID)
		}
		prev = record.ReceivedAt
	}
}

func TestLastMessagesHonorsLimitAndExclusion(t *testing.T) {
	ctx := context.Background()
	s := tickingStore(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))

	for i := 1; i <= 10; i++ {
		s.Store(ctx, textUpdate(i, 1, "message"))
	}

	records := s.LastMessages(ctx, 1, 5, 10)
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	for _, record := range records {
		if record.UpdateID == 10 {
			t.Fatal("excluded update id was returned")
		}
	}
	if records[0].UpdateID != 9 {
		t.Fatalf("expected update 9 first after exclusion, got %d", records[0].UpdateID)
	}
}

func TestLastMessagesSkipsExpiredRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	current := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Store(ctx, textUpdate(1, 1, "old message"))

	current = current.Add(25 * time.Hour)
	if records := s.LastMessages(ctx, 1, 10, 0); len(records) != 0 {
		t.Fatalf("expected expired record to be skipped, got %d records", len(records))
	}
}

func TestLastMessagesNonPositiveLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Store(ctx, textUpdate(1, 1, "message"))

	if records := s.LastMessages(ctx, 1, 0, 0); records != nil {
		t.Fatalf("expected nil for zero limit, got %v", records)
	}
}

func TestLastMessagesIsolatesChats(t *testing.T) {
	ctx := context.Background()
	s := tickingStore(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))

	s.Store(ctx, textUpdate(1, 1, "chat one"))
	s.Store(ctx, textUpdate(2, 2, "chat two"))

	records := s.LastMessages(ctx, 1, 10, 0)
	if len(records) != 1 || records[0].MessageText != "chat one" {
		t.Fatalf("expected only chat 1 history, got %+v", records)
	}
}

func TestStoreDeduplicatesUpdateIDs(t *testing.T) {
	ctx := context.Background()
	s := tickingStore(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))

	s.Store(ctx, textUpdate(1, 1, "first delivery"))
	s.Store(ctx, textUpdate(1, 1, "second delivery"))

	records := s.LastMessages(ctx, 1, 10, 0)
	if len(records) != 1 {
		t.Fatalf("expected one record for a redelivered update, got %d", len(records))
	}
	if records[0].MessageText != "second delivery" {
		t.Fatalf("expected latest payload to win, got %q", records[0].MessageText)
	}
}
