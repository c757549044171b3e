package models

import "time"

// Role values accepted by AI providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single role-tagged entry of a conversation chain sent to
// an AI provider. Name is only set for user messages and carries the display
// name of the author.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// UpdateRecord is a cached snapshot of one inbound Telegram update.
type UpdateRecord struct {
	UpdateID     int       `json:"update_id"`
	MessageID    int       `json:"message_id,omitempty"`
	ChatID       int64     `json:"chat_id,omitempty"`
	ChatType     string    `json:"chat_type,omitempty"`
	MessageText  string    `json:"message_text,omitempty"`
	UserID       int64     `json:"user_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	Author       string    `json:"author,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	LanguageCode string    `json:"language_code,omitempty"`
	MessageDate  time.Time `json:"message_date,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// ChatConfiguration is the persisted access record for a chat. A chat without
// a record is pending approval; Allowed is false until an operator grants
// access.
type ChatConfiguration struct {
	ID        string              `json:"id"`
	ChatID    int64               `json:"chat_id"`
	Title     string              `json:"title,omitempty"`
	ChatType  string              `json:"chat_type"`
	Allowed   bool                `json:"allowed"`
	Provider  string              `json:"provider,omitempty"`
	Model     *ModelConfiguration `json:"model,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ModelConfiguration carries per-chat model selection and sampling overrides.
// Nil pointer fields fall back to the provider's configured defaults.
type ModelConfiguration struct {
	Model           string   `json:"model,omitempty"`
	SystemMessage   string   `json:"system_message,omitempty"`
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"top_p,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
}
