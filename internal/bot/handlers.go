package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/askbro/internal/ai"
	"github.com/xaenox/askbro/internal/history"
	"github.com/xaenox/askbro/internal/models"
	"github.com/xaenox/askbro/internal/pipeline"
)

// Handler names double as dependency identifiers in the pipeline.
const (
	HandlerEmptyMessage           = "empty_message"
	HandlerEmptyChatConfiguration = "empty_chat_configuration"
	HandlerNotAllowed             = "not_allowed"
	HandlerTestMessage            = "test_message"
	HandlerSummarize              = "summarize"
	HandlerAIMessage              = "ai_message"
)

const notAllowedReply = "Access pending approval. Please contact the administrator."

// maxSummaryMessages caps how much history one summarization may pull.
const maxSummaryMessages = 200

const summarizationPrompt = "You are a helpful friend to assist. You need to go through the messages of the conversation " +
	"and summarize in general what has been discussed. Do not make up your own ideas. Be concise. " +
	"Do not include any personal opinion until you directly asked."

var summaryCommandPattern = regexp.MustCompile(`(?i)^(#summarize|#підсумуй)\s*(\d+)`)

// DefaultHandlers returns the baseline handler set in registration order.
// Registration order is the tie-break for handlers without a mutual
// dependency, so the returned order is part of the pipeline's contract.
func DefaultHandlers(registry *ai.Registry, historyStore history.Store, defaultProvider, botName string, logger *zap.Logger) []pipeline.Handler {
	return []pipeline.Handler{
		NewEmptyMessageHandler(),
		NewEmptyChatConfigurationHandler(),
		NewNotAllowedHandler(),
		NewTestMessageHandler(),
		NewSummarizeHandler(registry, historyStore, defaultProvider, logger),
		NewAIMessageHandler(registry, defaultProvider, botName),
	}
}

// EmptyMessageHandler consumes updates that carry no usable text so the
// responders below it never have to nil-check the message. The polling
// runtime already drops message-less updates before dispatch; the nil branch
// here serves callers that feed the pipeline directly.
type EmptyMessageHandler struct{}

func NewEmptyMessageHandler() *EmptyMessageHandler { return &EmptyMessageHandler{} }

func (h *EmptyMessageHandler) Name() string { return HandlerEmptyMessage }

func (h *EmptyMessageHandler) Dependencies() []string { return nil }

func (h *EmptyMessageHandler) ContinueAfterHandle() bool { return false }

func (h *EmptyMessageHandler) CanHandle(update tgbotapi.Update, _ pipeline.Env, _ *models.ChatConfiguration) bool {
	return update.Message == nil || update.Message.Text == ""
}

func (h *EmptyMessageHandler) Handle(_ context.Context, _ tgbotapi.Update, _ pipeline.Env, _ *models.ChatConfiguration) error {
	return nil
}

// EmptyChatConfigurationHandler matches chats that have no configuration
// record yet. Record creation happens upstream in the orchestrator, so the
// handler waits silently.
type EmptyChatConfigurationHandler struct{}

func NewEmptyChatConfigurationHandler() *EmptyChatConfigurationHandler {
	return &EmptyChatConfigurationHandler{}
}

func (h *EmptyChatConfigurationHandler) Name() string { return HandlerEmptyChatConfiguration }

func (h *EmptyChatConfigurationHandler) Dependencies() []string {
	return []string{HandlerEmptyMessage}
}

func (h *EmptyChatConfigurationHandler) ContinueAfterHandle() bool { return false }

func (h *EmptyChatConfigurationHandler) CanHandle(_ tgbotapi.Update, _ pipeline.Env, cfg *models.ChatConfiguration) bool {
	return cfg == nil
}

func (h *EmptyChatConfigurationHandler) Handle(_ context.Context, _ tgbotapi.Update, _ pipeline.Env, _ *models.ChatConfiguration) error {
	return nil
}

// NotAllowedHandler answers chats whose access has not been granted. Every
// responsive handler depends on it, so a denied chat never reaches one.
type NotAllowedHandler struct{}

func NewNotAllowedHandler() *NotAllowedHandler { return &NotAllowedHandler{} }

func (h *NotAllowedHandler) Name() string { return HandlerNotAllowed }

func (h *NotAllowedHandler) Dependencies() []string {
	return []string{HandlerEmptyChatConfiguration}
}

func (h *NotAllowedHandler) ContinueAfterHandle() bool { return false }

func (h *NotAllowedHandler) CanHandle(_ tgbotapi.Update, _ pipeline.Env, cfg *models.ChatConfiguration) bool {
	return cfg != nil && !cfg.Allowed
}

func (h *NotAllowedHandler) Handle(_ context.Context, update tgbotapi.Update, env pipeline.Env, _ *models.ChatConfiguration) error {
	msg := update.Message
	if msg == nil {
		return nil
	}
	return env.Reply(msg.Chat.ID, msg.MessageID, notAllowedReply)
}

// TestMessageHandler echoes #test messages back, a liveness check for
// operators.
type TestMessageHandler struct{}

func NewTestMessageHandler() *TestMessageHandler { return &TestMessageHandler{} }

func (h *TestMessageHandler) Name() string { return HandlerTestMessage }

func (h *TestMessageHandler) Dependencies() []string { return []string{HandlerNotAllowed} }

func (h *TestMessageHandler) ContinueAfterHandle() bool { return false }

func (h *TestMessageHandler) CanHandle(update tgbotapi.Update, _ pipeline.Env, cfg *models.ChatConfiguration) bool {
	if cfg == nil || !cfg.Allowed || update.Message == nil {
		return false
	}
	return strings.HasPrefix(update.Message.Text, "#test")
}

func (h *TestMessageHandler) Handle(_ context.Context, update tgbotapi.Update, env pipeline.Env, _ *models.ChatConfiguration) error {
	msg := update.Message
	return env.Reply(msg.Chat.ID, msg.MessageID, fmt.Sprintf("Hi there! You said: %s", msg.Text))
}

// SummarizeHandler collects recent chat history from the cache and asks the
// chat's AI provider for a concise summary.
type SummarizeHandler struct {
	registry        *ai.Registry
	history         history.Store
	defaultProvider string
	logger          *zap.Logger
}

func NewSummarizeHandler(registry *ai.Registry, historyStore history.Store, defaultProvider string, logger *zap.Logger) *SummarizeHandler {
	return &SummarizeHandler{
		registry:        registry,
		history:         historyStore,
		defaultProvider: defaultProvider,
		logger:          logger,
	}
}

func (h *SummarizeHandler) Name() string { return HandlerSummarize }

func (h *SummarizeHandler) Dependencies() []string { return []string{HandlerNotAllowed} }

func (h *SummarizeHandler) ContinueAfterHandle() bool { return false }

func (h *SummarizeHandler) CanHandle(update tgbotapi.Update, _ pipeline.Env, cfg *models.ChatConfiguration) bool {
	if cfg == nil || !cfg.Allowed || update.Message == nil {
		return false
	}
	return summaryCommandPattern.MatchString(update.Message.Text)
}

func (h *SummarizeHandler) Handle(ctx context.Context, update tgbotapi.Update, env pipeline.Env, cfg *models.ChatConfiguration) error {
	msg := update.Message
	match := summaryCommandPattern.FindStringSubmatch(msg.Text)
	if match == nil {
		return nil
	}

	limit, err := strconv.Atoi(match[2])
	if err != nil || limit <= 0 {
		return env.Reply(msg.Chat.ID, msg.MessageID, "Invalid limit. You must specify a positive number.")
	}
	if limit > maxSummaryMessages {
		limit = maxSummaryMessages
		notice := fmt.Sprintf("Limit is greater than the maximum allowed (%d). Using %d.", maxSummaryMessages, limit)
		if err := env.Reply(msg.Chat.ID, msg.MessageID, notice); err != nil {
			return err
		}
	}

	// The triggering command was cached before dispatch; exclude it so the
	// summary covers the N messages before it.
	records := h.history.LastMessages(ctx, msg.Chat.ID, limit, update.UpdateID)
	h.logger.Debug("Collected history for summarization",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Int("requested", limit),
		zap.Int("collected", len(records)))

	prefix := []models.ChatMessage{{Role: models.RoleSystem, Content: summarizationPrompt}}
	chain := BuildMessageChain(reverseRecords(records), env.SelfID(), prefix)

	client, err := ai.Resolve(h.registry, cfg, h.defaultProvider)
	if err != nil {
		return err
	}
	answer, err := client.Answer(ctx, chain, cfg.Model)
	if err != nil {
		return err
	}
	return env.Reply(msg.Chat.ID, msg.MessageID, answer)
}

// AIMessageHandler answers messages that mention the bot or reply to one of
// its own messages, using the live reply chain as conversation context.
type AIMessageHandler struct {
	registry        *ai.Registry
	defaultProvider string
	botName         string
}

func NewAIMessageHandler(registry *ai.Registry, defaultProvider, botName string) *AIMessageHandler {
	return &AIMessageHandler{
		registry:        registry,
		defaultProvider: defaultProvider,
		botName:         botName,
	}
}

func (h *AIMessageHandler) Name() string { return HandlerAIMessage }

func (h *AIMessageHandler) Dependencies() []string { return []string{HandlerNotAllowed} }

func (h *AIMessageHandler) ContinueAfterHandle() bool { return false }

func (h *AIMessageHandler) CanHandle(update tgbotapi.Update, env pipeline.Env, cfg *models.ChatConfiguration) bool {
	if cfg == nil || !cfg.Allowed || update.Message == nil || update.Message.Text == "" {
		return false
	}
	if h.botName != "" && strings.Contains(update.Message.Text, h.botName) {
		return true
	}
	replyTo := update.Message.ReplyToMessage
	return replyTo != nil && replyTo.From != nil && replyTo.From.ID == env.SelfID()
}

func (h *AIMessageHandler) Handle(ctx context.Context, update tgbotapi.Update, env pipeline.Env, cfg *models.ChatConfiguration) error {
	msg := update.Message
	records := ReplyChainToRecords(msg)
	chain := BuildMessageChain(reverseRecords(records), env.SelfID(), nil)

	client, err := ai.Resolve(h.registry, cfg, h.defaultProvider)
	if err != nil {
		return err
	}
	answer, err := client.Answer(ctx, chain, cfg.Model)
	if err != nil {
		return err
	}
	return env.Reply(msg.Chat.ID, msg.MessageID, answer)
}
