package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/askbro/internal/history"
	"github.com/xaenox/askbro/internal/models"
	"github.com/xaenox/askbro/internal/pipeline"
	"github.com/xaenox/askbro/internal/storage"
)

// Bot glues the Telegram transport to the handler pipeline. It holds no
// business rules: every per-message decision lives in the handlers.
type Bot struct {
	api      *tgbotapi.BotAPI
	env      pipeline.Env
	storage  storage.Store
	history  history.Store
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

func New(token string, store storage.Store, historyStore history.Store, pipe *pipeline.Pipeline, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:      api,
		env:      &apiEnv{api: api},
		storage:  store,
		history:  historyStore,
		pipeline: pipe,
		logger:   logger,
	}, nil
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Starting Telegram polling", zap.String("bot", b.api.Self.UserName))

	// Updates are handled one at a time so events of a chat keep their
	// delivery order.
	for update := range updates {
		b.processUpdate(context.Background(), update, b.env)
	}

	return nil
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update, env pipeline.Env) {
	// History is recorded unconditionally, even when downstream handling is
	// skipped or fails.
	b.history.Store(ctx, update)

	msg := update.Message
	if msg == nil {
		b.logger.Debug("Update carries no message", zap.Int("update_id", update.UpdateID))
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, env)
		return
	}

	cfg := b.ensureConfiguration(ctx, msg.Chat)
	b.logger.Info("Processing inbound update",
		zap.Int("update_id", update.UpdateID),
		zap.Int64("chat_id", msg.Chat.ID))

	handled, err := b.pipeline.Dispatch(ctx, update, env, cfg)
	if err != nil {
		// Provider and wiring errors are an operator problem: log them and
		// let the chat receive no reply.
		b.logger.Error("Handler failed for update",
			zap.Error(err),
			zap.Int("update_id", update.UpdateID),
			zap.Int64("chat_id", msg.Chat.ID))
		return
	}
	if !handled {
		b.logger.Info("No handler accepted update",
			zap.Int("update_id", update.UpdateID),
			zap.Int64("chat_id", msg.Chat.ID))
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, env pipeline.Env) {
	switch msg.Command() {
	case "start":
		cfg := b.ensureConfiguration(ctx, msg.Chat)
		if cfg == nil {
			return
		}
		if !cfg.Allowed {
			b.logger.Info("Access denied for chat", zap.Int64("chat_id", msg.Chat.ID))
			b.reply(env, msg, notAllowedReply)
			return
		}
		b.reply(env, msg, "Hello! I am your bot. How can I help you?")
	default:
		// Other commands are ignored; the pipeline only sees plain messages.
		b.logger.Debug("Ignoring unknown command",
			zap.String("command", msg.Command()),
			zap.Int64("chat_id", msg.Chat.ID))
	}
}

func (b *Bot) ensureConfiguration(ctx context.Context, chat *tgbotapi.Chat) *models.ChatConfiguration {
	if chat == nil {
		return nil
	}
	cfg, err := b.storage.EnsureExists(ctx, chat.ID, chat.Title, chat.Type)
	if err != nil {
		b.logger.Error("Failed to ensure chat configuration",
			zap.Error(err),
			zap.Int64("chat_id", chat.ID))
		return nil
	}
	return cfg
}

func (b *Bot) reply(env pipeline.Env, msg *tgbotapi.Message, text string) {
	if err := env.Reply(msg.Chat.ID, msg.MessageID, text); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", msg.Chat.ID))
	}
}

// apiEnv adapts the Telegram client to the pipeline's Env contract.
type apiEnv struct {
	api *tgbotapi.BotAPI
}

func (e *apiEnv) SelfID() int64 {
	return e.api.Self.ID
}

func (e *apiEnv) Reply(chatID int64, replyToMessageID int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToMessageID
	if _, err := e.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
