package pipeline

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/askbro/internal/models"
)

// Env exposes the transport-layer capabilities handlers may use: the bot's
// own identity and a plain-text reply primitive.
type Env interface {
	SelfID() int64
	Reply(chatID int64, replyToMessageID int, text string) error
}

// Handler is one predicate/action pair of the responder pipeline. CanHandle
// must be a pure predicate; side effects belong in Handle.
type Handler interface {
	Name() string
	// Dependencies returns the names of handlers that must be evaluated
	// before this one.
	Dependencies() []string
	CanHandle(update tgbotapi.Update, env Env, cfg *models.ChatConfiguration) bool
	Handle(ctx context.Context, update tgbotapi.Update, env Env, cfg *models.ChatConfiguration) error
	// ContinueAfterHandle reports whether dispatch should keep evaluating
	// subsequent handlers after this one acted. Responders return false so a
	// chat never receives duplicate replies.
	ContinueAfterHandle() bool
}

// Registry owns the handler set in registration order.
type Registry struct {
	handlers []Handler
	names    map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

func (r *Registry) Register(h Handler) error {
	name := h.Name()
	if r.names[name] {
		return fmt.Errorf("handler %q is already registered", name)
	}
	r.names[name] = true
	r.handlers = append(r.handlers, h)
	return nil
}

func (r *Registry) Handlers() []Handler {
	out := make([]Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Pipeline evaluates handlers in dependency order against inbound updates.
// The order is resolved once at construction; the handler set is static after
// startup.
type Pipeline struct {
	ordered []Handler
	logger  *zap.Logger
}

func NewPipeline(registry *Registry, logger *zap.Logger) (*Pipeline, error) {
	handlers := registry.Handlers()
	names := make([]string, 0, len(handlers))
	deps := make(map[string][]string, len(handlers))
	byName := make(map[string]Handler, len(handlers))
	for _, h := range handlers {
		names = append(names, h.Name())
		deps[h.Name()] = h.Dependencies()
		byName[h.Name()] = h
	}

	order, err := sortTopologically(names, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to order handlers: %w", err)
	}

	ordered := make([]Handler, 0, len(order))
	for _, name := range order {
		ordered = append(ordered, byName[name])
	}

	return &Pipeline{ordered: ordered, logger: logger}, nil
}

// Dispatch runs the pipeline for one update. The first handler whose
// predicate matches acts; dispatch then stops unless the handler opts into
// continuation. The returned bool reports whether any handler accepted the
// update. A handler error aborts dispatch and propagates to the caller.
func (p *Pipeline) Dispatch(ctx context.Context, update tgbotapi.Update, env Env, cfg *models.ChatConfiguration) (bool, error) {
	handled := false
	for _, h := range p.ordered {
		if !h.CanHandle(update, env, cfg) {
			p.logger.Debug("Handler skipped update",
				zap.String("handler", h.Name()),
				zap.Int("update_id", update.UpdateID))
			continue
		}

		p.logger.Info("Dispatching handler",
			zap.String("handler", h.Name()),
			zap.Int("update_id", update.UpdateID))
		if err := h.Handle(ctx, update, env, cfg); err != nil {
			return true, fmt.Errorf("handler %s: %w", h.Name(), err)
		}
		handled = true
		if !h.ContinueAfterHandle() {
			break
		}
	}
	return handled, nil
}
