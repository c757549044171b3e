package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xaenox/askbro/internal/models"
)

// Client is the single capability the bot requires from an AI provider.
type Client interface {
	// Answer requests a completion for the supplied chain, ordered oldest
	// first. modelCfg may be nil, in which case the provider applies its
	// configured defaults.
	Answer(ctx context.Context, chain []models.ChatMessage, modelCfg *models.ModelConfiguration) (string, error)
	Name() string
}

// ConfigError marks an operator-side wiring mistake, such as a chat pointing
// at an unregistered provider. It is not a user error: it propagates out of
// handling so the runtime can log it, and the chat receives no reply.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// Registry maps provider names to instantiated clients. It is populated once
// at startup and read-only afterwards; no locking is required.
type Registry struct {
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(client Client) {
	r.clients[client.Name()] = client
}

func (r *Registry) Get(name string) (Client, bool) {
	client, ok := r.clients[name]
	return client, ok
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.clients[name]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the client for the chat's configured provider, falling back
// to the system-wide default when the chat does not name one.
func Resolve(registry *Registry, cfg *models.ChatConfiguration, defaultProvider string) (Client, error) {
	provider := defaultProvider
	if cfg != nil && cfg.Provider != "" {
		provider = cfg.Provider
	}
	client, ok := registry.Get(provider)
	if !ok {
		return nil, NewConfigError("AI provider %q is not registered", provider)
	}
	return client, nil
}
