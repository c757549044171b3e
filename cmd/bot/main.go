package main

import (
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xaenox/askbro/internal/ai"
	"github.com/xaenox/askbro/internal/bot"
	"github.com/xaenox/askbro/internal/history"
	"github.com/xaenox/askbro/internal/pipeline"
	"github.com/xaenox/askbro/internal/storage"
	"github.com/xaenox/askbro/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Secrets live in .env during local development; missing file is fine.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize chat configuration storage
	store, err := newChatStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	// Initialize history cache
	var historyStore history.Store
	if cfg.Cache.UseInMemory {
		logger.Info("Using in-memory history cache")
		historyStore = history.NewMemoryStore()
	} else {
		logger.Info("Using Redis history cache",
			zap.String("host", cfg.Cache.Host),
			zap.Int("port", cfg.Cache.Port))
		historyStore = history.NewRedisStore(cfg.Cache.Host, cfg.Cache.Port, cfg.Cache.DB, cfg.Cache.Password, logger)
	}
	defer historyStore.Close()

	// Register AI providers
	providers, err := newProviderRegistry(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AI providers", zap.Error(err))
	}
	if !providers.Contains(cfg.AI.DefaultProvider) {
		logger.Fatal("Default AI provider is not registered",
			zap.String("provider", cfg.AI.DefaultProvider),
			zap.Strings("registered", providers.Names()))
	}

	// Register message handlers; a dependency cycle is fatal here, before
	// the bot starts serving traffic.
	registry := pipeline.NewRegistry()
	for _, handler := range bot.DefaultHandlers(providers, historyStore, cfg.AI.DefaultProvider, cfg.Telegram.BotName, logger) {
		if err := registry.Register(handler); err != nil {
			logger.Fatal("Failed to register handler", zap.Error(err))
		}
	}
	pipe, err := pipeline.NewPipeline(registry, logger)
	if err != nil {
		logger.Fatal("Failed to build handler pipeline", zap.Error(err))
	}

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, store, historyStore, pipe, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}

func newChatStore(cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.Database.UseInMemory || cfg.Database.Driver == "memory" {
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}

	switch cfg.Database.Driver {
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		return storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
	default:
		logger.Info("Using SQLite storage", zap.String("path", cfg.Database.Path))
		return storage.NewSQLiteStorage(cfg.Database.Path)
	}
}

func newProviderRegistry(cfg *config.Config, logger *zap.Logger) (*ai.Registry, error) {
	timeout := time.Duration(cfg.AI.RequestTimeoutSeconds) * time.Second
	registry := ai.NewRegistry()

	register := func(name string, provider config.ProviderConfig) error {
		if !provider.Enabled {
			return nil
		}
		client, err := ai.NewOpenAIClient(name, provider.APIKey, provider.BaseURL, ai.Defaults{
			Model:         provider.Model,
			SystemMessage: cfg.AI.SystemMessage,
			Temperature:   float32(provider.Temperature),
			MaxTokens:     provider.MaxTokens,
		}, timeout, logger)
		if err != nil {
			return err
		}
		registry.Register(client)
		logger.Info("Registered AI provider", zap.String("provider", name))
		return nil
	}

	if err := register("OpenAI", cfg.AI.OpenAI); err != nil {
		return nil, err
	}
	if err := register("Grok", cfg.AI.Grok); err != nil {
		return nil, err
	}
	if err := register("Infermatic", cfg.AI.Infermatic); err != nil {
		return nil, err
	}

	return registry, nil
}
