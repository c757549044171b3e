package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	AI       AIConfig       `mapstructure:"ai"`
}

type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	BotName string `mapstructure:"bot_name"`
}

type DatabaseConfig struct {
	// Driver selects the chat configuration store: "postgres", "sqlite" or
	// "memory".
	Driver      string `mapstructure:"driver"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	Path        string `mapstructure:"path"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type CacheConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	DB          int    `mapstructure:"db"`
	Password    string `mapstructure:"password"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type AIConfig struct {
	DefaultProvider       string         `mapstructure:"default_provider"`
	RequestTimeoutSeconds int            `mapstructure:"request_timeout_seconds"`
	SystemMessage         string         `mapstructure:"system_message"`
	OpenAI                ProviderConfig `mapstructure:"openai"`
	Grok                  ProviderConfig `mapstructure:"grok"`
	Infermatic            ProviderConfig `mapstructure:"infermatic"`
}

type ProviderConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// DefaultSystemMessage is used for conversational replies when neither the
// chat's model configuration nor the config file overrides it.
const DefaultSystemMessage = `Act like a normal chat member, not a bot.
Keep replies under 4096 chars, never cut sentences.
Match the user's language and mood - serious if they're serious, funny if they joke.
Use humor or sarcasm only when it fits.
Avoid answering questions with more questions unless needed.
Be natural and human, never show system or meta text.`

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("telegram.bot_name", "@askbro_bot")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "askbro.db")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.use_in_memory", false)
	v.SetDefault("ai.default_provider", "Infermatic")
	v.SetDefault("ai.request_timeout_seconds", 120)
	v.SetDefault("ai.system_message", DefaultSystemMessage)
	v.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.grok.base_url", "https://api.x.ai/v1")
	v.SetDefault("ai.grok.model", "grok-4-fast-reasoning")
	v.SetDefault("ai.infermatic.base_url", "https://api.totalgpt.ai/v1")
	v.SetDefault("ai.infermatic.model", "Llama-3.2-11B-Vision-Instruct")
	v.SetDefault("ai.openai.max_tokens", 300)
	v.SetDefault("ai.grok.max_tokens", 300)
	v.SetDefault("ai.infermatic.max_tokens", 300)
	v.SetDefault("ai.openai.temperature", 0.7)
	v.SetDefault("ai.grok.temperature", 0.7)
	v.SetDefault("ai.infermatic.temperature", 0.7)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		dbConfig.UseInMemory = config.Database.UseInMemory
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if name := v.GetString("TELEGRAM_BOT_NAME"); name != "" {
		config.Telegram.BotName = name
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if apiKey := v.GetString("GROK_API_KEY"); apiKey != "" {
		config.AI.Grok.APIKey = apiKey
	}
	if apiKey := v.GetString("INFERMATIC_API_KEY"); apiKey != "" {
		config.AI.Infermatic.APIKey = apiKey
	}

	if config.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram token is not provided, bot cannot be started")
	}

	return &config, nil
}
