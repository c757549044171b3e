package ai

import (
	"context"
	"fmt"
	"regexp"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/askbro/internal/models"
)

// Defaults carry the per-provider fallbacks applied when a chat has no model
// configuration or leaves a field unset.
type Defaults struct {
	Model         string
	SystemMessage string
	Temperature   float32
	MaxTokens     int
}

// OpenAIClient talks to any OpenAI-compatible chat completion API. One type
// covers OpenAI itself as well as Grok and Infermatic, which differ only in
// base URL, credentials and default model.
type OpenAIClient struct {
	name           string
	client         *openai.Client
	defaults       Defaults
	requestTimeout time.Duration
	logger         *zap.Logger
}

func NewOpenAIClient(name, apiKey, baseURL string, defaults Defaults, requestTimeout time.Duration, logger *zap.Logger) (*OpenAIClient, error) {
	if defaults.Model == "" {
		return nil, NewConfigError("default model is not set for provider %q", name)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		name:           name,
		client:         openai.NewClientWithConfig(cfg),
		defaults:       defaults,
		requestTimeout: requestTimeout,
		logger:         logger,
	}, nil
}

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) Answer(ctx context.Context, chain []models.ChatMessage, modelCfg *models.ModelConfiguration) (string, error) {
	request := c.buildRequest(chain, modelCfg)

	// A hanging completion call must not block the delivery loop forever.
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	c.logger.Debug("Requesting chat completion",
		zap.String("provider", c.name),
		zap.String("model", request.Model),
		zap.Int("messages", len(request.Messages)))

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("%s completion request: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no completion choices", c.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) buildRequest(chain []models.ChatMessage, modelCfg *models.ModelConfiguration) openai.ChatCompletionRequest {
	model := c.defaults.Model
	systemMessage := c.defaults.SystemMessage
	temperature := c.defaults.Temperature
	maxTokens := c.defaults.MaxTokens
	var topP float32

	if modelCfg != nil {
		if modelCfg.Model != "" {
			model = modelCfg.Model
		}
		if modelCfg.SystemMessage != "" {
			systemMessage = modelCfg.SystemMessage
		}
		if modelCfg.Temperature != nil {
			temperature = *modelCfg.Temperature
		}
		if modelCfg.MaxOutputTokens != nil {
			maxTokens = *modelCfg.MaxOutputTokens
		}
		if modelCfg.TopP != nil {
			topP = *modelCfg.TopP
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(chain)+1)
	// Chains built for summarization carry their own system entry; everything
	// else gets the configured one.
	if systemMessage != "" && (len(chain) == 0 || chain[0].Role != models.RoleSystem) {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemMessage,
		})
	}
	for _, msg := range chain {
		converted := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		if msg.Role == models.RoleUser && msg.Name != "" {
			converted.Name = sanitizeName(msg.Name)
		}
		messages = append(messages, converted)
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        topP,
	}
}

var nameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeName maps arbitrary Telegram display names onto the charset the
// chat completion API accepts for the name field.
func sanitizeName(name string) string {
	cleaned := nameSanitizer.ReplaceAllString(name, "_")
	if len(cleaned) > 64 {
		cleaned = cleaned[:64]
	}
	return cleaned
}
