package worker

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"yqhp/analysis-engine/internal/config"
	"yqhp/analysis-engine/internal/limiter"
	"yqhp/analysis-engine/pkg/logger"
)

// LLMClient is the single gateway to the external reasoning service.
// Every call passes through the shared adaptive rate limiter, and every
// outcome is reported back so the limiter can adjust its rate.
type LLMClient struct {
	chatModel model.ChatModel
	rate      *limiter.Adaptive
}

// NewLLMClient 创建 LLM 客户端。
func NewLLMClient(ctx context.Context, cfg *config.LLMConfig, rate *limiter.Adaptive) (*LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, NewConfigError("llm api_key is required", nil)
	}
	if cfg.Model == "" {
		return nil, NewConfigError("llm model is required", nil)
	}

	chatConfig := &openai.ChatModelConfig{
		Model:  cfg.Model,
		APIKey: cfg.APIKey,
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Provider {
		case "openai":
			baseURL = "https://api.openai.com/v1"
		case "deepseek":
			baseURL = "https://api.deepseek.com/v1"
		}
	}
	if baseURL != "" {
		chatConfig.BaseURL = baseURL
	}

	if cfg.Temperature > 0 {
		temp := cfg.Temperature
		chatConfig.Temperature = &temp
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		chatConfig.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(ctx, chatConfig)
	if err != nil {
		return nil, NewConfigError("failed to create chat model", err)
	}

	return &LLMClient{chatModel: chatModel, rate: rate}, nil
}

// NewLLMClientWithModel wires an existing chat model, used by tests to
// substitute a fake reasoning service.
func NewLLMClientWithModel(chatModel model.ChatModel, rate *limiter.Adaptive) *LLMClient {
	return &LLMClient{chatModel: chatModel, rate: rate}
}

// Complete sends one system+user prompt pair and returns the raw content.
func (c *LLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.rate != nil {
		if err := c.rate.Wait(ctx); err != nil {
			return "", NewRateLimitedError("", err)
		}
	}

	var messages []*schema.Message
	if systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(systemPrompt))
	}
	messages = append(messages, schema.UserMessage(userPrompt))

	resp, err := c.chatModel.Generate(ctx, messages)
	if c.rate != nil {
		c.rate.RecordResult(err == nil)
	}
	if err != nil {
		logger.Debug("llm call failed", zap.Error(err))
		return "", fmt.Errorf("llm call failed: %w", err)
	}

	return resp.Content, nil
}
