// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"voice-tutor-go/internal/config"
	"voice-tutor-go/pkg/log"
)

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("language model not configured: set llm.api_key")

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion from language model")

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 发送单条 user 消息并返回完整回复。
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteMessages 以 role-based 消息与可选生成参数调用聊天接口。
	CompleteMessages(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

type openAIClient struct {
	cfg    config.LLMConfig
	client *openai.Client
}

// NewClient creates an OpenAI-compatible chat client. The default base URL
// points at Gemini's OpenAI-compatible endpoint.
func NewClient(cfg config.LLMConfig) Client {
	if cfg.APIKey == "" {
		return unconfigured{}
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &openAIClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
	}
}

func (c *openAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteMessages(ctx, []Message{{Role: openai.ChatMessageRoleUser, Content: prompt}}, nil)
}

func (c *openAIClient) CompleteMessages(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	// 传参优先，其次使用配置中的非零值
	if gen == nil {
		gen = c.defaultParams()
	}
	if gen.Temperature != nil {
		req.Temperature = float32(*gen.Temperature)
	}
	if gen.TopP != nil {
		req.TopP = float32(*gen.TopP)
	}
	if gen.MaxTokens != nil {
		req.MaxTokens = *gen.MaxTokens
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	log.Debugf("[LLM] model=%s latency=%s chars=%d", c.cfg.Model, time.Since(start), len(text))
	return text, nil
}

func (c *openAIClient) defaultParams() *GenerationParams {
	p := &GenerationParams{}
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		p.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		tp := c.cfg.Generation.TopP
		p.TopP = &tp
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		p.MaxTokens = &m
	}
	return p
}

type unconfigured struct{}

func (unconfigured) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (unconfigured) CompleteMessages(context.Context, []Message, *GenerationParams) (string, error) {
	return "", ErrNotConfigured
}
