// Package llm wraps the Anthropic API for the single call the engine needs:
// turning a prompt into a proposed article topic title.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/evalgo/vaultforge/internal/config"
)

// Message is a single turn in the conversation sent to the model.
type Message struct {
	Role    string
	Content string
}

// Client is the capability the topic-proposal node depends on.
type Client interface {
	Invoke(ctx context.Context, messages []Message) (string, error)
}

// Anthropic is the production Client, backed by anthropic-sdk-go.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic builds a Client from an LLMConfig.
func NewAnthropic(cfg config.LLMConfig) *Anthropic {
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Anthropic{
		client:    client,
		model:     anthropic.Model(cfg.Model),
		maxTokens: maxTokens,
	}
}

// Invoke sends messages to the model and returns the concatenated text of
// the response's content blocks.
func (a *Anthropic) Invoke(ctx context.Context, messages []Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  toAnthropicMessages(messages),
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages.new: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("anthropic response contained no text content")
	}

	return strings.TrimSpace(out.String()), nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// Mock is a deterministic Client for local development and tests.
type Mock struct {
	Response string
	Err      error
}

func (m *Mock) Invoke(ctx context.Context, messages []Message) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	if len(messages) > 0 {
		return "Topic derived from: " + messages[len(messages)-1].Content, nil
	}
	return "Untitled Topic", nil
}
