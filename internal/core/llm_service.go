package core

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"memochat/internal/config"
	"memochat/internal/store"
)

// BaseSystemPrompt is appended after the per-user context prefix on every
// completion request.
const BaseSystemPrompt = "You are an intelligent AGI-like assistant with persistent memory and context awareness. " +
	"Help users navigate, analyze, and understand web content. Learn from interactions and remember patterns. " +
	"Provide clear, concise responses while maintaining conversation context."

// maxStreamRetries bounds reconnect attempts when the upstream call fails
// before any output has been relayed.
const maxStreamRetries = 2

// Turn is one conversational exchange as sent to the completion provider.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Streamer is the completion gateway contract. The Anthropic-backed
// LLMService implements it in production; tests inject a fake.
type Streamer interface {
	Stream(ctx context.Context, turns []Turn, systemPrompt string, temperature float64, maxTokens int64, emit func(chunk string) error) error
}

type LLMService struct {
	client anthropic.Client
	model  string
}

func NewLLMService() *LLMService {
	client := anthropic.NewClient(option.WithAPIKey(config.AppConfig.AnthropicAPIKey))
	return &LLMService{
		client: client,
		model:  config.AppConfig.ChatModel,
	}
}

// Stream forwards the conversation to the provider and relays each text
// delta through emit as it arrives. Failures before the first relayed
// chunk are retried with exponential backoff; once output has reached the
// caller the request is no longer idempotent and errors surface directly.
func (s *LLMService) Stream(ctx context.Context, turns []Turn, systemPrompt string, temperature float64, maxTokens int64, emit func(chunk string) error) error {
	if len(turns) == 0 {
		return fmt.Errorf("no messages to complete")
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == store.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(s.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		Messages:    messages,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}

	emitted := false
	attempt := func() error {
		err := s.streamOnce(ctx, params, &emitted, emit)
		if err != nil && emitted {
			return backoff.Permanent(err)
		}
		if err != nil {
			logrus.WithError(err).Warn("Completion stream failed before first chunk, will retry")
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxStreamRetries), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return fmt.Errorf("upstream completion failed: %w", err)
	}
	return nil
}

func (s *LLMService) streamOnce(ctx context.Context, params anthropic.MessageNewParams, emitted *bool, emit func(chunk string) error) error {
	stream := s.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				*emitted = true
				if err := emit(delta.Text); err != nil {
					// The caller stopped pulling (client disconnect);
					// release the upstream connection.
					return backoff.Permanent(fmt.Errorf("failed to relay chunk: %w", err))
				}
			}
		}
	}

	return stream.Err()
}
