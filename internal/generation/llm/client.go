// Package llm calls the hosted text-generation model.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dorkforge/internal/generation/prompt"
	"dorkforge/internal/platform/config"
)

const tracerName = "dorkforge/internal/generation/llm"

// Client sends a single message per generation. SDK retries are disabled: a failed call
// surfaces to the caller as-is.
type Client struct {
	messages  anthropic.MessageService
	model     string
	maxTokens int64
	tracer    trace.Tracer
}

// New builds a client from config. The API key is required.
func New(cfg config.AnthropicConfig, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = config.DefaultMaxTokens
	}

	client := anthropic.NewClient(reqOpts...)
	return &Client{
		messages:  client.Messages,
		model:     model,
		maxTokens: maxTokens,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// Generate returns the concatenated text blocks of the model reply.
func (c *Client) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int64("llm.max_tokens", c.maxTokens),
	))
	defer span.End()

	msg, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: p.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", err
	}

	span.SetAttributes(
		attribute.Int64("llm.input_tokens", msg.Usage.InputTokens),
		attribute.Int64("llm.output_tokens", msg.Usage.OutputTokens),
		attribute.String("llm.stop_reason", string(msg.StopReason)),
	)

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
