// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultDeepSeekBaseURL is the OpenAI-compatible DeepSeek endpoint.
const DefaultDeepSeekBaseURL = "https://api.deepseek.com"

// deepSeekProvider implements Provider over DeepSeek's OpenAI-compatible
// chat completions API in JSON-object mode. It has no image support.
type deepSeekProvider struct {
	client openai.Client
	model  string
}

// newDeepSeek creates a DeepSeek provider for one request.
func newDeepSeek(_ context.Context, cfg ProviderConfig) (Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDeepSeekBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &deepSeekProvider{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

func (p *deepSeekProvider) Name() string { return "deepseek" }

// GenerateJSON sends the system and user messages and returns the first
// choice's content. Reference images are not sent; the API is text-only.
func (p *deepSeekProvider) GenerateJSON(ctx context.Context, pr Prompt) (string, error) {
	if len(pr.Images) > 0 {
		slog.Debug("deepseek: reference images not sent", "count", len(pr.Images))
	}

	msgs := []openai.ChatCompletionMessageParamUnion{}
	if pr.System != "" {
		msgs = append(msgs, openai.SystemMessage(pr.System))
	}
	msgs = append(msgs, openai.UserMessage(pr.User))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: msgs,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &TransportError{Provider: "deepseek", Status: apiErr.StatusCode, Body: apiErr.Message}
		}
		return "", fmt.Errorf("deepseek: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
