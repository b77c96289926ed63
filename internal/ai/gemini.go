// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/vincent-petithory/dataurl"
	"google.golang.org/genai"

	"xhsstudio/internal/schema"
)

// geminiProvider implements Provider and ImageGenerator with the Google
// GenAI SDK against the Gemini API backend.
type geminiProvider struct {
	client *genai.Client
	model  string
}

// newGemini creates a Gemini provider for one request.
func newGemini(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &geminiProvider{client: client, model: cfg.Model}, nil
}

func (p *geminiProvider) Name() string { return "gemini" }

// GenerateJSON asks for an application/json response constrained by the
// schema registered for the prompt's kind.
func (p *geminiProvider) GenerateJSON(ctx context.Context, pr Prompt) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(pr.User)}
	for _, img := range pr.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		})
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if s := schema.For(pr.Kind); s != nil {
		cfg.ResponseSchema = toGenaiSchema(s)
	}
	if pr.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(pr.System, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", wrapGeminiError(err)
	}
	return resp.Text(), nil
}

// GenerateImage returns the first inline image of the response as a data URI.
func (p *geminiProvider) GenerateImage(ctx context.Context, prompt, aspectRatio string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: aspectRatio},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", wrapGeminiError(err)
	}

	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return dataurl.New(part.InlineData.Data, mime).String(), nil
		}
	}
	return "", ErrNoImage
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{Provider: "gemini", Status: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("gemini: %w", err)
}

// toGenaiSchema converts the validator's JSON Schema into the subset the
// Gemini response schema understands.
func toGenaiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{Required: s.Required}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}
