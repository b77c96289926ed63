// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai talks to the generation backends: Gemini for structured text
// and images, DeepSeek for structured text over an OpenAI-compatible API,
// and a Dify workflow for long-form WeChat articles. A Registry holds one
// factory per provider kind; every request builds fresh providers from its
// own resolved configuration, so nothing is shared between callers.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"xhsstudio/internal/media"
	"xhsstudio/internal/models"
	"xhsstudio/internal/schema"
)

// ImageAspectRatio is the aspect-ratio hint sent with every image request.
const ImageAspectRatio = "3:4"

// Prompt is a role-tagged structured-output request.
type Prompt struct {
	System string
	User   string
	Images []media.Inline
	Kind   schema.Kind
}

// Provider produces JSON text for a Prompt.
type Provider interface {
	// GenerateJSON returns the model's raw JSON response. It does not
	// validate the response.
	GenerateJSON(ctx context.Context, p Prompt) (string, error)

	// Name returns the provider identifier (e.g., "gemini", "deepseek").
	Name() string
}

// ImageGenerator is an optional interface for providers that can produce
// images. Check with a type assertion.
type ImageGenerator interface {
	// GenerateImage returns a data URI for the first image the model emits.
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (string, error)
}

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// Factory builds a provider for one request.
type Factory func(ctx context.Context, cfg ProviderConfig) (Provider, error)

// Registry maps provider kinds to factories. It holds no clients.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[models.ProviderKind]Factory
	workflow  WorkflowConfig
}

// NewRegistry creates a registry with the Gemini and DeepSeek factories.
func NewRegistry(workflow WorkflowConfig) *Registry {
	return &Registry{
		factories: map[models.ProviderKind]Factory{
			models.ProviderGemini:   newGemini,
			models.ProviderDeepSeek: newDeepSeek,
		},
		workflow: workflow,
	}
}

// Register adds or replaces a factory. Tests use it to inject fakes.
func (r *Registry) Register(kind models.ProviderKind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// HasProvider reports whether a factory is registered for kind.
func (r *Registry) HasProvider(kind models.ProviderKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// build creates a provider for sel using the credentials in creds.
func (r *Registry) build(ctx context.Context, sel models.Selection, creds Credentials) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[sel.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ai: no provider registered for %q", sel.Provider)
	}

	cfg := creds.For(sel.Provider)
	cfg.Model = sel.Model
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: %w for %s", ErrMissingCredentials, sel.Provider)
	}
	return f(ctx, cfg)
}

// Credentials are the keys and endpoints resolved for one request.
type Credentials struct {
	Gemini     ProviderConfig
	DeepSeek   ProviderConfig
	Dify       ProviderConfig
	HTTPClient *http.Client
}

// For returns the configuration of one provider kind.
func (c Credentials) For(kind models.ProviderKind) ProviderConfig {
	var cfg ProviderConfig
	switch kind {
	case models.ProviderGemini:
		cfg = c.Gemini
	case models.ProviderDeepSeek:
		cfg = c.DeepSeek
	case models.ProviderDify:
		cfg = c.Dify
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = c.HTTPClient
	}
	return cfg
}

// Request is one caller's resolved generation configuration.
type Request struct {
	Text        models.Selection
	Image       models.Selection
	Credentials Credentials
}

// For scopes the registry to one request. The returned Client is cheap and
// should not outlive the request.
func (r *Registry) For(req Request) *Client {
	return &Client{registry: r, req: req}
}
