// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"strings"

	"xhsstudio/internal/ai"
	"xhsstudio/internal/models"
)

// legacyDeepSeekPrefix marks DeepSeek models in records saved before the
// provider was stored explicitly.
const legacyDeepSeekPrefix = "deepseek-"

// Selection turns a stored model name and optional provider into an
// explicit provider choice. An empty model falls back to fallback.
func Selection(model string, provider models.ProviderKind, fallback string) models.Selection {
	model = strings.TrimSpace(model)
	if model == "" {
		model = fallback
	}

	switch provider {
	case models.ProviderGemini, models.ProviderDeepSeek, models.ProviderDify:
		return models.Selection{Provider: provider, Model: model}
	}
	if strings.HasPrefix(model, legacyDeepSeekPrefix) {
		return models.Selection{Provider: models.ProviderDeepSeek, Model: model}
	}
	return models.Selection{Provider: models.ProviderGemini, Model: model}
}

// Resolve builds the generation request for one user. Precedence for each
// provider key is: the user's stored key for that service, then the key
// saved in their app config (text provider only), then the server default.
// A base URL from the app config is only used together with a user key.
// app and keys may be nil.
func (c *Config) Resolve(app *models.AppConfig, keys map[models.Service]string) ai.Request {
	if app == nil {
		app = &models.AppConfig{}
	}

	req := ai.Request{
		Text:  Selection(app.TextModel, app.TextProvider, c.TextModel),
		Image: Selection(app.ImageModel, app.ImageProvider, c.ImageModel),
		Credentials: ai.Credentials{
			Gemini:   ai.ProviderConfig{APIKey: c.GeminiKey, BaseURL: c.GeminiBaseURL},
			DeepSeek: ai.ProviderConfig{APIKey: c.DeepSeekKey, BaseURL: c.DeepSeekBaseURL},
			Dify:     ai.ProviderConfig{APIKey: c.DifyKey, BaseURL: c.DifyBaseURL},
		},
	}

	textOnly := func(p models.ProviderKind, v string) string {
		if req.Text.Provider == p {
			return v
		}
		return ""
	}
	creds := &req.Credentials
	userCredentials(&creds.Gemini, keys[models.ServiceGemini],
		textOnly(models.ProviderGemini, app.APIKey), textOnly(models.ProviderGemini, app.BaseURL))
	userCredentials(&creds.DeepSeek, keys[models.ServiceDeepSeek],
		textOnly(models.ProviderDeepSeek, app.APIKey), textOnly(models.ProviderDeepSeek, app.BaseURL))
	userCredentials(&creds.Dify, keys[models.ServiceDify], app.DifyAPIKey, app.DifyBaseURL)
	return req
}

// userCredentials overrides target with a user-supplied key. The user's
// base URL is applied only then, so the server key is never sent to a
// host the user picked.
func userCredentials(target *ai.ProviderConfig, stored, appKey, baseURL string) {
	key := stored
	if key == "" {
		key = appKey
	}
	if key == "" {
		return
	}
	target.APIKey = key
	if baseURL != "" {
		target.BaseURL = baseURL
	}
}

// Workflow returns the workflow polling settings.
func (c *Config) Workflow() ai.WorkflowConfig {
	return ai.WorkflowConfig{
		MaxPolls:     c.WorkflowMaxPolls,
		PollInterval: c.WorkflowPollInterval,
	}
}
