// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderKind names the backend that serves a generation request.
type ProviderKind string

const (
	ProviderGemini   ProviderKind = "gemini"
	ProviderDeepSeek ProviderKind = "deepseek"
	ProviderDify     ProviderKind = "dify"
)

// Selection is a resolved provider choice: which backend, which model.
type Selection struct {
	Provider ProviderKind `json:"provider"`
	Model    string       `json:"model"`
}

// AppConfig is the per-user generation configuration as persisted.
// TextProvider and ImageProvider may be empty on records written before
// they existed; the model name then decides.
type AppConfig struct {
	UserID        uuid.UUID    `json:"-"`
	TextModel     string       `json:"textModel"`
	TextProvider  ProviderKind `json:"textProvider,omitempty"`
	ImageModel    string       `json:"imageModel"`
	ImageProvider ProviderKind `json:"imageProvider,omitempty"`
	BaseURL       string       `json:"baseUrl,omitempty"`
	APIKey        string       `json:"apiKey,omitempty"`
	DifyAPIKey    string       `json:"difyApiKey,omitempty"`
	DifyBaseURL   string       `json:"difyBaseUrl,omitempty"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
