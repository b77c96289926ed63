// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"xhsstudio/internal/models"
)

// maskPrefix marks a secret the client got back masked. Saving it again
// keeps the stored value.
const maskPrefix = "****"

// Settings groups the per-user configuration and API key handlers.
type Settings struct {
	configs      AppConfigRepo
	keys         APIKeyRepo
	defaultText  string
	defaultImage string
}

// NewSettings creates a new Settings handler group. The default models are
// reported for users who have not saved a configuration yet.
func NewSettings(configs AppConfigRepo, keys APIKeyRepo, defaultText, defaultImage string) *Settings {
	return &Settings{configs: configs, keys: keys, defaultText: defaultText, defaultImage: defaultImage}
}

// GetConfig returns the user's generation configuration with secrets masked.
func (s *Settings) GetConfig(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	cfg, err := s.load(uid)
	if err != nil {
		slog.Error("load app config failed", "error", err, "user_id", uid)
		writeError(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}
	writeJSON(w, http.StatusOK, masked(cfg))
}

// SaveConfig stores the user's generation configuration.
func (s *Settings) SaveConfig(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var in models.AppConfig
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateAppConfig(&in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	current, err := s.load(uid)
	if err != nil {
		slog.Error("load app config failed", "error", err, "user_id", uid)
		writeError(w, http.StatusInternalServerError, "Failed to save configuration")
		return
	}
	if strings.HasPrefix(in.APIKey, maskPrefix) {
		in.APIKey = current.APIKey
	}
	if strings.HasPrefix(in.DifyAPIKey, maskPrefix) {
		in.DifyAPIKey = current.DifyAPIKey
	}
	in.UserID = uid

	saved, err := s.configs.Save(&in)
	if err != nil {
		slog.Error("save app config failed", "error", err, "user_id", uid)
		writeError(w, http.StatusInternalServerError, "Failed to save configuration")
		return
	}

	slog.Info("app config saved", "user_id", uid, "text_model", saved.TextModel, "image_model", saved.ImageModel)
	writeJSON(w, http.StatusOK, masked(saved))
}

func (s *Settings) load(uid uuid.UUID) (*models.AppConfig, error) {
	cfg, err := s.configs.Get(uid)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &models.AppConfig{UserID: uid, TextModel: s.defaultText, ImageModel: s.defaultImage}
	}
	return cfg, nil
}

func masked(c *models.AppConfig) *models.AppConfig {
	out := *c
	out.APIKey = maskSecret(c.APIKey)
	out.DifyAPIKey = maskSecret(c.DifyAPIKey)
	return &out
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	k := models.APIKey{Key: s}
	return k.Masked()
}

func validateAppConfig(c *models.AppConfig) string {
	for _, p := range []models.ProviderKind{c.TextProvider, c.ImageProvider} {
		switch p {
		case "", models.ProviderGemini, models.ProviderDeepSeek:
		default:
			return fmt.Sprintf("Unknown provider %q", p)
		}
	}
	for _, u := range []string{c.BaseURL, c.DifyBaseURL} {
		if u != "" && !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
			return "Base URLs must start with http:// or https://"
		}
	}
	if len(c.APIKey) > maxAPIKeyLen || len(c.DifyAPIKey) > maxAPIKeyLen {
		return "API key is too long"
	}
	return ""
}

// apiKeyView is a stored key as the client sees it.
type apiKeyView struct {
	ID      uuid.UUID      `json:"id"`
	Service models.Service `json:"service"`
	APIKey  string         `json:"api_key"`
}

func viewKey(k *models.APIKey) apiKeyView {
	return apiKeyView{ID: k.ID, Service: k.Service, APIKey: k.Masked()}
}

type apiKeyRequest struct {
	Service models.Service `json:"service"`
	APIKey  string         `json:"api_key"`
}

// ListKeys returns the user's stored keys, masked.
func (s *Settings) ListKeys(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	keys, err := s.keys.List(uid)
	if err != nil {
		slog.Error("list api keys failed", "error", err, "user_id", uid)
		writeError(w, http.StatusInternalServerError, "Failed to get API keys")
		return
	}

	views := make([]apiKeyView, len(keys))
	for i := range keys {
		views[i] = viewKey(&keys[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"apiKeys": views})
}

// CreateKey stores a key from {"service", "api_key"}, replacing any key the
// user already has for that service.
func (s *Settings) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.saveKey(w, r, req.Service, req.APIKey)
}

// PutKey stores the key for the service named in the URL.
func (s *Settings) PutKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.saveKey(w, r, models.Service(chi.URLParam(r, "service")), req.APIKey)
}

func (s *Settings) saveKey(w http.ResponseWriter, r *http.Request, service models.Service, key string) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	key = strings.TrimSpace(key)
	if service == "" || key == "" {
		writeError(w, http.StatusBadRequest, "Service and API key are required")
		return
	}
	if !service.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown service %q", service))
		return
	}
	if len(key) > maxAPIKeyLen {
		writeError(w, http.StatusBadRequest, "API key is too long")
		return
	}

	saved, err := s.keys.Upsert(uid, service, key)
	if err != nil {
		slog.Error("save api key failed", "error", err, "user_id", uid, "service", service)
		writeError(w, http.StatusInternalServerError, "Failed to save API key")
		return
	}

	slog.Info("api key saved", "user_id", uid, "service", service)
	writeJSON(w, http.StatusOK, map[string]any{"apiKey": viewKey(saved)})
}

// DeleteKey removes the key for the service named in the URL.
func (s *Settings) DeleteKey(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	service := models.Service(chi.URLParam(r, "service"))
	deleted, err := s.keys.Delete(uid, service)
	if err != nil {
		slog.Error("delete api key failed", "error", err, "user_id", uid, "service", service)
		writeError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, fmt.Sprintf("API key for %s not found", service))
		return
	}

	slog.Info("api key deleted", "user_id", uid, "service", service)
	writeJSON(w, http.StatusOK, map[string]string{"message": "API key deleted successfully"})
}
