// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"xhsstudio/internal/models"
)

// AppConfigStore persists each user's generation settings.
type AppConfigStore struct {
	db *sql.DB
}

// NewAppConfigStore creates a new AppConfigStore with the given database connection.
func NewAppConfigStore(db *sql.DB) *AppConfigStore {
	return &AppConfigStore{db: db}
}

const appConfigColumns = `user_id, text_model, text_provider, image_model, image_provider,
	base_url, api_key, dify_api_key, dify_base_url, updated_at`

func scanAppConfig(scanner interface{ Scan(...any) error }) (*models.AppConfig, error) {
	c := &models.AppConfig{}
	err := scanner.Scan(
		&c.UserID, &c.TextModel, &c.TextProvider, &c.ImageModel, &c.ImageProvider,
		&c.BaseURL, &c.APIKey, &c.DifyAPIKey, &c.DifyBaseURL, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the user's settings. Returns nil if none are saved.
func (s *AppConfigStore) Get(userID uuid.UUID) (*models.AppConfig, error) {
	c, err := scanAppConfig(s.db.QueryRow(`SELECT `+appConfigColumns+` FROM app_configs WHERE user_id = $1`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get app config: %w", err)
	}
	return c, nil
}

// Save writes the user's settings, replacing any previous record.
func (s *AppConfigStore) Save(c *models.AppConfig) (*models.AppConfig, error) {
	saved, err := scanAppConfig(s.db.QueryRow(`
		INSERT INTO app_configs (user_id, text_model, text_provider, image_model, image_provider,
			base_url, api_key, dify_api_key, dify_base_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			text_model = EXCLUDED.text_model,
			text_provider = EXCLUDED.text_provider,
			image_model = EXCLUDED.image_model,
			image_provider = EXCLUDED.image_provider,
			base_url = EXCLUDED.base_url,
			api_key = EXCLUDED.api_key,
			dify_api_key = EXCLUDED.dify_api_key,
			dify_base_url = EXCLUDED.dify_base_url,
			updated_at = NOW()
		RETURNING `+appConfigColumns,
		c.UserID, c.TextModel, c.TextProvider, c.ImageModel, c.ImageProvider,
		c.BaseURL, c.APIKey, c.DifyAPIKey, c.DifyBaseURL,
	))
	if err != nil {
		return nil, fmt.Errorf("save app config: %w", err)
	}
	return saved, nil
}
