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

// APIKeyStore handles per-user provider API keys.
type APIKeyStore struct {
	db *sql.DB
}

// NewAPIKeyStore creates a new APIKeyStore with the given database connection.
func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

const apiKeyColumns = `id, user_id, service, api_key, created_at, updated_at`

func scanAPIKey(scanner interface{ Scan(...any) error }) (*models.APIKey, error) {
	k := &models.APIKey{}
	if err := scanner.Scan(&k.ID, &k.UserID, &k.Service, &k.Key, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	return k, nil
}

// List returns every key the user has stored, ordered by service.
func (s *APIKeyStore) List(userID uuid.UUID) ([]models.APIKey, error) {
	rows, err := s.db.Query(`
		SELECT `+apiKeyColumns+`
		FROM user_api_keys WHERE user_id = $1
		ORDER BY service
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []models.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

// Find returns the user's key for service. Returns nil if not found.
func (s *APIKeyStore) Find(userID uuid.UUID, service models.Service) (*models.APIKey, error) {
	k, err := scanAPIKey(s.db.QueryRow(`
		SELECT `+apiKeyColumns+`
		FROM user_api_keys WHERE user_id = $1 AND service = $2
	`, userID, service))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return k, nil
}

// Map returns the user's keys indexed by service.
func (s *APIKeyStore) Map(userID uuid.UUID) (map[models.Service]string, error) {
	keys, err := s.List(userID)
	if err != nil {
		return nil, err
	}
	out := make(map[models.Service]string, len(keys))
	for _, k := range keys {
		out[k.Service] = k.Key
	}
	return out, nil
}

// Upsert stores or replaces the user's key for a service.
func (s *APIKeyStore) Upsert(userID uuid.UUID, service models.Service, key string) (*models.APIKey, error) {
	k, err := scanAPIKey(s.db.QueryRow(`
		INSERT INTO user_api_keys (user_id, service, api_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, service)
		DO UPDATE SET api_key = EXCLUDED.api_key, updated_at = NOW()
		RETURNING `+apiKeyColumns,
		userID, service, key,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert api key: %w", err)
	}
	return k, nil
}

// Delete removes the user's key for a service. It reports whether a key existed.
func (s *APIKeyStore) Delete(userID uuid.UUID, service models.Service) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM user_api_keys WHERE user_id = $1 AND service = $2`, userID, service)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
