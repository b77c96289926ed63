// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Service names an external generation backend a user can hold a key for.
type Service string

const (
	ServiceGemini   Service = "gemini"
	ServiceDeepSeek Service = "deepseek"
	ServiceDify     Service = "dify"
)

// Valid reports whether s is a known service.
func (s Service) Valid() bool {
	switch s {
	case ServiceGemini, ServiceDeepSeek, ServiceDify:
		return true
	}
	return false
}

// APIKey is a per-user credential for one service.
type APIKey struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Service   Service   `json:"service"`
	Key       string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Masked returns the key with everything but the last four characters hidden.
func (k *APIKey) Masked() string {
	if len(k.Key) <= 4 {
		return "****"
	}
	return "****" + k.Key[len(k.Key)-4:]
}
