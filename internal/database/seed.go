// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// DemoEmail and DemoPassword are the development account created by Seed.
const (
	DemoEmail    = "demo@xhsstudio.local"
	DemoPassword = "demo1234"
)

// Seed populates the database with initial development data. It creates a
// demo user if no users exist.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	var userID string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id
	`, DemoEmail, string(hash), "Demo").Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert demo user: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO app_configs (user_id, text_model, text_provider, image_model, image_provider)
		VALUES ($1, 'gemini-3-flash-preview', 'gemini', 'gemini-2.5-flash-image', 'gemini')
	`, userID)
	if err != nil {
		return fmt.Errorf("seed insert demo config: %w", err)
	}

	slog.Info("database seeded with demo user", "email", DemoEmail, "password", DemoPassword)
	return nil
}
