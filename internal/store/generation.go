// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"xhsstudio/internal/models"
)

// GenerationStore handles saved generation results.
type GenerationStore struct {
	db *sql.DB
}

// NewGenerationStore creates a new GenerationStore with the given database connection.
func NewGenerationStore(db *sql.DB) *GenerationStore {
	return &GenerationStore{db: db}
}

const generationColumns = `id, user_id, type, title, content, metadata, created_at, updated_at`

func scanGeneration(scanner interface{ Scan(...any) error }) (*models.Generation, error) {
	g := &models.Generation{}
	var meta []byte
	err := scanner.Scan(&g.ID, &g.UserID, &g.Type, &g.Title, &g.Content, &meta, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		g.Metadata = json.RawMessage(meta)
	}
	return g, nil
}

// nullJSON maps empty metadata to SQL NULL.
func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// Create inserts a generation and returns it with the generated ID.
func (s *GenerationStore) Create(g *models.Generation) (*models.Generation, error) {
	out, err := scanGeneration(s.db.QueryRow(`
		INSERT INTO generations (user_id, type, title, content, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+generationColumns,
		g.UserID, g.Type, g.Title, g.Content, nullJSON(g.Metadata),
	))
	if err != nil {
		return nil, fmt.Errorf("create generation: %w", err)
	}
	return out, nil
}

// FindByID returns one of the user's generations. Returns nil if not found
// or owned by someone else.
func (s *GenerationStore) FindByID(userID, id uuid.UUID) (*models.Generation, error) {
	g, err := scanGeneration(s.db.QueryRow(`
		SELECT `+generationColumns+`
		FROM generations WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find generation: %w", err)
	}
	return g, nil
}

// List returns the user's generations, newest first, with pagination.
// An empty type lists every type.
func (s *GenerationStore) List(userID uuid.UUID, typ models.GenerationType, limit, offset int) ([]models.Generation, error) {
	rows, err := s.db.Query(`
		SELECT `+generationColumns+`
		FROM generations
		WHERE user_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, string(typ), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var items []models.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		items = append(items, *g)
	}
	return items, rows.Err()
}

// Delete removes one of the user's generations. It reports whether a row
// was deleted.
func (s *GenerationStore) Delete(userID, id uuid.UUID) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM generations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete generation: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
