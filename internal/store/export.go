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

// ExportStore records archives published to object storage.
type ExportStore struct {
	db *sql.DB
}

// NewExportStore creates a new ExportStore with the given database connection.
func NewExportStore(db *sql.DB) *ExportStore {
	return &ExportStore{db: db}
}

const exportColumns = `id, user_id, file_name, content_type, size_bytes, entries, bucket, s3_key, created_at`

func scanExport(scanner interface{ Scan(...any) error }) (*models.Export, error) {
	var e models.Export
	err := scanner.Scan(
		&e.ID, &e.UserID, &e.FileName, &e.ContentType, &e.SizeBytes,
		&e.Entries, &e.Bucket, &e.S3Key, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an export record and returns it with the generated ID.
func (s *ExportStore) Create(e *models.Export) (*models.Export, error) {
	out, err := scanExport(s.db.QueryRow(`
		INSERT INTO exports (user_id, file_name, content_type, size_bytes, entries, bucket, s3_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+exportColumns,
		e.UserID, e.FileName, e.ContentType, e.SizeBytes, e.Entries, e.Bucket, e.S3Key,
	))
	if err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}
	return out, nil
}

// List returns the user's published exports, newest first.
func (s *ExportStore) List(userID uuid.UUID, limit, offset int) ([]models.Export, error) {
	rows, err := s.db.Query(`
		SELECT `+exportColumns+`
		FROM exports WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var items []models.Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		items = append(items, *e)
	}
	return items, rows.Err()
}

// FindByID returns one of the user's exports. Returns nil if not found.
func (s *ExportStore) FindByID(userID, id uuid.UUID) (*models.Export, error) {
	e, err := scanExport(s.db.QueryRow(`
		SELECT `+exportColumns+` FROM exports WHERE id = $1 AND user_id = $2
	`, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find export: %w", err)
	}
	return e, nil
}

// Delete removes an export record and returns it so the caller can remove
// the stored object.
func (s *ExportStore) Delete(userID, id uuid.UUID) (*models.Export, error) {
	e, err := scanExport(s.db.QueryRow(`
		DELETE FROM exports WHERE id = $1 AND user_id = $2
		RETURNING `+exportColumns, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete export: %w", err)
	}
	return e, nil
}
