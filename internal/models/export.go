// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Export is an archive or image published to object storage. Metadata is
// stored in PostgreSQL; the bytes live in the bucket.
type Export struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Entries     int       `json:"entries"`
	Bucket      string    `json:"bucket"`
	S3Key       string    `json:"s3_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// HumanSize returns a human-readable file size string.
func (e *Export) HumanSize() string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case e.SizeBytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(e.SizeBytes)/float64(mb))
	case e.SizeBytes >= kb:
		return fmt.Sprintf("%.0f KB", float64(e.SizeBytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", e.SizeBytes)
	}
}
