// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GenerationType classifies a stored generation.
type GenerationType string

const (
	GenerationSlides        GenerationType = "slides"
	GenerationProductCopy   GenerationType = "product-copy"
	GenerationArticle       GenerationType = "article"
	GenerationWechatArticle GenerationType = "wechat-article"
	GenerationImage         GenerationType = "image"
)

// Valid reports whether t is a known generation type.
func (t GenerationType) Valid() bool {
	switch t {
	case GenerationSlides, GenerationProductCopy, GenerationArticle, GenerationWechatArticle, GenerationImage:
		return true
	}
	return false
}

// Generation is a saved result owned by a user.
type Generation struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      GenerationType  `json:"type"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductCopy is a product recommendation post.
type ProductCopy struct {
	ProductName     string   `json:"productName"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	SellingPoints   []string `json:"sellingPoints"`
	Tags            []string `json:"tags"`
	SuggestedImages []string `json:"suggestedImages"`
}

// Article is a long-form article with its rendered HTML.
type Article struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	HTML    string `json:"html"`
}

// WechatArticle is the result of the article publishing workflow.
type WechatArticle struct {
	Title       string   `json:"title"`
	CoverImage  string   `json:"coverImage"`
	HTMLContent string   `json:"htmlContent"`
	Tags        []string `json:"tags,omitempty"`
}
