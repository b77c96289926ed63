// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"xhsstudio/internal/models"
)

// Paging defaults for list endpoints.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Generations groups the saved-generation handlers.
type Generations struct {
	store GenerationRepo
}

// NewGenerations creates a new Generations handler group.
func NewGenerations(store GenerationRepo) *Generations {
	return &Generations{store: store}
}

type generationRequest struct {
	Type     models.GenerationType `json:"type"`
	Title    string                `json:"title"`
	Content  json.RawMessage       `json:"content"`
	Metadata json.RawMessage       `json:"metadata"`
}

// List returns the user's generations, newest first. Supports ?type=,
// ?limit= and ?offset=.
func (g *Generations) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	typ := models.GenerationType(r.URL.Query().Get("type"))
	if typ != "" && !typ.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown generation type %q", typ))
		return
	}
	limit, offset := paging(r)

	items, err := g.store.List(uid, typ, limit, offset)
	if err != nil {
		slog.Error("list generations failed", "error", err, "user_id", uid)
		writeError(w, http.StatusInternalServerError, "Failed to get generations")
		return
	}
	if items == nil {
		items = []models.Generation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"generations": items})
}

// Get returns one generation.
func (g *Generations) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	item, err := g.store.FindByID(uid, id)
	if err != nil {
		slog.Error("get generation failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to get generation")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Generation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"generation": item})
}

// Create saves a generation result. content may be a JSON string or any
// JSON value; non-string values are stored as their JSON text.
func (g *Generations) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req generationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content := contentText(req.Content)
	if msg := validateGeneration(string(req.Type), req.Title, content); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown generation type %q", req.Type))
		return
	}

	item, err := g.store.Create(&models.Generation{
		UserID:   uid,
		Type:     req.Type,
		Title:    req.Title,
		Content:  content,
		Metadata: req.Metadata,
	})
	if err != nil {
		slog.Error("save generation failed", "error", err, "user_id", uid)
		writeError(w, http.StatusInternalServerError, "Failed to save generation")
		return
	}

	slog.Info("generation saved", "id", item.ID, "type", item.Type, "user_id", uid)
	writeJSON(w, http.StatusCreated, map[string]any{"generation": item})
}

// Delete removes one generation.
func (g *Generations) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	deleted, err := g.store.Delete(uid, id)
	if err != nil {
		slog.Error("delete generation failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete generation")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Generation not found")
		return
	}

	slog.Info("generation deleted", "id", id, "user_id", uid)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Generation deleted successfully"})
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// paging reads ?limit= and ?offset=, clamping to sane values.
func paging(r *http.Request) (limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
