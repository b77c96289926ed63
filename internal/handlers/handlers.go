// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON API handlers for the studio. Handlers
// are grouped by concern (auth, settings, generations, generate, export)
// and receive their dependencies through the handler struct.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"xhsstudio/internal/ai"
	"xhsstudio/internal/middleware"
	"xhsstudio/internal/models"
	"xhsstudio/internal/render"
	"xhsstudio/internal/schema"
)

// maxBodyBytes bounds request bodies. Slide exports carry base64 images.
const maxBodyBytes = 32 << 20

// UserRepo is the subset of *store.UserStore the handlers use.
type UserRepo interface {
	FindByEmail(email string) (*models.User, error)
	FindByID(id uuid.UUID) (*models.User, error)
	Create(email, password, name string) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
}

// AppConfigRepo is the subset of *store.AppConfigStore the handlers use.
type AppConfigRepo interface {
	Get(userID uuid.UUID) (*models.AppConfig, error)
	Save(c *models.AppConfig) (*models.AppConfig, error)
}

// APIKeyRepo is the subset of *store.APIKeyStore the handlers use.
type APIKeyRepo interface {
	List(userID uuid.UUID) ([]models.APIKey, error)
	Map(userID uuid.UUID) (map[models.Service]string, error)
	Upsert(userID uuid.UUID, service models.Service, key string) (*models.APIKey, error)
	Delete(userID uuid.UUID, service models.Service) (bool, error)
}

// GenerationRepo is the subset of *store.GenerationStore the handlers use.
type GenerationRepo interface {
	Create(g *models.Generation) (*models.Generation, error)
	FindByID(userID, id uuid.UUID) (*models.Generation, error)
	List(userID uuid.UUID, typ models.GenerationType, limit, offset int) ([]models.Generation, error)
	Delete(userID, id uuid.UUID) (bool, error)
}

// ExportRepo is the subset of *store.ExportStore the handlers use.
type ExportRepo interface {
	Create(e *models.Export) (*models.Export, error)
	List(userID uuid.UUID, limit, offset int) ([]models.Export, error)
	Delete(userID, id uuid.UUID) (*models.Export, error)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes {"message": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

// writeFailure maps a generation or export error to a status code, logs it
// and writes {"message": msg, "error": detail}. Upstream failures are 502,
// a workflow that never finished is 504, and missing credentials are the
// caller's to fix (400).
func writeFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := errorStatus(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, msg, "path", r.URL.Path, "status", status, "error", err)

	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = ""
	}
	writeJSON(w, status, errorBody{Message: msg, Error: detail})
}

// errorStatus picks the HTTP status for err.
func errorStatus(err error) int {
	var (
		schemaErr   *schema.SchemaError
		protoErr    *ai.ProtocolError
		workflowErr *ai.WorkflowError
		transErr    *ai.TransportError
		stageErr    *render.StageError
	)
	switch {
	case errors.Is(err, ai.ErrMissingCredentials), errors.Is(err, ai.ErrImageUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrWorkflowTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &schemaErr), errors.As(err, &protoErr), errors.As(err, &workflowErr),
		errors.Is(err, ai.ErrNoImage):
		return http.StatusBadGateway
	case errors.As(err, &transErr):
		if transErr.Status == http.StatusTooManyRequests {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case errors.As(err, &stageErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a JSON request body into v. Unknown fields are ignored,
// trailing data is not.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// userID returns the authenticated user, writing 401 if there is none.
func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id := middleware.UserIDFromCtx(r.Context())
	if id == uuid.Nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID parses a UUID URL parameter, writing 400 if it is malformed.
func pathUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
