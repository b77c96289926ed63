// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"xhsstudio/internal/models"
	"xhsstudio/internal/store"
)

// TokenIssuer signs bearer tokens. *auth.Issuer satisfies it.
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string) (string, error)
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users  UserRepo
	tokens TokenIssuer
}

// NewAuth creates a new Auth handler group.
func NewAuth(users UserRepo, tokens TokenIssuer) *Auth {
	return &Auth{users: users, tokens: tokens}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// userView is the public part of a user record.
type userView struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

func viewUser(u *models.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.DisplayName()}
}

type sessionResponse struct {
	User  userView `json:"user"`
	Token string   `json:"token"`
}

// Register creates an account and signs the user in.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateRegistration(req.Email, req.Password, req.Name); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, err := a.users.Create(req.Email, req.Password, req.Name)
	if errors.Is(err, store.ErrEmailTaken) {
		writeError(w, http.StatusBadRequest, "User with this email already exists")
		return
	}
	if err != nil {
		slog.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	a.respondSession(w, http.StatusCreated, user)
	slog.Info("user registered", "user_id", user.ID)
}

// Login checks the credentials and returns a bearer token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateCredentials(req.Email, req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, err := a.users.FindByEmail(req.Email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	// Same answer for unknown email and wrong password.
	if user == nil || !a.users.CheckPassword(user, req.Password) {
		slog.Warn("failed login attempt", "email", req.Email)
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	a.respondSession(w, http.StatusOK, user)
}

// Verify returns the user behind a valid bearer token.
func (a *Auth) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := a.users.FindByID(id)
	if err != nil {
		slog.Error("verify lookup failed", "error", err, "user_id", id)
		writeError(w, http.StatusInternalServerError, "Verification failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": viewUser(user)})
}

func (a *Auth) respondSession(w http.ResponseWriter, status int, user *models.User) {
	token, err := a.tokens.Issue(user.ID, user.Email)
	if err != nil {
		slog.Error("issue token failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, status, sessionResponse{User: viewUser(user), Token: token})
}
