// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Validation limits for request fields.
const (
	minPasswordLen  = 6
	maxPasswordLen  = 72 // bcrypt ignores anything longer
	maxNameLen      = 100
	maxTitleLen     = 300
	maxContentLen   = 200_000
	maxPromptLen    = 20_000
	maxAPIKeyLen    = 500
	maxSlides       = 30
	maxExportImages = 50
	maxImageCount   = 4
)

// validateCredentials checks register/login inputs and returns the first
// error found.
func validateCredentials(email, password string) string {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "Email and password are required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Email address is invalid"
	}
	return ""
}

// validateRegistration adds the registration-only rules.
func validateRegistration(email, password, name string) string {
	if msg := validateCredentials(email, password); msg != "" {
		return msg
	}
	if len(password) < minPasswordLen {
		return "Password is too short (min 6 characters)"
	}
	if len(password) > maxPasswordLen {
		return "Password is too long (max 72 bytes)"
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Name is too long (max 100 characters)"
	}
	return ""
}

// validateGeneration checks a generation to be saved.
func validateGeneration(typ, title, content string) string {
	if strings.TrimSpace(typ) == "" || strings.TrimSpace(content) == "" {
		return "Type and content are required"
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "Title is too long (max 300 characters)"
	}
	if len(content) > maxContentLen {
		return "Content is too long (max 200,000 bytes)"
	}
	return ""
}

// validatePrompt checks a free-text generation input.
func validatePrompt(field, value string) string {
	if strings.TrimSpace(value) == "" {
		return field + " is required"
	}
	if utf8.RuneCountInString(value) > maxPromptLen {
		return field + " is too long (max 20,000 characters)"
	}
	return ""
}
