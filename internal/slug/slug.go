// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns user-supplied titles into safe download file names.
package slug

import (
	"strings"
	"unicode"
)

// MaxLen is the longest slug Generate returns, in runes.
const MaxLen = 80

// Generate creates a file-name-safe slug from s. Letters and digits of any
// script are kept (CJK titles survive), Latin letters are lowercased, and
// every other run of characters collapses into a single hyphen.
// Example: "小红书 Notes: Day 1!" → "小红书-notes-day-1"
func Generate(s string) string {
	var b strings.Builder
	pendingHyphen := false
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if n >= MaxLen {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
				n++
			}
			pendingHyphen = false
			b.WriteRune(unicode.ToLower(r))
			n++
			continue
		}
		pendingHyphen = true
	}
	return strings.Trim(b.String(), "-")
}

// OrDefault returns Generate(s), or fallback when nothing usable remains.
func OrDefault(s, fallback string) string {
	if out := Generate(s); out != "" {
		return out
	}
	return fallback
}
