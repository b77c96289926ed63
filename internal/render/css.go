// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// ScopeCSS parses a stylesheet fragment and prefixes every selector with
// scope so the rules only reach the surface they were generated for.
// Rules inside @media and @supports are scoped as well; @keyframes and
// @font-face are kept as written. The result is safe to place inside a
// <style> element.
func ScopeCSS(src, scope string) (string, error) {
	sheet, err := parser.Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse css: %w", err)
	}

	for _, rule := range sheet.Rules {
		scopeRule(rule, scope)
	}
	return escapeStyleText(sheet.String()), nil
}

// escapeStyleText rewrites every '<' as the CSS escape \3c so the text
// cannot close the enclosing <style> element or open a comment.
// The escape decodes back to '<' inside CSS strings.
func escapeStyleText(s string) string {
	return strings.ReplaceAll(s, "<", `\3c `)
}

func scopeRule(rule *css.Rule, scope string) {
	if rule.Kind == css.AtRule {
		switch strings.ToLower(strings.TrimPrefix(rule.Name, "@")) {
		case "media", "supports", "document", "layer", "container":
			for _, child := range rule.Rules {
				scopeRule(child, scope)
			}
		}
		return
	}

	for i, sel := range rule.Selectors {
		rule.Selectors[i] = scopeSelector(sel, scope)
	}
	if len(rule.Selectors) > 0 {
		rule.Prelude = strings.Join(rule.Selectors, ", ")
	}
}

// scopeSelector confines a single selector to scope. Document-level
// selectors (html, body, :root) are mapped onto the scope itself.
func scopeSelector(sel, scope string) string {
	sel = strings.TrimSpace(sel)
	if sel == "" || strings.HasPrefix(sel, scope) {
		return sel
	}

	for _, root := range []string{":root", "html", "body"} {
		if sel == root {
			return scope
		}
		if strings.HasPrefix(sel, root) {
			rest := sel[len(root):]
			switch rest[0] {
			case ' ', '>', '+', '~', '.', ':', '[', '#':
				return scope + rest
			}
		}
	}
	return scope + " " + sel
}
