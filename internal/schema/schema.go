// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package schema validates structured model responses before they reach
// the rest of the application. Each response kind has a JSON Schema; a
// response is parsed, checked field by field (the first offending field is
// reported as a *SchemaError) and then validated against the resolved
// schema as a whole.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
)

// Kind identifies the shape of a structured response.
type Kind string

const (
	KindSlideDeck   Kind = "slide-deck"
	KindProductCopy Kind = "product-copy"
	KindArticle     Kind = "article"
)

// ErrEmptyResponse is returned when the model produced no text at all.
var ErrEmptyResponse = errors.New("schema: empty response")

// SchemaError reports the first field of a response that is missing or has
// the wrong shape.
type SchemaError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: %s response %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("schema: %s response field %q %s", e.Kind, e.Field, e.Reason)
}

type entry struct {
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
}

var entries = map[Kind]entry{}

func init() {
	for kind, s := range map[Kind]*jsonschema.Schema{
		KindSlideDeck:   slideDeckSchema(),
		KindProductCopy: productCopySchema(),
		KindArticle:     articleSchema(),
	} {
		r, err := s.Resolve(nil)
		if err != nil {
			panic(fmt.Sprintf("schema: resolve %s: %v", kind, err))
		}
		entries[kind] = entry{schema: s, resolved: r}
	}
}

func intPtr(n int) *int { return &n }

func str() *jsonschema.Schema { return &jsonschema.Schema{Type: "string"} }

func strList() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: str()}
}

func slideDeckSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "array",
		MinItems: intPtr(1),
		MaxItems: intPtr(10),
		Items: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"title": str(),
				"html":  {Type: "string", Pattern: `\S`},
				"css":   str(),
			},
			Required: []string{"title", "html", "css"},
		},
	}
}

func productCopySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"productName":     str(),
			"title":           str(),
			"content":         str(),
			"sellingPoints":   strList(),
			"tags":            strList(),
			"suggestedImages": strList(),
		},
		Required: []string{"productName", "title", "content", "sellingPoints", "tags", "suggestedImages"},
	}
}

func articleSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"title":   str(),
			"content": {Type: "string", Pattern: `\S`},
		},
		Required: []string{"title", "content"},
	}
}

// For returns the JSON Schema registered for kind, or nil.
func For(kind Kind) *jsonschema.Schema {
	return entries[kind].schema
}

// Validate parses raw as JSON and checks it against the schema for kind.
// It returns the decoded instance on success.
func Validate(kind Kind, raw []byte) (any, error) {
	e, ok := entries[kind]
	if !ok {
		return nil, fmt.Errorf("schema: unknown kind %q", kind)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyResponse
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("schema: parse %s response: %w", kind, err)
	}

	if field, reason := walk(e.schema, v, ""); reason != "" {
		return nil, &SchemaError{Kind: kind, Field: field, Reason: reason}
	}
	if err := e.resolved.Validate(v); err != nil {
		return nil, &SchemaError{Kind: kind, Reason: err.Error()}
	}
	return v, nil
}

// Decode validates raw and unmarshals it into out.
func Decode(kind Kind, raw []byte, out any) error {
	if _, err := Validate(kind, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), out); err != nil {
		return fmt.Errorf("schema: decode %s response: %w", kind, err)
	}
	return nil
}

// walk checks v against s and returns the path of the first offending
// field with a reason. An empty reason means v conforms.
func walk(s *jsonschema.Schema, v any, path string) (string, string) {
	switch s.Type {
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return path, "must be an object"
		}
		for _, name := range s.Required {
			if _, ok := obj[name]; !ok {
				return join(path, name), "is required"
			}
		}
		for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
			child, ok := obj[name]
			if !ok {
				continue
			}
			if f, reason := walk(s.Properties[name], child, join(path, name)); reason != "" {
				return f, reason
			}
		}
	case "array":
		arr, ok := v.([]any)
		if !ok {
			return path, "must be an array"
		}
		if s.MinItems != nil && len(arr) < *s.MinItems {
			return path, fmt.Sprintf("must have at least %d items", *s.MinItems)
		}
		if s.MaxItems != nil && len(arr) > *s.MaxItems {
			return path, fmt.Sprintf("must have at most %d items", *s.MaxItems)
		}
		if s.Items != nil {
			for i, item := range arr {
				if f, reason := walk(s.Items, item, path+"["+strconv.Itoa(i)+"]"); reason != "" {
					return f, reason
				}
			}
		}
	case "string":
		sv, ok := v.(string)
		if !ok {
			return path, "must be a string"
		}
		if s.Pattern != "" && !regexp.MustCompile(s.Pattern).MatchString(sv) {
			return path, "must not be blank"
		}
	}
	return "", ""
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
