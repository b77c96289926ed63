// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"xhsstudio/internal/media"
	"xhsstudio/internal/models"
	"xhsstudio/internal/schema"
)

func TestGeminiGenerateJSON(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, twoSlides)
	}))
	defer srv.Close()

	p, err := newGemini(context.Background(), ProviderConfig{
		APIKey: "k", Model: "gemini-test", BaseURL: srv.URL, HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("newGemini: %v", err)
	}

	out, err := p.GenerateJSON(context.Background(), Prompt{
		System: "sys",
		User:   "make slides",
		Images: []media.Inline{{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
		Kind:   schema.KindSlideDeck,
	})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out != twoSlides {
		t.Errorf("out = %q", out)
	}

	cfg, _ := body["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" {
		t.Errorf("generationConfig = %v", cfg)
	}
	if cfg["responseSchema"] == nil {
		t.Error("responseSchema not sent")
	}
	contents, _ := body["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("contents = %v", body["contents"])
	}
	parts, _ := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Errorf("got %d parts, want text + inline image", len(parts))
	}
}

func TestGeminiGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(raw), `"aspectRatio":"3:4"`) {
			t.Errorf("aspect ratio missing from %s", raw)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[
			{"text":"here you go"},
			{"inlineData":{"mimeType":"image/png","data":"iVBORw0KGgo="}},
			{"inlineData":{"mimeType":"image/png","data":"AAAA"}}]}}]}`)
	}))
	defer srv.Close()

	p, err := newGemini(context.Background(), ProviderConfig{
		APIKey: "k", Model: "gemini-image", BaseURL: srv.URL, HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("newGemini: %v", err)
	}

	uri, err := p.(ImageGenerator).GenerateImage(context.Background(), "a cat", ImageAspectRatio)
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if uri != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("uri = %q", uri)
	}
}

func TestGeminiGenerateImageNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"no"}]}}]}`)
	}))
	defer srv.Close()

	p, _ := newGemini(context.Background(), ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL, HTTPClient: srv.Client()})
	if _, err := p.(ImageGenerator).GenerateImage(context.Background(), "x", ImageAspectRatio); !errors.Is(err, ErrNoImage) {
		t.Fatalf("error = %v, want ErrNoImage", err)
	}
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	p, _ := newGemini(context.Background(), ProviderConfig{APIKey: "k", Model: "m", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := p.GenerateJSON(context.Background(), Prompt{User: "x", Kind: schema.KindArticle})
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusForbidden {
		t.Fatalf("error = %v, want 403 TransportError", err)
	}
}

func TestDeepSeekGenerateJSON(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ds-key" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}]}`,
			`{"title":"T","content":"body"}`)
	}))
	defer srv.Close()

	p, err := newDeepSeek(context.Background(), ProviderConfig{
		APIKey: "ds-key", Model: "deepseek-chat", BaseURL: srv.URL, HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("newDeepSeek: %v", err)
	}

	out, err := p.GenerateJSON(context.Background(), Prompt{System: "sys", User: "write", Kind: schema.KindArticle})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out != `{"title":"T","content":"body"}` {
		t.Errorf("out = %q", out)
	}

	if body["model"] != "deepseek-chat" {
		t.Errorf("model = %v", body["model"])
	}
	if rf, _ := body["response_format"].(map[string]any); rf["type"] != "json_object" {
		t.Errorf("response_format = %v", body["response_format"])
	}
	if msgs, _ := body["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages = %v", body["messages"])
	}
}

func TestDeepSeekAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Authentication Fails","type":"authentication_error"}}`)
	}))
	defer srv.Close()

	p, _ := newDeepSeek(context.Background(), ProviderConfig{APIKey: "bad", Model: "deepseek-chat", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := p.GenerateJSON(context.Background(), Prompt{User: "x"})
	var te *TransportError
	if !errors.As(err, &te) || te.Status != http.StatusUnauthorized || te.Provider != "deepseek" {
		t.Fatalf("error = %v, want 401 TransportError", err)
	}
}

func TestDeepSeekHasNoImages(t *testing.T) {
	p, _ := newDeepSeek(context.Background(), ProviderConfig{APIKey: "k"})
	if _, ok := p.(ImageGenerator); ok {
		t.Error("deepseek must not implement ImageGenerator")
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	reg := NewRegistry(WorkflowConfig{})
	if reg.HasProvider(models.ProviderDify) {
		t.Error("dify is a workflow, not a registered provider")
	}
	_, err := reg.build(context.Background(), models.Selection{Provider: "other"}, Credentials{})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCredentialsSharedHTTPClient(t *testing.T) {
	hc := &http.Client{}
	creds := Credentials{Gemini: ProviderConfig{APIKey: "g"}, HTTPClient: hc}
	if got := creds.For(models.ProviderGemini); got.HTTPClient != hc || got.APIKey != "g" {
		t.Errorf("For(gemini) = %+v", got)
	}
}

func TestToGenaiSchema(t *testing.T) {
	s := toGenaiSchema(schema.For(schema.KindSlideDeck))
	if s.Type != "ARRAY" || s.Items == nil || s.Items.Properties["html"] == nil {
		t.Fatalf("converted schema = %+v", s)
	}
	if len(s.Items.Required) != 3 {
		t.Errorf("Required = %v", s.Items.Required)
	}
}
