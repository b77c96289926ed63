// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"xhsstudio/internal/models"
	"xhsstudio/internal/schema"
)

// fakeProvider returns canned responses and records the prompts it saw.
type fakeProvider struct {
	name    string
	resp    string
	err     error
	images  []string
	prompts []Prompt
	cfg     ProviderConfig
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) GenerateJSON(_ context.Context, p Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.resp, f.err
}

// fakeImager is a fakeProvider that can also make images.
type fakeImager struct {
	*fakeProvider
	calls []string
}

func (f *fakeImager) GenerateImage(_ context.Context, prompt, aspect string) (string, error) {
	if aspect != ImageAspectRatio {
		return "", errors.New("wrong aspect ratio " + aspect)
	}
	f.calls = append(f.calls, prompt)
	if len(f.images) == 0 {
		return "", ErrNoImage
	}
	img := f.images[0]
	f.images = f.images[1:]
	if img == "" {
		return "", ErrNoImage
	}
	return img, nil
}

func registryWith(kind models.ProviderKind, p Provider) *Registry {
	reg := NewRegistry(WorkflowConfig{})
	reg.Register(kind, func(_ context.Context, cfg ProviderConfig) (Provider, error) {
		switch fp := p.(type) {
		case *fakeProvider:
			fp.cfg = cfg
		case *fakeImager:
			fp.cfg = cfg
		}
		return p, nil
	})
	return reg
}

func requestFor(text, image models.ProviderKind) Request {
	return Request{
		Text:  models.Selection{Provider: text, Model: "text-model"},
		Image: models.Selection{Provider: image, Model: "image-model"},
		Credentials: Credentials{
			Gemini:   ProviderConfig{APIKey: "g-key"},
			DeepSeek: ProviderConfig{APIKey: "d-key", BaseURL: "https://ds.example"},
		},
	}
}

const twoSlides = `[{"title":"a","html":"<div>A</div>","css":""},{"title":"b","html":"<div>B</div>","css":".x{}"}]`

func TestAnalyzeAndGenerateSlides(t *testing.T) {
	fp := &fakeProvider{name: "gemini", resp: twoSlides}
	c := registryWith(models.ProviderGemini, fp).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	slides, err := c.AnalyzeAndGenerateSlides(context.Background(), "", "Title: 标题\nBody: 正文")
	if err != nil {
		t.Fatalf("AnalyzeAndGenerateSlides: %v", err)
	}
	if len(slides) != 2 || slides[1].CSS != ".x{}" {
		t.Errorf("slides = %+v", slides)
	}
	if fp.cfg.APIKey != "g-key" || fp.cfg.Model != "text-model" {
		t.Errorf("provider config = %+v", fp.cfg)
	}
	p := fp.prompts[0]
	if p.Kind != schema.KindSlideDeck || !strings.Contains(p.User, "正文") {
		t.Errorf("prompt = %+v", p)
	}
	if strings.Contains(p.User, `{"slides"`) {
		t.Error("gemini prompt must ask for a bare array")
	}
}

func TestAnalyzeAndGenerateSlidesDeepSeekUnwraps(t *testing.T) {
	fp := &fakeProvider{name: "deepseek", resp: `{"slides":` + twoSlides + `}`}
	c := registryWith(models.ProviderDeepSeek, fp).For(requestFor(models.ProviderDeepSeek, models.ProviderGemini))

	slides, err := c.AnalyzeAndGenerateSlides(context.Background(), "", "text")
	if err != nil {
		t.Fatalf("AnalyzeAndGenerateSlides: %v", err)
	}
	if len(slides) != 2 {
		t.Errorf("got %d slides, want 2", len(slides))
	}
	if !strings.Contains(fp.prompts[0].User, `{"slides"`) {
		t.Error("deepseek prompt must ask for the wrapped object")
	}
	if fp.cfg.BaseURL != "https://ds.example" {
		t.Errorf("BaseURL = %q", fp.cfg.BaseURL)
	}
}

func TestAnalyzeAndGenerateSlidesInvalidJSON(t *testing.T) {
	fp := &fakeProvider{name: "gemini", resp: "Sure! Here are your slides:"}
	c := registryWith(models.ProviderGemini, fp).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	slides, err := c.AnalyzeAndGenerateSlides(context.Background(), "", "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if slides != nil {
		t.Errorf("partial result returned: %+v", slides)
	}
}

func TestAnalyzeAndGenerateSlidesMissingField(t *testing.T) {
	fp := &fakeProvider{name: "gemini", resp: `[{"title":"a","html":"<p>x</p>","css":""},{"title":"b","css":""}]`}
	c := registryWith(models.ProviderGemini, fp).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	_, err := c.AnalyzeAndGenerateSlides(context.Background(), "", "text")
	var se *schema.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *schema.SchemaError", err)
	}
	if se.Field != "[1].html" {
		t.Errorf("Field = %q, want [1].html", se.Field)
	}
}

func TestAnalyzeAndGenerateSlidesFencedJSON(t *testing.T) {
	fp := &fakeProvider{name: "gemini", resp: "```json\n" + twoSlides + "\n```"}
	c := registryWith(models.ProviderGemini, fp).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	if _, err := c.AnalyzeAndGenerateSlides(context.Background(), "", "text"); err != nil {
		t.Fatalf("AnalyzeAndGenerateSlides: %v", err)
	}
}

func TestProviderErrorPropagates(t *testing.T) {
	want := &TransportError{Provider: "gemini", Status: 500, Body: "down"}
	fp := &fakeProvider{name: "gemini", err: want}
	c := registryWith(models.ProviderGemini, fp).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	_, err := c.GenerateProductCopy(context.Background(), "lip balm", nil)
	var te *TransportError
	if !errors.As(err, &te) || te.Status != 500 {
		t.Fatalf("error = %v, want transport error", err)
	}
	if len(fp.prompts) != 1 {
		t.Errorf("provider called %d times, want 1 (no retries)", len(fp.prompts))
	}
}

func TestGenerateProductCopy(t *testing.T) {
	fp := &fakeProvider{name: "gemini", resp: `{"productName":"Lip Balm","title":"💄 必买","content":"好用",
		"sellingPoints":["滋润"],"tags":["#唇膏"],"suggestedImages":["a balm on a table"]}`}
	c := registryWith(models.ProviderGemini, fp).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	got, err := c.GenerateProductCopy(context.Background(), "lip balm", nil)
	if err != nil {
		t.Fatalf("GenerateProductCopy: %v", err)
	}
	if got.ProductName != "Lip Balm" || len(got.SuggestedImages) != 1 {
		t.Errorf("copy = %+v", got)
	}
	if fp.prompts[0].System != productSystem {
		t.Errorf("System = %q", fp.prompts[0].System)
	}
}

func TestGenerateProductCopyMissingField(t *testing.T) {
	fp := &fakeProvider{name: "gemini", resp: `{"productName":"x","title":"t","content":"c","sellingPoints":[],"tags":[]}`}
	c := registryWith(models.ProviderGemini, fp).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	_, err := c.GenerateProductCopy(context.Background(), "x", nil)
	var se *schema.SchemaError
	if !errors.As(err, &se) || se.Field != "suggestedImages" {
		t.Fatalf("error = %v, want schema error on suggestedImages", err)
	}
}

func TestGenerateArticleRendersMarkdown(t *testing.T) {
	fp := &fakeProvider{name: "deepseek", resp: `{"title":"T","content":"## Part\n\nSome *text*"}`}
	c := registryWith(models.ProviderDeepSeek, fp).For(requestFor(models.ProviderDeepSeek, models.ProviderGemini))

	got, err := c.GenerateArticle(context.Background(), "T", "students")
	if err != nil {
		t.Fatalf("GenerateArticle: %v", err)
	}
	if !strings.Contains(got.HTML, "<h2") || !strings.Contains(got.HTML, "<em>text</em>") {
		t.Errorf("HTML = %s", got.HTML)
	}
	if !strings.Contains(fp.prompts[0].User, "students") {
		t.Error("audience missing from prompt")
	}
}

func TestGenerateImage(t *testing.T) {
	fi := &fakeImager{fakeProvider: &fakeProvider{name: "gemini", images: []string{"data:image/png;base64,AAAA"}}}
	c := registryWith(models.ProviderGemini, fi).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	uri, err := c.GenerateImage(context.Background(), "a cat")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if uri != "data:image/png;base64,AAAA" {
		t.Errorf("uri = %q", uri)
	}
	if fi.cfg.Model != "image-model" {
		t.Errorf("image provider built with model %q", fi.cfg.Model)
	}
}

func TestGenerateImageUnsupported(t *testing.T) {
	fp := &fakeProvider{name: "deepseek"}
	c := registryWith(models.ProviderDeepSeek, fp).For(requestFor(models.ProviderGemini, models.ProviderDeepSeek))

	if _, err := c.GenerateImage(context.Background(), "a cat"); !errors.Is(err, ErrImageUnsupported) {
		t.Fatalf("error = %v, want ErrImageUnsupported", err)
	}

	c = registryWith(models.ProviderDeepSeek, fp).For(requestFor(models.ProviderGemini, models.ProviderDify))
	if _, err := c.GenerateImage(context.Background(), "a cat"); !errors.Is(err, ErrImageUnsupported) {
		t.Fatalf("dify image: error = %v, want ErrImageUnsupported", err)
	}
}

func TestGenerateSuggestedImages(t *testing.T) {
	fi := &fakeImager{fakeProvider: &fakeProvider{name: "gemini", images: []string{"img-1", "", "img-3"}}}
	c := registryWith(models.ProviderGemini, fi).For(requestFor(models.ProviderGemini, models.ProviderGemini))

	got, err := c.GenerateSuggestedImages(context.Background(), []string{"p1", "p2", "p3", "p4"}, 3)
	if err != nil {
		t.Fatalf("GenerateSuggestedImages: %v", err)
	}
	if len(got) != 2 || got[0] != "img-1" || got[1] != "img-3" {
		t.Errorf("images = %v", got)
	}
	if len(fi.calls) != 3 || fi.calls[0] != "p1"+ImagePromptSuffix {
		t.Errorf("calls = %v", fi.calls)
	}
}

func TestMissingCredentials(t *testing.T) {
	fp := &fakeProvider{name: "gemini", resp: twoSlides}
	req := requestFor(models.ProviderGemini, models.ProviderGemini)
	req.Credentials.Gemini.APIKey = ""
	c := registryWith(models.ProviderGemini, fp).For(req)

	if _, err := c.AnalyzeAndGenerateSlides(context.Background(), "", "x"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("error = %v, want ErrMissingCredentials", err)
	}
	if len(fp.prompts) != 0 {
		t.Error("provider called without credentials")
	}
}

func TestRequestsDoNotShareConfiguration(t *testing.T) {
	var seen []string
	reg := NewRegistry(WorkflowConfig{})
	reg.Register(models.ProviderGemini, func(_ context.Context, cfg ProviderConfig) (Provider, error) {
		seen = append(seen, cfg.APIKey)
		return &fakeProvider{name: "gemini", resp: twoSlides}, nil
	})

	for _, key := range []string{"user-a", "user-b"} {
		req := requestFor(models.ProviderGemini, models.ProviderGemini)
		req.Credentials.Gemini.APIKey = key
		if _, err := reg.For(req).AnalyzeAndGenerateSlides(context.Background(), "", "x"); err != nil {
			t.Fatalf("AnalyzeAndGenerateSlides: %v", err)
		}
	}
	if len(seen) != 2 || seen[0] != "user-a" || seen[1] != "user-b" {
		t.Errorf("factory saw keys %v", seen)
	}
}
