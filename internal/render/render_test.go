// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"errors"
	"strings"
	"testing"

	"xhsstudio/internal/models"
)

func newTestStager(t *testing.T) *Stager {
	t.Helper()
	s, err := NewStager(WithTailwindURL(""))
	if err != nil {
		t.Fatalf("NewStager: %v", err)
	}
	return s
}

func TestStage_Dimensions(t *testing.T) {
	s := newTestStager(t)
	slide := models.Slide{Title: "one", HTML: `<h1>Hello</h1>`, CSS: `h1 { color: red; }`}

	surf, err := s.Stage(slide, models.DefaultEditorSettings(), "", false)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if surf.Width != 600 || surf.Height != 800 {
		t.Errorf("size = %dx%d, want 600x800", surf.Width, surf.Height)
	}
	if !strings.Contains(surf.Document, "width:600px;height:800px;overflow:visible") {
		t.Error("document missing fixed size with visible overflow")
	}
	if !strings.Contains(surf.ScopedCSS, surf.Selector()+" h1") {
		t.Errorf("css not scoped: %q", surf.ScopedCSS)
	}
	if surf.Overlay != nil {
		t.Error("overlay must be absent when not a cover")
	}
}

func TestStage_Idempotent(t *testing.T) {
	s := newTestStager(t)
	slide := models.Slide{
		Title: "badge",
		HTML:  `<span class="inline-flex items-center justify-center">Hot</span>`,
		CSS:   `.x { margin: 0 }`,
	}
	settings := models.DefaultEditorSettings()

	a, err := s.Stage(slide, settings, "", false)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	b, err := s.Stage(slide, settings, "", false)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if a.Document != b.Document {
		t.Error("staging the same slide twice produced different documents")
	}
	if strings.Count(a.Content, "top: 2px") != 1 {
		t.Errorf("fix-up applied %d times, want 1: %s", strings.Count(a.Content, "top: 2px"), a.Content)
	}
}

func TestStage_CoverOverlay(t *testing.T) {
	s := newTestStager(t)
	slide := models.Slide{Title: "cover", HTML: `<h1>Cover</h1>`}
	settings := models.DefaultEditorSettings()
	settings.OverlayOpacity = 40
	bg := "data:image/png;base64,iVBORw0KGgo="

	surf, err := s.Stage(slide, settings, bg, true)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if surf.Overlay == nil {
		t.Fatal("expected overlay on cover")
	}
	if got := surf.Overlay.Alpha(); got != 0.4 {
		t.Errorf("alpha = %v, want 0.4", got)
	}
	if !strings.Contains(surf.Document, "rgba(0,0,0,0.4)") {
		t.Error("document missing overlay color")
	}
	if !strings.Contains(surf.Document, `src="data:image/png;base64,iVBORw0KGgo="`) {
		t.Error("document missing background image")
	}

	// Non-cover slides never get the overlay, even with a background image.
	inner, err := s.Stage(slide, settings, bg, false)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if inner.Overlay != nil || strings.Contains(inner.Document, "xhs-overlay\"") {
		t.Error("overlay applied to non-cover slide")
	}
}

func TestStage_RejectsScriptURLBackground(t *testing.T) {
	s := newTestStager(t)
	_, err := s.Stage(models.Slide{Title: "x", HTML: "<p>x</p>"}, models.DefaultEditorSettings(), "javascript:alert(1)", true)

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StageError, got %v", err)
	}
}

func TestStage_Sanitizes(t *testing.T) {
	s := newTestStager(t)
	slide := models.Slide{
		Title: "evil",
		HTML:  `<div class="p-4" style="color: red" onclick="steal()">ok<script>alert(1)</script></div>`,
	}

	surf, err := s.Stage(slide, models.DefaultEditorSettings(), "", false)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if strings.Contains(surf.Content, "script") || strings.Contains(surf.Content, "onclick") {
		t.Errorf("unsafe markup survived: %s", surf.Content)
	}
	if !strings.Contains(surf.Content, `class="p-4"`) || !strings.Contains(surf.Content, "color: red") {
		t.Errorf("class/style stripped: %s", surf.Content)
	}
}

func TestStage_CSSCannotCloseStyle(t *testing.T) {
	s := newTestStager(t)
	tests := []struct {
		name string
		css  string
	}{
		{"string content", `.a{content:"</style><script>alert(document.domain)</script>"}`},
		{"comment open", `.a{content:"<!--"}`},
		{"upper case", `.a{content:"</STYLE><SCRIPT>alert(1)</SCRIPT>"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slide := models.Slide{Title: "css", HTML: `<p class="a">x</p>`, CSS: tt.css}
			surf, err := s.Stage(slide, models.DefaultEditorSettings(), "", false)
			if err != nil {
				var se *StageError
				if !errors.As(err, &se) {
					t.Fatalf("expected *StageError, got %v", err)
				}
				return
			}
			lower := strings.ToLower(surf.Document)
			if strings.Contains(lower, "</style><script>") || strings.Contains(lower, "<script>alert") {
				t.Errorf("slide css escaped its style element:\n%s", surf.Document)
			}
			if strings.Contains(surf.ScopedCSS, "<") {
				t.Errorf("scoped css still contains '<': %q", surf.ScopedCSS)
			}
			if strings.Count(lower, "</style>") != 2 {
				t.Errorf("document has %d </style> tags, want 2", strings.Count(lower, "</style>"))
			}
		})
	}
}

func TestStage_AppliesFontSizes(t *testing.T) {
	s := newTestStager(t)
	settings := models.DefaultEditorSettings()
	settings.TitleSize = 40
	settings.ContentSize = 18

	surf, err := s.Stage(models.Slide{Title: "sizes", HTML: `<h1>T</h1><p>c</p>`}, settings, "", false)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	sel := surf.Selector()
	for _, want := range []string{
		"--xhs-title-size:40px;",
		"--xhs-content-size:18px;",
		":where(" + sel + ">.xhs-content){font-size:var(--xhs-content-size);}",
		":where(" + sel + ">.xhs-content) :where(h1,h2,h3){font-size:var(--xhs-title-size);}",
	} {
		if !strings.Contains(surf.Document, want) {
			t.Errorf("document missing %q", want)
		}
	}

	settings.TitleSize = 0
	settings.ContentSize = 0
	bare, err := s.Stage(models.Slide{Title: "sizes", HTML: `<h1>T</h1>`}, settings, "", false)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if strings.Contains(bare.Document, "--xhs-title-size") || strings.Contains(bare.Document, "--xhs-content-size") {
		t.Error("unset sizes still emitted")
	}
}

func TestOverlayAlpha(t *testing.T) {
	tests := []struct {
		opacity int
		want    float64
	}{
		{-10, 0}, {0, 0}, {25, 0.25}, {50, 0.5}, {100, 1}, {150, 1},
	}
	for _, tt := range tests {
		if got := (Overlay{Opacity: tt.opacity}).Alpha(); got != tt.want {
			t.Errorf("Alpha(%d) = %v, want %v", tt.opacity, got, tt.want)
		}
	}
}

func TestCSSValue(t *testing.T) {
	if got := cssValue("red;}body{display:none", "#fff"); strings.ContainsAny(got, ";{}") {
		t.Errorf("cssValue did not strip delimiters: %q", got)
	}
	if got := cssValue("  ", "#fff"); got != "#fff" {
		t.Errorf("cssValue fallback = %q", got)
	}
}
