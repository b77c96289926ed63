// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render stages generated slides as standalone HTML documents ready
// for rasterization. A staged surface is a fixed 600x800 container holding
// the slide's sanitized markup, its CSS scoped to the container, an optional
// cover background with a darkening overlay, and the centering fix-up
// applied to badge-like elements.
package render

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"xhsstudio/internal/models"
)

//go:embed templates/surface.html
var templatesFS embed.FS

const (
	// SurfaceWidth and SurfaceHeight are the logical size of every slide.
	SurfaceWidth  = 600
	SurfaceHeight = 800

	// DefaultCenterOffset is the vertical nudge, in CSS pixels, applied to
	// items-center elements.
	DefaultCenterOffset = 2

	// DefaultTailwindURL is the script the slide markup's utility classes
	// depend on.
	DefaultTailwindURL = "https://cdn.tailwindcss.com"
)

// StageError reports a slide that could not be staged. Nothing is rendered
// for a slide that fails to stage.
type StageError struct {
	Title  string
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render: stage %q: %s: %v", e.Title, e.Reason, e.Err)
	}
	return fmt.Sprintf("render: stage %q: %s", e.Title, e.Reason)
}

func (e *StageError) Unwrap() error { return e.Err }

// Overlay is the cover background image and the opacity (0-100) of the
// black layer placed over it.
type Overlay struct {
	Image   string
	Opacity int
}

// Alpha maps Opacity linearly onto 0..1, clamping out-of-range values.
func (o Overlay) Alpha() float64 {
	switch {
	case o.Opacity <= 0:
		return 0
	case o.Opacity >= 100:
		return 1
	}
	return float64(o.Opacity) / 100
}

// Surface is a staged slide. It is a value: staging the same slide with the
// same settings always yields an identical Document.
type Surface struct {
	ID              string
	Title           string
	Width           int
	Height          int
	BackgroundColor string
	TextColor       string
	FontFamily      string
	Overlay         *Overlay
	CenterOffset    int

	// ScopedCSS is the slide's CSS with every selector confined to #ID.
	ScopedCSS string
	// Content is the sanitized, fixed-up slide markup.
	Content string
	// Document is the complete HTML page containing the surface.
	Document string
}

// Selector returns the CSS selector of the surface container.
func (s *Surface) Selector() string { return "#" + s.ID }

// Stager builds surfaces. It is safe for concurrent use.
type Stager struct {
	policy       *bluemonday.Policy
	tmpl         *template.Template
	tailwindURL  string
	centerOffset int
}

// Option configures a Stager.
type Option func(*Stager)

// WithTailwindURL overrides the utility-class script; empty disables it.
func WithTailwindURL(u string) Option {
	return func(s *Stager) { s.tailwindURL = u }
}

// WithCenterOffset overrides the items-center nudge in pixels.
func WithCenterOffset(px int) Option {
	return func(s *Stager) { s.centerOffset = px }
}

// NewStager creates a Stager with the default sanitizing policy.
func NewStager(opts ...Option) (*Stager, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/surface.html")
	if err != nil {
		return nil, fmt.Errorf("parse surface template: %w", err)
	}

	s := &Stager{
		policy:       newPolicy(),
		tmpl:         tmpl,
		tailwindURL:  DefaultTailwindURL,
		centerOffset: DefaultCenterOffset,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// newPolicy allows user-generated markup plus the class and style
// attributes the slides rely on. Scripts and event handlers are dropped.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "style").Globally()
	p.AllowDataURIImages()
	p.AllowElements("section", "header", "footer", "article", "figure", "figcaption", "mark")
	return p
}

// Stage builds the surface for one slide. When cover is true and bgImage is
// non-empty the background image and overlay are layered behind the content.
func (s *Stager) Stage(slide models.Slide, settings models.EditorSettings, bgImage string, cover bool) (*Surface, error) {
	scoped := ""
	id := surfaceID(slide, settings, bgImage, cover)

	if strings.TrimSpace(slide.CSS) != "" {
		var err error
		scoped, err = ScopeCSS(slide.CSS, "#"+id)
		if err != nil {
			return nil, &StageError{Title: slide.Title, Reason: "malformed css", Err: err}
		}
	}

	content, err := FixCentering(s.policy.Sanitize(slide.HTML), s.centerOffset)
	if err != nil {
		return nil, &StageError{Title: slide.Title, Reason: "malformed html", Err: err}
	}

	surf := &Surface{
		ID:              id,
		Title:           slide.Title,
		Width:           SurfaceWidth,
		Height:          SurfaceHeight,
		BackgroundColor: cssValue(settings.BgColor, "#ffffff"),
		TextColor:       cssValue(settings.TextColor, "#000000"),
		FontFamily:      cssValue(settings.FontFamily, "sans-serif"),
		CenterOffset:    s.centerOffset,
		ScopedCSS:       scoped,
		Content:         content,
	}
	if cover && bgImage != "" {
		if !safeImageURL(bgImage) {
			return nil, &StageError{Title: slide.Title, Reason: "unsupported background image url"}
		}
		surf.Overlay = &Overlay{Image: bgImage, Opacity: settings.OverlayOpacity}
	}

	doc, err := s.document(surf, settings)
	if err != nil {
		return nil, &StageError{Title: slide.Title, Reason: "render document", Err: err}
	}
	surf.Document = doc
	return surf, nil
}

type documentData struct {
	ID           string
	Width        int
	TailwindURL  string
	BaseCSS      template.CSS
	ScopedCSS    template.CSS
	OverlayImage template.URL
	Content      template.HTML
}

func (s *Stager) document(surf *Surface, settings models.EditorSettings) (string, error) {
	data := documentData{
		ID:          surf.ID,
		Width:       surf.Width,
		TailwindURL: s.tailwindURL,
		BaseCSS:     template.CSS(baseCSS(surf, settings)),
		ScopedCSS:   template.CSS(escapeStyleText(surf.ScopedCSS)),
		Content:     template.HTML(surf.Content),
	}
	if surf.Overlay != nil {
		data.OverlayImage = template.URL(surf.Overlay.Image)
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "surface.html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func baseCSS(surf *Surface, settings models.EditorSettings) string {
	var b strings.Builder
	sel := surf.Selector()

	b.WriteString("html,body{margin:0;padding:0;background:transparent;}")
	fmt.Fprintf(&b, "%s{position:relative;box-sizing:border-box;width:%dpx;height:%dpx;overflow:visible;"+
		"background-color:%s;color:%s;font-family:%s;",
		sel, surf.Width, surf.Height, surf.BackgroundColor, surf.TextColor, surf.FontFamily)
	if settings.TitleSize > 0 {
		fmt.Fprintf(&b, "--xhs-title-size:%dpx;", settings.TitleSize)
	}
	if settings.ContentSize > 0 {
		fmt.Fprintf(&b, "--xhs-content-size:%dpx;", settings.ContentSize)
	}
	b.WriteString("}")

	if surf.Overlay != nil {
		fmt.Fprintf(&b, "%s>.xhs-bg{position:absolute;top:0;left:0;width:100%%;height:100%%;object-fit:cover;z-index:0;}", sel)
		fmt.Fprintf(&b, "%s>.xhs-overlay{position:absolute;top:0;left:0;width:100%%;height:100%%;background-color:rgba(0,0,0,%s);z-index:1;}",
			sel, strconv.FormatFloat(surf.Overlay.Alpha(), 'f', -1, 64))
	}
	fmt.Fprintf(&b, "%s>.xhs-content{position:relative;z-index:2;box-sizing:border-box;width:100%%;height:100%%;"+
		"padding:32px;display:flex;flex-direction:column;justify-content:center;align-items:center;text-align:center;overflow:hidden;}", sel)

	// Zero specificity: slide css and utility classes still win.
	if settings.ContentSize > 0 {
		fmt.Fprintf(&b, ":where(%s>.xhs-content){font-size:var(--xhs-content-size);}", sel)
	}
	if settings.TitleSize > 0 {
		fmt.Fprintf(&b, ":where(%s>.xhs-content) :where(h1,h2,h3){font-size:var(--xhs-title-size);}", sel)
	}
	return b.String()
}

// surfaceID derives a stable element id from everything that affects the
// staged document.
func surfaceID(slide models.Slide, settings models.EditorSettings, bgImage string, cover bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%+v\x00%s\x00%t", slide.Title, slide.HTML, slide.CSS, settings, bgImage, cover)
	return "xhs-surface-" + hex.EncodeToString(h.Sum(nil))[:12]
}

// cssValue strips characters that could end a declaration or block.
func cssValue(v, fallback string) string {
	v = strings.TrimSpace(v)
	v = strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '\\':
			return -1
		}
		return r
	}, v)
	if v == "" {
		return fallback
	}
	return v
}

func safeImageURL(u string) bool {
	return strings.HasPrefix(u, "data:image/") ||
		strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "http://")
}
