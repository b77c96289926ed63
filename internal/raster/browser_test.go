// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package raster

import (
	"context"
	"image"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"xhsstudio/internal/render"
)

// quadrantDocument paints each quarter of a 600x800 surface a different
// color so a capture of the wrong region shows up at the corners.
const quadrantDocument = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
html, body { margin: 0; padding: 0; background: #ffffff; }
#xhs-quadrants { position: relative; width: 600px; height: 800px; }
#xhs-quadrants div { position: absolute; width: 300px; height: 400px; }
</style></head><body>
<div id="xhs-quadrants">
<div style="left:0;top:0;background:#ff0000"></div>
<div style="left:300px;top:0;background:#00ff00"></div>
<div style="left:0;top:400px;background:#0000ff"></div>
<div style="left:300px;top:400px;background:#ffff00"></div>
</div>
</body></html>`

func quadrantSurface() *render.Surface {
	return &render.Surface{
		ID:       "xhs-quadrants",
		Title:    "quadrants",
		Width:    600,
		Height:   800,
		Document: quadrantDocument,
	}
}

// chromeURL returns the remote DevTools URL to use, or "" for a local
// browser. Skips if neither is available.
func chromeURL(t *testing.T) string {
	t.Helper()
	if u := os.Getenv("CHROME_URL"); u != "" {
		return u
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("skipping browser test: no Chrome found and CHROME_URL not set")
	}
	return ""
}

// assertQuadrants checks that a normalized capture has the expected color
// near each corner.
func assertQuadrants(t *testing.T, img image.Image) {
	t.Helper()
	b := img.Bounds()
	if b.Dx() != OutputWidth || b.Dy() != OutputHeight {
		t.Fatalf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), OutputWidth, OutputHeight)
	}

	const inset = 20
	corners := []struct {
		name    string
		x, y    int
		r, g, b uint32
	}{
		{"top-left", inset, inset, 255, 0, 0},
		{"top-right", OutputWidth - inset, inset, 0, 255, 0},
		{"bottom-left", inset, OutputHeight - inset, 0, 0, 255},
		{"bottom-right", OutputWidth - inset, OutputHeight - inset, 255, 255, 0},
	}
	for _, c := range corners {
		r, g, bl, _ := img.At(b.Min.X+c.x, b.Min.Y+c.y).RGBA()
		if !near(r>>8, c.r) || !near(g>>8, c.g) || !near(bl>>8, c.b) {
			t.Errorf("%s pixel = (%d,%d,%d), want (%d,%d,%d)", c.name, r>>8, g>>8, bl>>8, c.r, c.g, c.b)
		}
	}
}

func near(got, want uint32) bool {
	d := int(got) - int(want)
	return d > -16 && d < 16
}

func TestRodCapture_FullSurface(t *testing.T) {
	url := chromeURL(t)
	r := NewRod(RodConfig{RemoteURL: url, Settle: 50 * time.Millisecond, Logger: quietLogger()})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	img, err := r.Capture(ctx, quadrantSurface())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if b := img.Bounds(); b.Dx() != OutputWidth || b.Dy() != OutputHeight {
		t.Errorf("raw capture = %dx%d, want %dx%d", b.Dx(), b.Dy(), OutputWidth, OutputHeight)
	}
	assertQuadrants(t, Normalize(img))
}

func TestChromedpCapture_FullSurface(t *testing.T) {
	url := chromeURL(t)
	c := NewChromedp(ChromedpConfig{RemoteURL: url, Settle: 50 * time.Millisecond, Logger: quietLogger()})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	img, err := c.Capture(ctx, quadrantSurface())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1800 || b.Dy() != 2400 {
		t.Errorf("raw capture = %dx%d, want 1800x2400", b.Dx(), b.Dy())
	}
	assertQuadrants(t, Normalize(img))
}

func TestRodCapture_CancelledContextClosesPage(t *testing.T) {
	url := chromeURL(t)
	r := NewRod(RodConfig{RemoteURL: url, Settle: 5 * time.Second, Logger: quietLogger()})
	defer r.Close()

	b, err := r.connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	before, err := b.Pages()
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := r.Capture(ctx, quadrantSurface()); err == nil {
		t.Fatal("expected the settle wait to be cut short by the deadline")
	}

	after, err := b.Pages()
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("open pages = %d after a cancelled capture, want %d", len(after), len(before))
	}
}

func TestCheckCaptureSize(t *testing.T) {
	surf := testSurface()
	scale := float64(OutputWidth) / float64(surf.Width)

	tests := []struct {
		name    string
		w, h    int
		wantErr bool
	}{
		{"exact", OutputWidth, OutputHeight, false},
		{"rounding", OutputWidth - 1, OutputHeight + 1, false},
		{"css pixel crop", 600, 800, true},
		{"wrong aspect", OutputWidth, OutputWidth, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h))
			err := checkCaptureSize(img, surf, scale)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkCaptureSize(%dx%d) error = %v, wantErr %v", tt.w, tt.h, err, tt.wantErr)
			}
		})
	}
}
