// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package raster turns staged surfaces into PNG images. A Rasterizer tries
// its primary browser backend, falls back to a second backend on any
// failure, and normalizes whatever it captured to one fixed output size.
// When both backends fail it returns a transparent placeholder alongside
// the error so batch exports can keep going.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"xhsstudio/internal/render"
)

const (
	// OutputWidth and OutputHeight are the pixel size of every image the
	// Rasterizer returns, whichever backend produced it.
	OutputWidth  = 1242
	OutputHeight = 1656

	// DefaultSettle is how long a backend waits after loading a surface
	// before capturing, letting styles and web fonts apply.
	DefaultSettle = 200 * time.Millisecond
)

// Backend captures a staged surface with a headless browser.
type Backend interface {
	Name() string
	Capture(ctx context.Context, surf *render.Surface) (image.Image, error)
}

// Image is a rasterized slide.
type Image struct {
	DataURI  string `json:"dataUri"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Backend  string `json:"backend"`
	Degraded bool   `json:"degraded"`

	// PNG holds the encoded bytes behind DataURI.
	PNG []byte `json:"-"`
}

// FailureError reports that every backend failed for one surface.
type FailureError struct {
	Title    string
	Primary  error
	Fallback error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("raster: capture %q failed: primary: %v; fallback: %v", e.Title, e.Primary, e.Fallback)
}

func (e *FailureError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

// Rasterizer captures surfaces with a primary backend and a fallback.
type Rasterizer struct {
	primary  Backend
	fallback Backend
	logger   *slog.Logger
}

// New creates a Rasterizer. fallback may be nil, in which case a primary
// failure goes straight to the placeholder.
func New(primary, fallback Backend, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{primary: primary, fallback: fallback, logger: logger}
}

// Rasterize captures surf. On success the image is exactly
// OutputWidth x OutputHeight. If every backend fails, the returned image is
// the transparent placeholder (Degraded set) and err is a *FailureError.
func (r *Rasterizer) Rasterize(ctx context.Context, surf *render.Surface) (Image, error) {
	img, err := r.capture(ctx, r.primary, surf)
	if err == nil {
		return img, nil
	}
	primaryErr := err

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Image{}, ctxErr
	}

	r.logger.Warn("primary rasterizer failed, trying fallback",
		"surface", surf.Title,
		"backend", name(r.primary),
		"error", primaryErr,
	)

	fallbackErr := errors.New("no fallback backend configured")
	if r.fallback != nil {
		img, err = r.capture(ctx, r.fallback, surf)
		if err == nil {
			return img, nil
		}
		fallbackErr = err
	}

	ph, err := Placeholder()
	if err != nil {
		return Image{}, fmt.Errorf("raster: build placeholder: %w", err)
	}
	return ph, &FailureError{Title: surf.Title, Primary: primaryErr, Fallback: fallbackErr}
}

func (r *Rasterizer) capture(ctx context.Context, b Backend, surf *render.Surface) (img Image, err error) {
	if b == nil {
		return Image{}, errors.New("no backend configured")
	}

	// Browser drivers may panic on a lost connection; treat it as a failure
	// of this backend only.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: panic: %v", b.Name(), rec)
		}
	}()

	start := time.Now()
	raw, err := b.Capture(ctx, surf)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", b.Name(), err)
	}

	img, err = Encode(Normalize(raw))
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", b.Name(), err)
	}
	img.Backend = b.Name()

	r.logger.Debug("surface rasterized",
		"surface", surf.Title,
		"backend", b.Name(),
		"source", raw.Bounds().Size().String(),
		"duration", time.Since(start).String(),
	)
	return img, nil
}

func name(b Backend) string {
	if b == nil {
		return "none"
	}
	return b.Name()
}

// settle waits d or until ctx is done.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// checkCaptureSize rejects a capture whose pixel size does not match the
// surface at the given scale, so a partial capture reaches the fallback
// instead of being upscaled.
func checkCaptureSize(img image.Image, surf *render.Surface, scale float64) error {
	b := img.Bounds()
	wantW := int(math.Round(float64(surf.Width) * scale))
	wantH := int(math.Round(float64(surf.Height) * scale))
	if abs(b.Dx()-wantW) > 1 || abs(b.Dy()-wantH) > 1 {
		return fmt.Errorf("capture is %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
