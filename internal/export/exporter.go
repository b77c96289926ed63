// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"xhsstudio/internal/models"
	"xhsstudio/internal/raster"
	"xhsstudio/internal/render"
)

// Stager stages one slide. *render.Stager satisfies it.
type Stager interface {
	Stage(slide models.Slide, settings models.EditorSettings, bgImage string, cover bool) (*render.Surface, error)
}

// Rasterizer captures one surface. *raster.Rasterizer satisfies it.
type Rasterizer interface {
	Rasterize(ctx context.Context, surf *render.Surface) (raster.Image, error)
}

// SlideFailure records a slide that was replaced by the placeholder.
type SlideFailure struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// SlideImage is a rasterized slide with its archive file name.
type SlideImage struct {
	Name  string       `json:"name"`
	Image raster.Image `json:"image"`
}

// Result is the outcome of a deck export. Images are in slide order and
// there is exactly one per slide.
type Result struct {
	Images   []SlideImage   `json:"images"`
	Failures []SlideFailure `json:"failures,omitempty"`
}

// Entries converts the result into archive entries.
func (r *Result) Entries() []Entry {
	entries := make([]Entry, len(r.Images))
	for i, img := range r.Images {
		entries[i] = Entry{Name: img.Name, Data: img.Image.DataURI}
	}
	return entries
}

// Exporter stages and rasterizes slide decks.
type Exporter struct {
	stager     Stager
	rasterizer Rasterizer
	logger     *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(stager Stager, rasterizer Rasterizer, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{stager: stager, rasterizer: rasterizer, logger: logger}
}

// ExportSlides stages and rasterizes slides one after another. The first
// slide is the cover and receives bgImage with the overlay. A slide that
// fails to stage or capture is replaced by the placeholder and recorded in
// Result.Failures; the export only stops early if ctx is cancelled.
func (e *Exporter) ExportSlides(ctx context.Context, slides []models.Slide, settings models.EditorSettings, bgImage string) (*Result, error) {
	if len(slides) == 0 {
		return nil, ErrNoEntries
	}

	res := &Result{Images: make([]SlideImage, 0, len(slides))}
	for i, slide := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := e.exportOne(ctx, slide, settings, bgImage, i == 0)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			e.logger.Error("slide export failed",
				"index", i,
				"title", slide.Title,
				"error", err,
			)
			res.Failures = append(res.Failures, SlideFailure{Index: i, Title: slide.Title, Error: err.Error()})
		}
		res.Images = append(res.Images, SlideImage{Name: SlideFileName(i), Image: img})
	}

	e.logger.Info("slide deck exported", "slides", len(slides), "failures", len(res.Failures))
	return res, nil
}

// exportOne returns a usable image even when it also returns an error.
func (e *Exporter) exportOne(ctx context.Context, slide models.Slide, settings models.EditorSettings, bgImage string, cover bool) (raster.Image, error) {
	surf, err := e.stager.Stage(slide, settings, bgImage, cover)
	if err != nil {
		ph, phErr := raster.Placeholder()
		if phErr != nil {
			return raster.Image{}, fmt.Errorf("%w (placeholder: %v)", err, phErr)
		}
		return ph, err
	}
	return e.rasterizer.Rasterize(ctx, surf)
}
