// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package raster

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"xhsstudio/internal/render"
)

// RodConfig configures the primary backend.
type RodConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local headless Chrome on first use.
	RemoteURL string

	// Settle is the wait between load and capture. Default: DefaultSettle.
	Settle time.Duration

	Logger *slog.Logger
}

func (c *RodConfig) defaults() {
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Rod captures surfaces with go-rod. The surface is laid out at its logical
// size and captured at a device scale factor that yields the output size
// directly.
type Rod struct {
	cfg     RodConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewRod creates the backend. Chrome is started lazily.
func NewRod(cfg RodConfig) *Rod {
	cfg.defaults()
	return &Rod{cfg: cfg}
}

// Name implements Backend.
func (r *Rod) Name() string { return "rod" }

// Capture implements Backend.
func (r *Rod) Capture(ctx context.Context, surf *render.Surface) (image.Image, error) {
	b, err := r.connect()
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		r.reset()
		return nil, fmt.Errorf("open page: %w", err)
	}
	// Close through the original handle: a page bound to a cancelled ctx
	// cannot issue Page.close and the tab would leak.
	defer func() {
		if err := page.Close(); err != nil {
			r.cfg.Logger.Warn("rod: close page", "error", err)
		}
	}()
	p := page.Context(ctx)

	scale := float64(OutputWidth) / float64(surf.Width)
	err = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             surf.Width,
		Height:            surf.Height,
		DeviceScaleFactor: scale,
	})
	if err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := p.SetDocumentContent(surf.Document); err != nil {
		return nil, fmt.Errorf("load surface: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	if err := settle(ctx, r.cfg.Settle); err != nil {
		return nil, err
	}

	el, err := p.Element(surf.Selector())
	if err != nil {
		return nil, fmt.Errorf("find surface: %w", err)
	}
	shape, err := el.Shape()
	if err != nil {
		return nil, fmt.Errorf("surface box: %w", err)
	}
	box := shape.Box()
	if box == nil {
		return nil, fmt.Errorf("surface %s has no layout box", surf.ID)
	}

	// The clip is in CSS pixels and Chrome applies the device scale factor,
	// so a 600x800 clip comes back at the output size.
	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      box.X,
			Y:      box.Y,
			Width:  float64(surf.Width),
			Height: float64(surf.Height),
			Scale:  1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	img, err := DecodePNG(data)
	if err != nil {
		return nil, err
	}
	if err := checkCaptureSize(img, surf, scale); err != nil {
		return nil, err
	}
	return img, nil
}

// connect returns the shared browser, launching or dialing it if needed.
func (r *Rod) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).
			Set("disable-gpu").
			Set("hide-scrollbars")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.cfg.Logger.Info("rod: launched local chrome", "url", wsURL)
	} else {
		r.cfg.Logger.Info("rod: connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		r.killLocked()
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	r.browser = b
	return b, nil
}

// reset drops the browser after a failure that suggests it is gone, so the
// next capture reconnects.
func (r *Rod) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		_ = r.browser.Close()
		r.browser = nil
	}
	r.killLocked()
}

func (r *Rod) killLocked() {
	if r.lnch != nil {
		r.lnch.Kill()
		r.lnch = nil
	}
}

// Close shuts the browser down.
func (r *Rod) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.killLocked()
	if err != nil {
		return fmt.Errorf("rod: close browser: %w", err)
	}
	return nil
}
