// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package raster

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"xhsstudio/internal/render"
)

const (
	// DefaultFallbackScale is the pixel-density multiplier of the fallback
	// capture: a 600x800 surface is captured at 1800x2400.
	DefaultFallbackScale = 3

	captureID = "xhs-capture"
)

// ChromedpConfig configures the fallback backend.
type ChromedpConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty starts a local headless Chrome on first use.
	RemoteURL string

	// Scale is the capture density. Default: DefaultFallbackScale.
	Scale float64

	// Settle is the wait between preparing the clone and capturing.
	Settle time.Duration

	Logger *slog.Logger
}

func (c *ChromedpConfig) defaults() {
	if c.Scale <= 0 {
		c.Scale = DefaultFallbackScale
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Chromedp captures surfaces with chromedp. It takes a different route than
// the primary backend: the surface is cloned into a dedicated capture
// container, the centering fix-up is re-applied in the page, and the
// effective background color is resolved from computed style so a
// transparent surface comes out white.
type Chromedp struct {
	cfg ChromedpConfig

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewChromedp creates the backend. Chrome is started lazily.
func NewChromedp(cfg ChromedpConfig) *Chromedp {
	cfg.defaults()
	return &Chromedp{cfg: cfg}
}

// Name implements Backend.
func (c *Chromedp) Name() string { return "chromedp" }

// Capture implements Backend.
func (c *Chromedp) Capture(ctx context.Context, surf *render.Surface) (image.Image, error) {
	bctx, err := c.browser()
	if err != nil {
		return nil, err
	}

	// Each capture owns a tab; cancelling its context closes it.
	tabCtx, cancelTab := chromedp.NewContext(bctx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	script, err := prepareScript(surf)
	if err != nil {
		return nil, err
	}

	var (
		bg  string
		buf []byte
	)
	err = chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(surf.Width), int64(surf.Height), c.cfg.Scale, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, surf.Document).Do(ctx)
		}),
		chromedp.WaitReady(surf.Selector(), chromedp.ByQuery),
		chromedp.Evaluate(script, &bg),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return settle(ctx, c.cfg.Settle)
		}),
		chromedp.Screenshot("#"+captureID, &buf, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	c.cfg.Logger.Debug("chromedp: captured", "surface", surf.Title, "background", bg, "bytes", len(buf))
	img, err := DecodePNG(buf)
	if err != nil {
		return nil, err
	}
	if err := checkCaptureSize(img, surf, c.cfg.Scale); err != nil {
		return nil, err
	}
	return img, nil
}

// prepareScript builds the in-page preparation step. The surface is moved
// into a capture container pinned to the page origin at the surface's
// logical size; the clone stays laid out and visible so its styles apply.
func prepareScript(surf *render.Surface) (string, error) {
	args, err := json.Marshal([]any{
		surf.ID,
		captureID,
		render.CenterFixDeclaration(surf.CenterOffset),
		surf.Width,
		surf.Height,
	})
	if err != nil {
		return "", fmt.Errorf("encode prepare args: %w", err)
	}

	return `(function(id, captureId, fix, w, h) {
  var src = document.getElementById(id);
  if (!src) { throw new Error("surface " + id + " not found"); }
  var box = document.getElementById(captureId);
  if (!box) {
    box = document.createElement("div");
    box.id = captureId;
    document.body.appendChild(box);
  }
  box.style.cssText = "position:absolute;left:0;top:0;margin:0;padding:0;overflow:hidden;" +
    "width:" + w + "px;height:" + h + "px;";
  var clone = src.cloneNode(true);
  src.parentNode.removeChild(src);
  box.innerHTML = "";
  box.appendChild(clone);
  clone.querySelectorAll(".items-center").forEach(function(el) {
    var s = el.getAttribute("style") || "";
    if (s.indexOf(fix) === -1) {
      s = s.replace(/[;\s]+$/, "");
      el.setAttribute("style", s ? s + "; " + fix : fix);
    }
  });
  var bg = window.getComputedStyle(clone).backgroundColor;
  if (!bg || bg === "transparent" || bg === "rgba(0, 0, 0, 0)") { bg = "#ffffff"; }
  box.style.backgroundColor = bg;
  return bg;
}).apply(null, ` + string(args) + `)`, nil
}

// browser returns the shared browser context, starting Chrome if needed.
func (c *Chromedp) browser() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx != nil && c.browserCtx.Err() == nil {
		return c.browserCtx, nil
	}

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if c.cfg.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), c.cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Headless,
			chromedp.DisableGPU,
			chromedp.Flag("hide-scrollbars", true),
		)
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	bctx, cancelBrowser := chromedp.NewContext(allocCtx)
	// Run with no actions starts the browser.
	if err := chromedp.Run(bctx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	c.cfg.Logger.Info("chromedp: browser started", "remote", c.cfg.RemoteURL != "")
	c.browserCtx, c.cancelBrowser, c.cancelAlloc = bctx, cancelBrowser, cancelAlloc
	return bctx, nil
}

// Close shuts the browser down.
func (c *Chromedp) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelBrowser != nil {
		c.cancelBrowser()
		c.cancelAlloc()
		c.browserCtx, c.cancelBrowser, c.cancelAlloc = nil, nil, nil
	}
	return nil
}
