// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"xhsstudio/internal/ai"
	"xhsstudio/internal/models"
)

// maxProductImages bounds the reference photos sent with a product prompt.
const maxProductImages = 6

// RequestResolver turns a user's stored configuration into a generation
// request. *config.Config satisfies it.
type RequestResolver interface {
	Resolve(app *models.AppConfig, keys map[models.Service]string) ai.Request
}

// Generate groups the content generation handlers. Every call resolves the
// caller's provider selection and credentials before touching a provider.
type Generate struct {
	registry *ai.Registry
	resolver RequestResolver
	configs  AppConfigRepo
	keys     APIKeyRepo
}

// NewGenerate creates a new Generate handler group.
func NewGenerate(registry *ai.Registry, resolver RequestResolver, configs AppConfigRepo, keys APIKeyRepo) *Generate {
	return &Generate{registry: registry, resolver: resolver, configs: configs, keys: keys}
}

// client resolves the caller's configuration into an ai.Client.
func (g *Generate) client(uid uuid.UUID) (*ai.Client, error) {
	app, err := g.configs.Get(uid)
	if err != nil {
		return nil, fmt.Errorf("load app config: %w", err)
	}
	keys, err := g.keys.Map(uid)
	if err != nil {
		return nil, fmt.Errorf("load api keys: %w", err)
	}
	return g.registry.For(g.resolver.Resolve(app, keys)), nil
}

// start authenticates the caller and builds their client, writing the
// error response itself when it cannot.
func (g *Generate) start(w http.ResponseWriter, r *http.Request) (*ai.Client, uuid.UUID, bool) {
	uid, ok := userID(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	c, err := g.client(uid)
	if err != nil {
		slog.Error("resolve generation config failed", "error", err, "user_id", uid)
		writeError(w, http.StatusInternalServerError, "Failed to load configuration")
		return nil, uuid.Nil, false
	}
	return c, uid, true
}

type slidesRequest struct {
	RefImage string       `json:"refImage"`
	Style    models.Style `json:"style"`
	models.EditorContent
}

// Slides generates a slide deck from the editor content, styled after the
// optional reference image.
func (g *Generate) Slides(w http.ResponseWriter, r *http.Request) {
	var req slidesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Style == "" {
		req.Style = models.DefaultEditorSettings().Style
	}
	if !req.Style.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown style %q", req.Style))
		return
	}
	if msg := validatePrompt("Main title", req.MainTitle); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.BodyText != "" {
		if msg := validatePrompt("Body text", req.BodyText); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}

	c, uid, ok := g.start(w, r)
	if !ok {
		return
	}

	start := time.Now()
	slides, err := c.AnalyzeAndGenerateSlides(r.Context(), req.RefImage, req.Prompt(req.Style))
	if err != nil {
		writeFailure(w, r, "Failed to generate slides", err)
		return
	}

	slog.Info("slides generated", "user_id", uid, "count", len(slides), "style", req.Style,
		"duration", time.Since(start).String())
	writeJSON(w, http.StatusOK, map[string]any{"slides": slides})
}

type productCopyRequest struct {
	ProductInfo   string   `json:"productInfo"`
	ProductImages []string `json:"productImages"`
	ImageCount    int      `json:"imageCount"`
}

// ProductCopy writes a product recommendation post and, when imageCount is
// set, renders that many of the suggested images.
func (g *Generate) ProductCopy(w http.ResponseWriter, r *http.Request) {
	var req productCopyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validatePrompt("Product info", req.ProductInfo); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.ProductImages) > maxProductImages {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many product images (max %d)", maxProductImages))
		return
	}
	if req.ImageCount < 0 || req.ImageCount > maxImageCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("imageCount must be between 0 and %d", maxImageCount))
		return
	}

	c, uid, ok := g.start(w, r)
	if !ok {
		return
	}

	out, err := c.GenerateProductCopy(r.Context(), req.ProductInfo, req.ProductImages)
	if err != nil {
		writeFailure(w, r, "Failed to generate product copy", err)
		return
	}

	images := []string{}
	if req.ImageCount > 0 {
		images, err = c.GenerateSuggestedImages(r.Context(), out.SuggestedImages, req.ImageCount)
		if err != nil {
			writeFailure(w, r, "Failed to generate product images", err)
			return
		}
	}

	slog.Info("product copy generated", "user_id", uid, "images", len(images))
	writeJSON(w, http.StatusOK, map[string]any{"copy": out, "images": images})
}

type articleRequest struct {
	Title    string `json:"title"`
	Audience string `json:"audience"`
}

// Article writes a long-form markdown article and its HTML rendering.
func (g *Generate) Article(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validatePrompt("Title", req.Title); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, uid, ok := g.start(w, r)
	if !ok {
		return
	}

	article, err := c.GenerateArticle(r.Context(), req.Title, req.Audience)
	if err != nil {
		writeFailure(w, r, "Failed to generate article", err)
		return
	}

	slog.Info("article generated", "user_id", uid, "title", article.Title)
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
}

type wechatRequest struct {
	Topic string `json:"topic"`
}

// WechatArticle runs the article publishing workflow. The call blocks for
// as long as the workflow runs, bounded by the poll budget.
func (g *Generate) WechatArticle(w http.ResponseWriter, r *http.Request) {
	var req wechatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validatePrompt("Topic", req.Topic); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, uid, ok := g.start(w, r)
	if !ok {
		return
	}

	start := time.Now()
	article, err := c.GenerateWechatArticle(r.Context(), req.Topic)
	if err != nil {
		writeFailure(w, r, "Failed to generate WeChat article", err)
		return
	}

	slog.Info("wechat article generated", "user_id", uid, "title", article.Title,
		"duration", time.Since(start).String())
	writeJSON(w, http.StatusOK, map[string]any{"article": article})
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

// Image generates a single 3:4 image.
func (g *Generate) Image(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validatePrompt("Prompt", req.Prompt); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, uid, ok := g.start(w, r)
	if !ok {
		return
	}

	uri, err := c.GenerateImage(r.Context(), req.Prompt+ai.ImagePromptSuffix)
	if err != nil {
		writeFailure(w, r, "Failed to generate image", err)
		return
	}

	slog.Info("image generated", "user_id", uid, "bytes", len(uri))
	writeJSON(w, http.StatusOK, map[string]string{"image": uri})
}
