// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"xhsstudio/internal/markdown"
	"xhsstudio/internal/media"
	"xhsstudio/internal/models"
	"xhsstudio/internal/schema"
)

// DefaultWechatTitle is used when the workflow returns no article title.
const DefaultWechatTitle = "微信公众号推文"

var (
	htmlFence = regexp.MustCompile("```html\\n([\\s\\S]*?)\\n```")
	jsonFence = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n(.*)\\n```$")
)

// Client runs generation operations for one request. Providers are built
// on demand from the request's resolved configuration.
type Client struct {
	registry *Registry
	req      Request
}

func (c *Client) textProvider(ctx context.Context) (Provider, error) {
	switch c.req.Text.Provider {
	case models.ProviderGemini, models.ProviderDeepSeek:
		return c.registry.build(ctx, c.req.Text, c.req.Credentials)
	case models.ProviderDify:
		return nil, fmt.Errorf("ai: %s cannot serve structured text", c.req.Text.Provider)
	default:
		return nil, fmt.Errorf("ai: unknown text provider %q", c.req.Text.Provider)
	}
}

// AnalyzeAndGenerateSlides asks the text model for a 3-5 slide deck in the
// style of refImage (a data URI or base64 string, may be empty) from text.
func (c *Client) AnalyzeAndGenerateSlides(ctx context.Context, refImage, text string) ([]models.Slide, error) {
	var images []media.Inline
	if refImage != "" {
		in, err := media.PrepareString(refImage)
		if err != nil {
			return nil, fmt.Errorf("reference image: %w", err)
		}
		images = append(images, in)
	}

	p, err := c.textProvider(ctx)
	if err != nil {
		return nil, err
	}

	// JSON-object mode cannot return a bare array.
	wrapped := c.req.Text.Provider == models.ProviderDeepSeek
	raw, err := p.GenerateJSON(ctx, Prompt{
		System: slidesSystem,
		User:   slidesPrompt(text, wrapped),
		Images: images,
		Kind:   schema.KindSlideDeck,
	})
	if err != nil {
		return nil, fmt.Errorf("generate slides: %w", err)
	}

	var slides []models.Slide
	if err := schema.Decode(schema.KindSlideDeck, unwrapSlides(cleanJSON(raw)), &slides); err != nil {
		return nil, fmt.Errorf("generate slides: %w", err)
	}
	return slides, nil
}

// GenerateProductCopy writes a product recommendation post. images are
// optional product photos.
func (c *Client) GenerateProductCopy(ctx context.Context, info string, images []string) (*models.ProductCopy, error) {
	inline, err := media.PrepareAll(images)
	if err != nil {
		return nil, fmt.Errorf("product images: %w", err)
	}

	p, err := c.textProvider(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := p.GenerateJSON(ctx, Prompt{
		System: productSystem,
		User:   productPrompt(info),
		Images: inline,
		Kind:   schema.KindProductCopy,
	})
	if err != nil {
		return nil, fmt.Errorf("generate product copy: %w", err)
	}

	var out models.ProductCopy
	if err := schema.Decode(schema.KindProductCopy, cleanJSON(raw), &out); err != nil {
		return nil, fmt.Errorf("generate product copy: %w", err)
	}
	return &out, nil
}

// GenerateArticle writes a Markdown article for audience and renders it.
func (c *Client) GenerateArticle(ctx context.Context, title, audience string) (*models.Article, error) {
	p, err := c.textProvider(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := p.GenerateJSON(ctx, Prompt{
		System: articleSystem,
		User:   articlePrompt(title, audience),
		Kind:   schema.KindArticle,
	})
	if err != nil {
		return nil, fmt.Errorf("generate article: %w", err)
	}

	var out models.Article
	if err := schema.Decode(schema.KindArticle, cleanJSON(raw), &out); err != nil {
		return nil, fmt.Errorf("generate article: %w", err)
	}

	out.Content = markdown.StripFence(out.Content)
	html, err := markdown.ToHTML(out.Content)
	if err != nil {
		return nil, fmt.Errorf("render article: %w", err)
	}
	out.HTML = html
	return &out, nil
}

// GenerateImage produces one 3:4 image and returns it as a data URI.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	switch c.req.Image.Provider {
	case models.ProviderGemini, models.ProviderDeepSeek:
	default:
		return "", fmt.Errorf("ai: %q: %w", c.req.Image.Provider, ErrImageUnsupported)
	}

	p, err := c.registry.build(ctx, c.req.Image, c.req.Credentials)
	if err != nil {
		return "", err
	}
	gen, ok := p.(ImageGenerator)
	if !ok {
		return "", fmt.Errorf("ai: %s: %w", p.Name(), ErrImageUnsupported)
	}

	uri, err := gen.GenerateImage(ctx, prompt, ImageAspectRatio)
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	return uri, nil
}

// GenerateSuggestedImages renders the first n suggested prompts in order.
// Responses without image data are skipped; any other failure aborts.
func (c *Client) GenerateSuggestedImages(ctx context.Context, prompts []string, n int) ([]string, error) {
	if n > len(prompts) {
		n = len(prompts)
	}

	out := make([]string, 0, n)
	for i, prompt := range prompts[:max(n, 0)] {
		uri, err := c.GenerateImage(ctx, prompt+ImagePromptSuffix)
		if errors.Is(err, ErrNoImage) {
			slog.Warn("suggested image skipped", "index", i, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("suggested image %d: %w", i, err)
		}
		out = append(out, uri)
	}
	return out, nil
}

// GenerateWechatArticle runs the article workflow for topic.
func (c *Client) GenerateWechatArticle(ctx context.Context, topic string) (*models.WechatArticle, error) {
	cfg := c.req.Credentials.For(models.ProviderDify)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: %w for %s", ErrMissingCredentials, models.ProviderDify)
	}

	outputs, err := newDifyWorkflow(cfg, c.registry.workflow).Run(ctx, map[string]any{"user_input": topic})
	if err != nil {
		return nil, fmt.Errorf("wechat article: %w", err)
	}
	return wechatArticleFromOutputs(outputs), nil
}

// wechatArticleFromOutputs maps the workflow's final outputs.
func wechatArticleFromOutputs(outputs map[string]any) *models.WechatArticle {
	out := &models.WechatArticle{Title: DefaultWechatTitle}

	if s, ok := outputs["article_info"].(string); ok && strings.TrimSpace(s) != "" {
		out.Title = s
	}

	if banners, ok := outputs["banner_src"].([]any); ok && len(banners) > 0 {
		if first, ok := banners[0].(map[string]any); ok {
			out.CoverImage, _ = first["remote_url"].(string)
		}
	}

	if code, ok := outputs["code"].(string); ok {
		out.HTMLContent = extractHTML(code)
	}

	switch tags := outputs["tags"].(type) {
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
				out.Tags = append(out.Tags, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(tags, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out.Tags = append(out.Tags, s)
			}
		}
	}
	return out
}

// extractHTML returns the body of the first ```html fence, or code verbatim.
func extractHTML(code string) string {
	if m := htmlFence.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return code
}

// cleanJSON trims whitespace and a wrapping ```json fence.
func cleanJSON(raw string) []byte {
	s := strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	return []byte(s)
}

// unwrapSlides returns the array held under "slides" when raw is an object.
// Anything else is returned unchanged for the validator to judge.
func unwrapSlides(raw []byte) []byte {
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var obj struct {
		Slides json.RawMessage `json:"slides"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || len(bytes.TrimSpace(obj.Slides)) == 0 {
		return raw
	}
	return obj.Slides
}
