// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package media prepares user-supplied reference images for multimodal
// model requests: it decodes PNG, JPEG, GIF or WebP input, bounds the long
// edge and re-encodes as JPEG so every inline payload has a known type and
// a predictable size.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/webp"
)

const (
	// MaxEdge is the longest side, in pixels, of a prepared image.
	MaxEdge = 1536

	// JPEGQuality is the quality prepared images are encoded at.
	JPEGQuality = 88

	// MaxInputBytes rejects absurdly large uploads before decoding.
	MaxInputBytes = 20 << 20
)

// ErrTooLarge is returned for inputs over MaxInputBytes.
var ErrTooLarge = errors.New("media: image too large")

// Inline is an image ready to attach to a model request.
type Inline struct {
	MIMEType string
	Data     []byte
}

// Base64 returns the standard base64 encoding of Data.
func (in Inline) Base64() string {
	return base64.StdEncoding.EncodeToString(in.Data)
}

// DataURI returns Data as a data URI.
func (in Inline) DataURI() string {
	return dataurl.New(in.Data, in.MIMEType).String()
}

// Decode parses a data URI or bare base64 string into raw bytes.
func Decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		du, err := dataurl.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("media: decode data uri: %w", err)
		}
		return du.Data, nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("media: decode base64: %w", err)
	}
	return data, nil
}

// Prepare decodes raw image bytes, fits them within MaxEdge and returns a
// JPEG. Transparent areas are flattened onto white.
func Prepare(raw []byte) (Inline, error) {
	if len(raw) > MaxInputBytes {
		return Inline{}, ErrTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Inline{}, fmt.Errorf("media: decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > MaxEdge || b.Dy() > MaxEdge {
		img = imaging.Fit(img, MaxEdge, MaxEdge, imaging.Lanczos)
	}

	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return Inline{}, fmt.Errorf("media: encode %s as jpeg: %w", format, err)
	}
	return Inline{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// PrepareString is Decode followed by Prepare. An empty string yields a
// zero Inline and no error.
func PrepareString(s string) (Inline, error) {
	if strings.TrimSpace(s) == "" {
		return Inline{}, nil
	}
	raw, err := Decode(s)
	if err != nil {
		return Inline{}, err
	}
	return Prepare(raw)
}

// PrepareAll prepares every non-empty string in order.
func PrepareAll(images []string) ([]Inline, error) {
	out := make([]Inline, 0, len(images))
	for i, s := range images {
		in, err := PrepareString(s)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		if in.Data != nil {
			out = append(out, in)
		}
	}
	return out, nil
}
