// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/vincent-petithory/dataurl"
	xdraw "golang.org/x/image/draw"
)

// Normalize resamples img to OutputWidth x OutputHeight. Both backends
// capture at 3:4, so this only changes density, never aspect.
func Normalize(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == OutputWidth && b.Dy() == OutputHeight && b.Min == (image.Point{}) {
		return img
	}

	dst := image.NewNRGBA(image.Rect(0, 0, OutputWidth, OutputHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Encode writes img as PNG and wraps it in a data URI.
func Encode(img image.Image) (Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("encode png: %w", err)
	}

	b := img.Bounds()
	return Image{
		DataURI: dataurl.New(buf.Bytes(), "image/png").String(),
		Width:   b.Dx(),
		Height:  b.Dy(),
		PNG:     buf.Bytes(),
	}, nil
}

// DecodePNG decodes a backend's screenshot bytes.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

var placeholder = sync.OnceValues(func() (Image, error) {
	return Encode(image.NewNRGBA(image.Rect(0, 0, OutputWidth, OutputHeight)))
})

// Placeholder returns a fully transparent image of the output size, used
// in place of a slide that could not be captured.
func Placeholder() (Image, error) {
	img, err := placeholder()
	if err != nil {
		return Image{}, err
	}
	img.Backend = "placeholder"
	img.Degraded = true
	return img, nil
}
