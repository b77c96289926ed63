// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package export packages rasterized images for download: a ZIP archive of
// named images in caller order, or a single image with a timestamped name.
// It also drives slide-deck exports, staging and rasterizing each slide in
// turn.
package export

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/vincent-petithory/dataurl"
)

const (
	// DefaultArchiveName is used when the caller gives no archive name.
	DefaultArchiveName = "xhs-content-package"

	// DefaultSinglePrefix names single-image downloads.
	DefaultSinglePrefix = "xhs-image"
)

// ErrNoEntries is returned when asked to package nothing.
var ErrNoEntries = errors.New("export: no entries")

// Entry is one file in an archive. Data is a data URI or bare base64.
type Entry struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// DecodeData returns the bytes and media type behind a data URI. A value
// without the data: scheme is taken as bare base64 PNG.
func DecodeData(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		du, err := dataurl.DecodeString(s)
		if err != nil {
			return nil, "", fmt.Errorf("decode data uri: %w", err)
		}
		return du.Data, du.MediaType.ContentType(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, "image/png", nil
}

// Package writes a ZIP archive with one file per entry, in order. Names are
// used as given; the caller keeps them unique.
func Package(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}

	zw := zip.NewWriter(w)
	modified := time.Now()
	for i, e := range entries {
		data, _, err := DecodeData(e.Data)
		if err != nil {
			return fmt.Errorf("export: entry %d (%s): %w", i, e.Name, err)
		}
		if err := writeEntry(zw, e.Name, data, modified); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("export: close archive: %w", err)
	}
	return nil
}

// PackageBytes is Package into memory.
func PackageBytes(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Package(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	// Images are already compressed; store them as-is.
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("export: create entry %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("export: write entry %s: %w", name, err)
	}
	return nil
}

// ArchiveName returns the download file name for an archive base name.
func ArchiveName(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultArchiveName
	}
	return base + ".zip"
}

// SingleFileName returns "<prefix>-<unix millis>.png".
func SingleFileName(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultSinglePrefix
	}
	return prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10) + ".png"
}

// SlideFileName returns the archive name of the i-th (zero-based) slide.
func SlideFileName(i int) string {
	return "slide-" + strconv.Itoa(i+1) + ".png"
}
