// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"xhsstudio/internal/cache"
	"xhsstudio/internal/export"
	"xhsstudio/internal/models"
	"xhsstudio/internal/slug"
	"xhsstudio/internal/storage"
)

const zipContentType = "application/zip"

// SlideExporter renders a deck into images. *export.Exporter satisfies it.
type SlideExporter interface {
	ExportSlides(ctx context.Context, slides []models.Slide, settings models.EditorSettings, bgImage string) (*export.Result, error)
}

// ArchiveStore parks packaged downloads. *cache.ArchiveCache satisfies it.
type ArchiveStore interface {
	Put(ctx context.Context, a cache.Archive) (string, error)
	Take(ctx context.Context, id string) (*cache.Archive, error)
}

// Publisher uploads archives to object storage. *storage.Client satisfies it.
type Publisher interface {
	Bucket() string
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string) (string, error)
}

// Export groups the packaging and download handlers.
type Export struct {
	exporter  SlideExporter
	archives  ArchiveStore
	publisher Publisher
	exports   ExportRepo
	now       func() time.Time
}

// NewExport creates a new Export handler group.
func NewExport(exporter SlideExporter, archives ArchiveStore) *Export {
	return &Export{exporter: exporter, archives: archives, now: time.Now}
}

// WithPublisher enables publishing archives to object storage. Published
// archives are recorded in exports.
func (e *Export) WithPublisher(p Publisher, exports ExportRepo) *Export {
	e.publisher = p
	e.exports = exports
	return e
}

type exportSlidesRequest struct {
	Slides        []models.Slide         `json:"slides"`
	Settings      *models.EditorSettings `json:"settings"`
	BgImage       string                 `json:"bgImage"`
	ArchiveName   string                 `json:"archiveName"`
	Publish       bool                   `json:"publish"`
	IncludeImages bool                   `json:"includeImages"`
}

// archiveResponse tells the client where to fetch a packaged archive.
type archiveResponse struct {
	ID       string                `json:"id,omitempty"`
	Name     string                `json:"name"`
	URL      string                `json:"url"`
	Entries  int                   `json:"entries"`
	Failures []export.SlideFailure `json:"failures"`
	Images   []export.SlideImage   `json:"images,omitempty"`
}

// Slides stages, rasterizes and packages a slide deck. Slides that could
// not be captured are replaced by a placeholder and listed in failures.
func (e *Export) Slides(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req exportSlidesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Slides) == 0 {
		writeError(w, http.StatusBadRequest, "At least one slide is required")
		return
	}
	if len(req.Slides) > maxSlides {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Too many slides (max %d)", maxSlides))
		return
	}
	settings := models.DefaultEditorSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	if settings.Style != "" && !settings.Style.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown style %q", settings.Style))
		return
	}

	start := time.Now()
	res, err := e.exporter.ExportSlides(r.Context(), req.Slides, settings, req.BgImage)
	if err != nil {
		writeFailure(w, r, "Failed to export slides", err)
		return
	}
	data, err := export.PackageBytes(res.Entries())
	if err != nil {
		writeFailure(w, r, "Failed to package slides", err)
		return
	}

	out, err := e.deliver(r.Context(), uid, archiveName(req.ArchiveName), data, len(res.Images), req.Publish)
	if err != nil {
		writeFailure(w, r, "Failed to store archive", err)
		return
	}
	out.Failures = res.Failures
	if out.Failures == nil {
		out.Failures = []export.SlideFailure{}
	}
	if req.IncludeImages {
		out.Images = res.Images
	}

	slog.Info("slides exported", "user_id", uid, "slides", len(req.Slides),
		"failures", len(res.Failures), "bytes", len(data), "duration", time.Since(start).String())
	writeJSON(w, http.StatusOK, out)
}

type exportImagesRequest struct {
	Images      []export.Entry `json:"images"`
	ArchiveName string         `json:"archiveName"`
	Publish     bool           `json:"publish"`
}

// Images packages already-rendered images into one archive, in the order
// given. Names must be unique.
func (e *Export) Images(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}

	var req exportImagesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateEntries(req.Images); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	data, err := export.PackageBytes(req.Images)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := e.deliver(r.Context(), uid, archiveName(req.ArchiveName), data, len(req.Images), req.Publish)
	if err != nil {
		writeFailure(w, r, "Failed to store archive", err)
		return
	}
	out.Failures = []export.SlideFailure{}

	slog.Info("images exported", "user_id", uid, "images", len(req.Images), "bytes", len(data))
	writeJSON(w, http.StatusOK, out)
}

// Download serves a parked archive once. The id is the capability: a
// browser download cannot carry the bearer header.
func (e *Export) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "Export not found or already downloaded")
		return
	}

	a, err := e.archives.Take(r.Context(), id)
	if err != nil {
		slog.Error("take archive failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to load export")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "Export not found or already downloaded")
		return
	}

	serveAttachment(w, a.Name, a.ContentType, a.Data)
}

type singleRequest struct {
	Data   string `json:"data"`
	Prefix string `json:"prefix"`
}

// Single returns one image as a timestamped attachment.
func (e *Export) Single(w http.ResponseWriter, r *http.Request) {
	var req singleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Data) == "" {
		writeError(w, http.StatusBadRequest, "Image data is required")
		return
	}

	data, contentType, err := export.DecodeData(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := export.SingleFileName(slug.OrDefault(req.Prefix, export.DefaultSinglePrefix), e.now())
	serveAttachment(w, name, contentType, data)
}

// List returns the user's published archives with fresh download links.
func (e *Export) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if e.publisher == nil {
		writeJSON(w, http.StatusOK, map[string]any{"exports": []any{}})
		return
	}

	limit, offset := paging(r)
	items, err := e.exports.List(uid, limit, offset)
	if err != nil {
		slog.Error("list exports failed", "error", err, "user_id", uid)
		writeError(w, http.StatusInternalServerError, "Failed to get exports")
		return
	}

	type exportView struct {
		models.Export
		Size string `json:"size"`
		URL  string `json:"url"`
	}
	views := make([]exportView, 0, len(items))
	for _, item := range items {
		u, err := e.publisher.PresignedURL(r.Context(), item.S3Key)
		if err != nil {
			slog.Warn("presign export failed", "error", err, "id", item.ID)
		}
		views = append(views, exportView{Export: item, Size: item.HumanSize(), URL: u})
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": views})
}

// Delete removes a published archive and its record.
func (e *Export) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if e.publisher == nil {
		writeError(w, http.StatusNotFound, "Export not found")
		return
	}

	item, err := e.exports.Delete(uid, id)
	if err != nil {
		slog.Error("delete export failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete export")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Export not found")
		return
	}
	if err := e.publisher.Delete(r.Context(), item.S3Key); err != nil {
		slog.Warn("delete export object failed", "error", err, "key", item.S3Key)
	}

	slog.Info("export deleted", "id", id, "user_id", uid)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Export deleted successfully"})
}

// deliver parks the archive for a one-shot download, or publishes it to
// object storage when asked and available.
func (e *Export) deliver(ctx context.Context, uid uuid.UUID, name string, data []byte, entries int, publish bool) (*archiveResponse, error) {
	if publish && e.publisher != nil {
		return e.publish(ctx, uid, name, data, entries)
	}

	id, err := e.archives.Put(ctx, cache.Archive{Name: name, ContentType: zipContentType, Data: data})
	if err != nil {
		return nil, err
	}
	return &archiveResponse{ID: id, Name: name, URL: "/api/export/" + id, Entries: entries}, nil
}

func (e *Export) publish(ctx context.Context, uid uuid.UUID, name string, data []byte, entries int) (*archiveResponse, error) {
	key := storage.ArchiveKey(uid, name)
	if err := e.publisher.Upload(ctx, key, zipContentType, data); err != nil {
		return nil, err
	}

	rec, err := e.exports.Create(&models.Export{
		UserID:      uid,
		FileName:    name,
		ContentType: zipContentType,
		SizeBytes:   int64(len(data)),
		Entries:     entries,
		Bucket:      e.publisher.Bucket(),
		S3Key:       key,
	})
	if err != nil {
		if delErr := e.publisher.Delete(ctx, key); delErr != nil {
			slog.Warn("cleanup orphaned export failed", "error", delErr, "key", key)
		}
		return nil, fmt.Errorf("record export: %w", err)
	}

	u, err := e.publisher.PresignedURL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &archiveResponse{ID: rec.ID.String(), Name: name, URL: u, Entries: entries}, nil
}

func archiveName(base string) string {
	return export.ArchiveName(slug.OrDefault(base, export.DefaultArchiveName))
}

func validateEntries(entries []export.Entry) string {
	if len(entries) == 0 {
		return "At least one image is required"
	}
	if len(entries) > maxExportImages {
		return fmt.Sprintf("Too many images (max %d)", maxExportImages)
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		switch {
		case name == "":
			return fmt.Sprintf("Image %d has no name", i+1)
		case strings.Contains(name, "..") || strings.HasPrefix(name, "/") || strings.Contains(name, `\`):
			return fmt.Sprintf("Image name %q is not allowed", name)
		case seen[name]:
			return fmt.Sprintf("Duplicate image name %q", name)
		}
		seen[name] = true
	}
	return ""
}

func serveAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", contentDisposition(name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// contentDisposition builds an attachment header. Non-ASCII names are
// encoded in the RFC 2231 form.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
