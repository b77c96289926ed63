// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureLogs routes the default slog logger into a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLogger(t *testing.T) {
	t.Run("records method path status and size", func(t *testing.T) {
		logs := captureLogs(t)
		handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("created"))
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/generations", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Errorf("status: got %d, want 201", rr.Code)
		}
		out := logs.String()
		for _, want := range []string{"method=POST", "path=/api/generations", "status=201", "bytes=7", "level=INFO"} {
			if !strings.Contains(out, want) {
				t.Errorf("log %q missing %q", out, want)
			}
		}
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		logs := captureLogs(t)
		handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/generate/slides", nil))

		if !strings.Contains(logs.String(), "level=ERROR") {
			t.Errorf("log = %q, want error level", logs.String())
		}
	})

	t.Run("handles write without explicit WriteHeader", func(t *testing.T) {
		captureLogs(t)
		handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if rr.Code != http.StatusOK || rr.Body.String() != "hello" {
			t.Errorf("got %d %q, want 200 hello", rr.Code, rr.Body.String())
		}
	})
}

func TestResponseWriter(t *testing.T) {
	t.Run("WriteHeader only captures first call", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusNotFound)
		rw.WriteHeader(http.StatusInternalServerError)

		if rw.statusCode != http.StatusNotFound {
			t.Errorf("statusCode: got %d, want 404 (first call)", rw.statusCode)
		}
	})

	t.Run("Write counts bytes across calls", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		rw.Write([]byte("abc"))
		rw.Write([]byte("de"))

		if rw.bytes != 5 || rw.statusCode != http.StatusOK || !rw.written {
			t.Errorf("got bytes=%d status=%d written=%v", rw.bytes, rw.statusCode, rw.written)
		}
	})

	t.Run("Flush reaches the recorder", func(t *testing.T) {
		rr := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: rr, statusCode: http.StatusOK}

		rw.Flush()

		if !rr.Flushed {
			t.Error("underlying recorder was not flushed")
		}
	})
}
