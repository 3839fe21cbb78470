package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"trackserver/internal/logger"
)

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="x.zip"`)
	})
	handler := CORSMiddleware(next)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:3000", true},
		{"http://localhost:8080", true},
		{"http://127.0.0.1:8080", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/download-dataset/mission", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin")
		if tt.allowed {
			if got != tt.origin || rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Errorf("%s: expected allowed with credentials, got origin %q", tt.origin, got)
			}
			if !strings.Contains(rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition") {
				t.Errorf("%s: Content-Disposition not exposed", tt.origin)
			}
		} else if got != "" {
			t.Errorf("%s: expected no CORS headers, got %q", tt.origin, got)
		}
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/start_stream", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("Preflight must not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:8080" {
		t.Errorf("Unexpected preflight headers %v", rec.Header())
	}
}

type recordingLogger struct {
	mu       sync.Mutex
	infos    []string
	warnings []string
}

func (l *recordingLogger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Error(format string, v ...interface{}) {}

func (l *recordingLogger) With(fields map[string]interface{}) logger.Interface { return l }

func TestLoggingMiddleware(t *testing.T) {
	log := &recordingLogger{}
	handler := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	if len(log.infos) != 1 || !strings.HasPrefix(log.infos[0], "GET /status -> 200") {
		t.Errorf("Unexpected info logs %v", log.infos)
	}
	if len(log.warnings) != 1 || !strings.HasPrefix(log.warnings[0], "GET /missing -> 404") {
		t.Errorf("Unexpected warning logs %v", log.warnings)
	}
}
