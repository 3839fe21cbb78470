package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

type fakeLogs struct {
	path    string
	cleaned int
}

func (l *fakeLogs) Path() string { return l.path }
func (l *fakeLogs) CleanLogs()   { l.cleaned++ }

func TestShowLogsHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := os.WriteFile(path, []byte("level=info msg=started\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		path         string
		expectedCode int
	}{
		{"existing", path, http.StatusOK},
		{"missing", filepath.Join(t.TempDir(), "none.log"), http.StatusNotFound},
		{"stdout only", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ShowLogsHandler(&fakeLogs{path: tt.path})(rec, httptest.NewRequest(http.MethodGet, "/logs", nil))
			if rec.Code != tt.expectedCode {
				t.Errorf("Code = %d, expected %d", rec.Code, tt.expectedCode)
			}
		})
	}
}

func TestClearLogsHandler(t *testing.T) {
	logs := &fakeLogs{}
	handler := ClearLogsHandler(logs)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/logs/clear", nil))
	if rec.Code != http.StatusMethodNotAllowed || logs.cleaned != 0 {
		t.Errorf("GET must not clear logs: %d, cleaned %d", rec.Code, logs.cleaned)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/logs/clear", nil))
	if rec.Code != http.StatusNoContent || logs.cleaned != 1 {
		t.Errorf("POST must clear logs: %d, cleaned %d", rec.Code, logs.cleaned)
	}
}
