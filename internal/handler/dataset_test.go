package handler

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/klauspost/compress/zip"

	"trackserver/internal/logger"
)

func TestDownloadDatasetHandler(t *testing.T) {
	mission := t.TempDir()
	if err := os.MkdirAll(filepath.Join(mission, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"person_7_1700000000.txt":     "0 0.5 0.5 0.1 0.1\n",
		"person_7_1700000000.jpg":     "jpeg",
		"nested/car_1_1700000001.txt": "2 0.5 0.5 0.1 0.1\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(mission, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	clk := clock.NewMock()
	clk.Set(time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local))
	datasets := map[string]Dataset{
		"mission":  {Dir: mission, ZipName: "mission_dataset"},
		"original": {Dir: filepath.Join(mission, "missing"), ZipName: "original_dataset"},
	}
	handler := DownloadDatasetHandler(datasets, clk, logger.Discard())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, DatasetPrefix+"mission", nil))

	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("Unexpected response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="mission_dataset_20261015_093000.zip"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("Invalid zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Open %s: %v", f.Name, err)
		}
		content, _ := io.ReadAll(rc)
		rc.Close()
		if string(content) != files[f.Name] {
			t.Errorf("%s content = %q", f.Name, content)
		}
	}
	sort.Strings(names)
	if len(names) != 3 || names[0] != "nested/car_1_1700000001.txt" {
		t.Errorf("Zip entries = %v", names)
	}

	tests := []struct {
		path         string
		expectedCode int
	}{
		{DatasetPrefix + "original", http.StatusNotFound},
		{DatasetPrefix + "weights", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.expectedCode {
			t.Errorf("%s: code = %d, expected %d", tt.path, rec.Code, tt.expectedCode)
		}
	}
}
