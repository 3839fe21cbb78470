package handler

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/klauspost/compress/zip"

	"trackserver/internal/config"
	"trackserver/internal/logger"
)

// DatasetPrefix is the route prefix of dataset downloads.
const DatasetPrefix = "/download-dataset/"

// Dataset is a directory offered for download.
type Dataset struct {
	Dir     string
	ZipName string
}

// DatasetsFromConfig maps download kinds to their directories.
func DatasetsFromConfig(cfg *config.Config) map[string]Dataset {
	return map[string]Dataset{
		"mission":          {Dir: cfg.StoragePath, ZipName: "mission_dataset"},
		"original":         {Dir: filepath.Join(cfg.DatasetsDir, "original"), ZipName: "original_dataset"},
		"object-detection": {Dir: cfg.ModelsDir, ZipName: "yolo_model"},
	}
}

// DownloadDatasetHandler streams the requested dataset directory as a zip attachment.
func DownloadDatasetHandler(datasets map[string]Dataset, clk clock.Clock, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := strings.Trim(strings.TrimPrefix(r.URL.Path, DatasetPrefix), "/")
		dataset, ok := datasets[kind]
		if !ok {
			writeJSON(w, logger, http.StatusBadRequest, Response{Status: "error", Message: "Invalid dataset type: " + kind})
			return
		}

		if info, err := os.Stat(dataset.Dir); err != nil || !info.IsDir() {
			writeJSON(w, logger, http.StatusNotFound, Response{Status: "error", Message: fmt.Sprintf("Source path %s does not exist", dataset.Dir)})
			return
		}

		name := fmt.Sprintf("%s_%s.zip", dataset.ZipName, clk.Now().Format("20060102_150405"))
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

		if err := ZipDir(w, dataset.Dir); err != nil {
			logger.Error("Error creating dataset zip %s: %v", name, err)
			return
		}
		logger.Info("Dataset %s downloaded as %s", kind, name)
	}
}

// ZipDir writes every regular file under root to w, named relative to root.
func ZipDir(w io.Writer, root string) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		dst, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to zip %s: %w", root, err)
	}
	return zw.Close()
}
