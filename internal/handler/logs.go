package handler

import (
	"net/http"
	"os"
)

// LogCleaner truncates the application log.
type LogCleaner interface {
	Path() string
	CleanLogs()
}

// ShowLogsHandler serves the application log file as text/plain.
func ShowLogsHandler(logs LogCleaner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logs.Path())
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, filePath string) {
	if filePath == "" {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Logging to file is disabled"))
		return
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filePath))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates the application log.
func ClearLogsHandler(logs LogCleaner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		logs.CleanLogs()
		w.WriteHeader(http.StatusNoContent)
	}
}
