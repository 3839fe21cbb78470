package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"trackserver/internal/logger"
	"trackserver/internal/model"
	"trackserver/internal/service"
)

// StreamController is the control boundary of a stream session.
type StreamController interface {
	Start(descriptor string) (string, error)
	Stop() bool
	Running() bool
	Status() model.StreamStatus
	LatestJPEG() []byte
	Reset() error
	DefaultSource() string
}

// Response is the body of control endpoints.
type Response struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type startRequest struct {
	Source string `json:"source"`
}

func writeJSON(w http.ResponseWriter, logger logger.Interface, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	return false
}

// StatusHandler returns the latest stream status.
func StatusHandler(manager StreamController, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, manager.Status())
	}
}

// SnapshotHandler serves the latest annotated frame as a single JPEG.
func SnapshotHandler(manager StreamController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jpeg := manager.LatestJPEG()
		if len(jpeg) == 0 {
			http.Error(w, "No frame available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(jpeg)))
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(jpeg)
	}
}

// StartStreamHandler starts a session on the requested source. An empty body or
// source selects the default source; a running session is replaced.
func StartStreamHandler(manager StreamController, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, logger, http.StatusBadRequest, Response{Status: "error", Message: "Invalid request body"})
			return
		}

		sessionID, err := manager.Start(req.Source)
		if err != nil {
			logger.Error("Failed to start stream: %v", err)
			writeJSON(w, logger, http.StatusServiceUnavailable, Response{Status: "error", Message: err.Error()})
			return
		}

		source := req.Source
		if source == "" {
			source = manager.DefaultSource()
		}
		writeJSON(w, logger, http.StatusOK, Response{
			Status:    "success",
			Message:   "Stream started with source: " + source,
			SessionID: sessionID,
		})
	}
}

// StopStreamHandler stops the running session. Stopping a stopped stream succeeds.
func StopStreamHandler(manager StreamController, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		message := "Stream stopped"
		if !manager.Stop() {
			message = "No active stream to stop"
		}
		writeJSON(w, logger, http.StatusOK, Response{Status: "success", Message: message})
	}
}

// ResetHandler clears the seen objects. Rejected with 409 while a stream is running.
func ResetHandler(manager StreamController, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		if err := manager.Reset(); err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, service.ErrStreamActive) {
				code = http.StatusConflict
			}
			writeJSON(w, logger, code, Response{Status: "error", Message: err.Error()})
			return
		}
		writeJSON(w, logger, http.StatusOK, Response{Status: "success", Message: "Seen objects cleared"})
	}
}
