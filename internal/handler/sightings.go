package handler

import (
	"net/http"
	"strconv"
	"time"

	"trackserver/internal/logger"
	"trackserver/internal/model"
	"trackserver/internal/repository"
)

// SightingsData is the paged response of the sightings endpoint.
type SightingsData struct {
	Sightings   []model.Sighting `json:"sightings"`
	Length      int              `json:"length"`
	TotalPages  int              `json:"total_pages"`
	CurrentPage int              `json:"current_page"`
	Limit       int              `json:"limit"`
}

// GetSightingsHandler returns a filtered page of cataloged sightings, newest first.
func GetSightingsHandler(repo repository.SightingRepository, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.SightingFilter{
			ClassLabel: q.Get("class"),
			SessionID:  q.Get("session"),
			StartDate:  parseDate(q.Get("dateAfter")),
			EndDate:    parseDate(q.Get("dateBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		sightings, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying sightings: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting sightings: %v", err)
			totalCount = len(sightings)
		}

		writeJSON(w, logger, http.StatusOK, SightingsData{
			Sightings:   sightings,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// GetSightingStatsHandler returns catalog totals and per-class counts.
func GetSightingStatsHandler(repo repository.SightingRepository, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.GetStats()
		if err != nil {
			logger.Error("Error reading catalog stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, stats)
	}
}

// ViewSightingImageHandler serves the stored frame of the sighting given by the "id" query parameter.
func ViewSightingImageHandler(repo repository.SightingRepository, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "Valid id parameter is required", http.StatusBadRequest)
			return
		}

		sighting, err := repo.GetByID(id)
		if err != nil {
			logger.Error("Error loading sighting %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if sighting == nil || sighting.ImagePath == "" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, sighting.ImagePath)
	}
}

// ClearSightingsHandler empties the catalog. Stored files are kept.
func ClearSightingsHandler(repo repository.SightingRepository, logger logger.Interface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		if err := repo.DeleteAll(); err != nil {
			logger.Error("Error clearing catalog: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		logger.Info("Sightings catalog cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
