package repository

import (
	"context"

	"trackserver/internal/model"
)

// SightingRepository defines the interface for the sightings catalog.
type SightingRepository interface {
	// Create operations
	Insert(s *model.Sighting) (int64, error)
	InsertBatch(sightings []model.Sighting) (int, error)
	RecordSighting(ctx context.Context, s model.Sighting) error

	// Read operations
	GetByID(id int64) (*model.Sighting, error)
	GetAll(filter *model.SightingFilter) ([]model.Sighting, error)
	GetTotalCount(filter *model.SightingFilter) (int, error)
	GetClassCounts() (map[string]int, error)
	GetStats() (*model.SightingStats, error)

	// Delete operations
	DeleteAll() error
}
