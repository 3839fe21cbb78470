package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"trackserver/internal/model"
)

const sightingColumns = `id, session_id, class_id, class_label, track_id, confidence,
	x1, y1, x2, y2, frame_width, frame_height, image_path, label_path, timestamp`

const insertSighting = `
	INSERT OR IGNORE INTO sightings (session_id, class_id, class_label, track_id, confidence,
		x1, y1, x2, y2, frame_width, frame_height, image_path, label_path, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SightingRepository implements repository.SightingRepository for SQLite.
type SightingRepository struct {
	db *DB
}

// NewSightingRepository creates a new SQLite sighting repository.
func NewSightingRepository(db *DB) *SightingRepository {
	return &SightingRepository{db: db}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func sightingArgs(s *model.Sighting) []interface{} {
	return []interface{}{
		s.SessionID, s.ClassID, s.ClassLabel, s.TrackID, s.Confidence,
		s.BBox.X1, s.BBox.Y1, s.BBox.X2, s.BBox.Y2, s.FrameWidth, s.FrameHeight,
		nullString(s.ImagePath), nullString(s.LabelPath), s.Timestamp.UTC(),
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSighting(row scanner) (model.Sighting, error) {
	var s model.Sighting
	var imagePath, labelPath sql.NullString
	err := row.Scan(&s.ID, &s.SessionID, &s.ClassID, &s.ClassLabel, &s.TrackID, &s.Confidence,
		&s.BBox.X1, &s.BBox.Y1, &s.BBox.X2, &s.BBox.Y2, &s.FrameWidth, &s.FrameHeight,
		&imagePath, &labelPath, &s.Timestamp)
	s.ImagePath = imagePath.String
	s.LabelPath = labelPath.String
	return s, err
}

// Insert adds a sighting. A sighting whose label file is already cataloged is ignored and 0 is returned.
func (r *SightingRepository) Insert(s *model.Sighting) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertSighting, sightingArgs(s)...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sighting: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// InsertBatch adds multiple sightings in a single transaction and returns how many were new.
func (r *SightingRepository) InsertBatch(sightings []model.Sighting) (int, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertSighting)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range sightings {
		result, err := stmt.Exec(sightingArgs(&sightings[i])...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert sighting: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// RecordSighting stores a newly recorded object.
func (r *SightingRepository) RecordSighting(ctx context.Context, s model.Sighting) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.Insert(&s)
	return err
}

// GetByID retrieves a sighting by its ID.
func (r *SightingRepository) GetByID(id int64) (*model.Sighting, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	s, err := scanSighting(r.db.Conn().QueryRow(`SELECT `+sightingColumns+` FROM sightings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sighting: %w", err)
	}
	return &s, nil
}

func whereClause(filter *model.SightingFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.ClassLabel != "" {
		query += " AND class_label = ?"
		args = append(args, filter.ClassLabel)
	}

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}

	if !filter.StartDate.IsZero() {
		query += " AND DATE(timestamp) >= DATE(?)"
		args = append(args, filter.StartDate.UTC())
	}

	if !filter.EndDate.IsZero() {
		query += " AND DATE(timestamp) <= DATE(?)"
		args = append(args, filter.EndDate.UTC())
	}

	return query, args
}

// GetAll retrieves sightings based on filter criteria, newest first.
func (r *SightingRepository) GetAll(filter *model.SightingFilter) ([]model.Sighting, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT ` + sightingColumns + ` FROM sightings` + where + ` ORDER BY timestamp DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	sightings := []model.Sighting{}
	for rows.Next() {
		s, err := scanSighting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sightings = append(sightings, s)
	}
	return sightings, rows.Err()
}

// GetTotalCount returns the total count of sightings matching the filter.
func (r *SightingRepository) GetTotalCount(filter *model.SightingFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM sightings`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sightings: %w", err)
	}
	return count, nil
}

// GetClassCounts returns the number of sightings per class label.
func (r *SightingRepository) GetClassCounts() (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()
	return r.classCounts()
}

func (r *SightingRepository) classCounts() (map[string]int, error) {
	rows, err := r.db.Conn().Query(`SELECT class_label, COUNT(*) FROM sightings GROUP BY class_label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query class counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan class count: %w", err)
		}
		counts[label] = count
	}
	return counts, rows.Err()
}

// GetStats returns statistics about the catalog.
func (r *SightingRepository) GetStats() (*model.SightingStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.SightingStats{}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM sightings`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count sightings: %w", err)
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(DISTINCT session_id) FROM sightings`).Scan(&stats.Sessions); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	counts, err := r.classCounts()
	if err != nil {
		return nil, err
	}
	stats.ClassCounts = counts

	return stats, nil
}

// DeleteAll removes every sighting. Files on disk are kept.
func (r *SightingRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM sightings`); err != nil {
		return fmt.Errorf("failed to delete sightings: %w", err)
	}
	return nil
}
