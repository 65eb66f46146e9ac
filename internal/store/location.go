package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

// LocationStore is append-only; points are never updated.
type LocationStore struct {
	db *sql.DB
}

func NewLocationStore(db *sql.DB) *LocationStore {
	return &LocationStore{db: db}
}

const locationCols = `id, child_id, latitude, longitude, accuracy, recorded_at`

func scanLocation(scanner interface{ Scan(...any) error }) (*model.LocationPoint, error) {
	var p model.LocationPoint
	var acc sql.NullFloat64
	if err := scanner.Scan(&p.ID, &p.ChildID, &p.Latitude, &p.Longitude, &acc, &p.RecordedAt); err != nil {
		return nil, err
	}
	if acc.Valid {
		p.Accuracy = &acc.Float64
	}
	return &p, nil
}

func (s *LocationStore) Append(childID int64, lat, lon float64, accuracy *float64, recordedAt time.Time) (*model.LocationPoint, error) {
	var acc any
	if accuracy != nil {
		acc = *accuracy
	}
	result, err := s.db.Exec(
		`INSERT INTO location_points (child_id, latitude, longitude, accuracy, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		childID, lat, lon, acc, recordedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert location point: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.LocationPoint{
		ID:         id,
		ChildID:    childID,
		Latitude:   lat,
		Longitude:  lon,
		Accuracy:   accuracy,
		RecordedAt: recordedAt.UTC(),
	}, nil
}

// Latest returns up to limit points for a child, newest first.
func (s *LocationStore) Latest(childID int64, limit int) ([]model.LocationPoint, error) {
	rows, err := s.db.Query(
		`SELECT `+locationCols+` FROM location_points WHERE child_id = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("latest location points: %w", err)
	}
	defer rows.Close()
	return scanLocations(rows)
}

// ListSince returns a child's points recorded at or after since, oldest first.
func (s *LocationStore) ListSince(childID int64, since time.Time) ([]model.LocationPoint, error) {
	rows, err := s.db.Query(
		`SELECT `+locationCols+` FROM location_points WHERE child_id = ? AND recorded_at >= ? ORDER BY recorded_at, id`,
		childID, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list location points: %w", err)
	}
	defer rows.Close()
	return scanLocations(rows)
}

func scanLocations(rows *sql.Rows) ([]model.LocationPoint, error) {
	var points []model.LocationPoint
	for rows.Next() {
		p, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location point: %w", err)
		}
		points = append(points, *p)
	}
	return points, rows.Err()
}
