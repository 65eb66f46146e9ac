package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type RoutineStore struct {
	db *sql.DB
}

func NewRoutineStore(db *sql.DB) *RoutineStore {
	return &RoutineStore{db: db}
}

const routineCols = `id, child_id, name, start_lat, start_lon, end_lat, end_lon, window_start, window_end, path, confidence, updated_at`

func scanRoutine(scanner interface{ Scan(...any) error }) (*model.LearnedRoutine, error) {
	var r model.LearnedRoutine
	var path string
	err := scanner.Scan(&r.ID, &r.ChildID, &r.Name, &r.Start.Latitude, &r.Start.Longitude,
		&r.End.Latitude, &r.End.Longitude, &r.WindowStart, &r.WindowEnd, &path, &r.Confidence, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(path), &r.Path); err != nil {
		return nil, fmt.Errorf("decode routine path: %w", err)
	}
	return &r, nil
}

// Upsert replaces the routine with the same child and name.
func (s *RoutineStore) Upsert(r model.LearnedRoutine) error {
	path, err := json.Marshal(r.Path)
	if err != nil {
		return fmt.Errorf("encode routine path: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO learned_routines (child_id, name, start_lat, start_lon, end_lat, end_lon, window_start, window_end, path, confidence, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(child_id, name) DO UPDATE SET
			start_lat = excluded.start_lat, start_lon = excluded.start_lon,
			end_lat = excluded.end_lat, end_lon = excluded.end_lon,
			window_start = excluded.window_start, window_end = excluded.window_end,
			path = excluded.path, confidence = excluded.confidence, updated_at = excluded.updated_at`,
		r.ChildID, r.Name, r.Start.Latitude, r.Start.Longitude, r.End.Latitude, r.End.Longitude,
		r.WindowStart, r.WindowEnd, string(path), r.Confidence, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert routine: %w", err)
	}
	return nil
}

func (s *RoutineStore) ListByChild(childID int64) ([]model.LearnedRoutine, error) {
	rows, err := s.db.Query(`SELECT `+routineCols+` FROM learned_routines WHERE child_id = ? ORDER BY name`, childID)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	defer rows.Close()

	var routines []model.LearnedRoutine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, *r)
	}
	return routines, rows.Err()
}
