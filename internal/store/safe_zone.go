package store

import (
	"database/sql"
	"fmt"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type SafeZoneStore struct {
	db *sql.DB
}

func NewSafeZoneStore(db *sql.DB) *SafeZoneStore {
	return &SafeZoneStore{db: db}
}

const safeZoneCols = `id, owner_id, name, latitude, longitude, radius, is_active, created_at`

func scanSafeZone(scanner interface{ Scan(...any) error }) (*model.SafeZone, error) {
	var z model.SafeZone
	err := scanner.Scan(&z.ID, &z.OwnerID, &z.Name, &z.Latitude, &z.Longitude, &z.Radius, &z.IsActive, &z.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *SafeZoneStore) Create(ownerID int64, name string, lat, lon, radius float64) (*model.SafeZone, error) {
	result, err := s.db.Exec(
		`INSERT INTO safe_zones (owner_id, name, latitude, longitude, radius) VALUES (?, ?, ?, ?, ?)`,
		ownerID, name, lat, lon, radius,
	)
	if err != nil {
		return nil, fmt.Errorf("insert safe zone: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *SafeZoneStore) GetByID(id int64) (*model.SafeZone, error) {
	z, err := scanSafeZone(s.db.QueryRow(`SELECT `+safeZoneCols+` FROM safe_zones WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get safe zone: %w", err)
	}
	return z, nil
}

func (s *SafeZoneStore) ListActiveByOwner(ownerID int64) ([]model.SafeZone, error) {
	rows, err := s.db.Query(
		`SELECT `+safeZoneCols+` FROM safe_zones WHERE owner_id = ? AND is_active = 1 ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list safe zones: %w", err)
	}
	defer rows.Close()

	var zones []model.SafeZone
	for rows.Next() {
		z, err := scanSafeZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan safe zone: %w", err)
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

// Deactivate switches off a zone owned by ownerID. It reports false when no
// such active zone exists.
func (s *SafeZoneStore) Deactivate(id, ownerID int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE safe_zones SET is_active = 0 WHERE id = ? AND owner_id = ? AND is_active = 1`,
		id, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("deactivate safe zone: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
