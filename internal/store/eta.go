package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type EtaStore struct {
	db *sql.DB
}

func NewEtaStore(db *sql.DB) *EtaStore {
	return &EtaStore{db: db}
}

const etaCols = `id, sharer_id, destination_name, destination_latitude, destination_longitude,
	current_latitude, current_longitude, calculated_eta, status, created_at, updated_at`

func scanEta(scanner interface{ Scan(...any) error }) (*model.EtaShare, error) {
	var e model.EtaShare
	var curLat, curLon sql.NullFloat64
	var eta sql.NullTime
	err := scanner.Scan(&e.ID, &e.SharerID, &e.DestinationName, &e.DestinationLatitude, &e.DestinationLongitude,
		&curLat, &curLon, &eta, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if curLat.Valid && curLon.Valid {
		e.CurrentLatitude = &curLat.Float64
		e.CurrentLongitude = &curLon.Float64
	}
	if eta.Valid {
		e.CalculatedEta = &eta.Time
	}
	return &e, nil
}

// Create stores an active share and its recipients.
func (s *EtaStore) Create(e model.EtaShare) (*model.EtaShare, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var eta any
	if e.CalculatedEta != nil {
		eta = e.CalculatedEta.UTC()
	}
	result, err := tx.Exec(
		`INSERT INTO eta_shares (sharer_id, destination_name, destination_latitude, destination_longitude,
			current_latitude, current_longitude, calculated_eta, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SharerID, e.DestinationName, e.DestinationLatitude, e.DestinationLongitude,
		nullableFloat(e.CurrentLatitude), nullableFloat(e.CurrentLongitude), eta, string(model.EtaActive),
	)
	if err != nil {
		return nil, fmt.Errorf("insert eta share: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, uid := range e.SharedWith {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO eta_share_recipients (share_id, user_id) VALUES (?, ?)`, id, uid); err != nil {
			return nil, fmt.Errorf("insert eta recipient: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

func (s *EtaStore) GetByID(id int64) (*model.EtaShare, error) {
	e, err := scanEta(s.db.QueryRow(`SELECT `+etaCols+` FROM eta_shares WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get eta share: %w", err)
	}
	if e.SharedWith, err = s.recipients(e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

// ListActiveFor returns active shares the user started or was shared into.
func (s *EtaStore) ListActiveFor(userID int64) ([]model.EtaShare, error) {
	rows, err := s.db.Query(
		`SELECT `+etaCols+` FROM eta_shares
		 WHERE status = 'ACTIVE' AND (sharer_id = ? OR id IN (SELECT share_id FROM eta_share_recipients WHERE user_id = ?))
		 ORDER BY id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active eta shares: %w", err)
	}
	var shares []model.EtaShare
	for rows.Next() {
		e, err := scanEta(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan eta share: %w", err)
		}
		shares = append(shares, *e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("list active eta shares: %w", err)
	}

	for i := range shares {
		if shares[i].SharedWith, err = s.recipients(shares[i].ID); err != nil {
			return nil, err
		}
	}
	return shares, nil
}

// UpdatePosition records the sharer's latest position and recomputed ETA.
// Only active shares are updated.
func (s *EtaStore) UpdatePosition(id int64, lat, lon float64, eta time.Time) error {
	result, err := s.db.Exec(
		`UPDATE eta_shares SET current_latitude = ?, current_longitude = ?, calculated_eta = ?, updated_at = ?
		 WHERE id = ? AND status = 'ACTIVE'`,
		lat, lon, eta.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update eta position: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.ErrInvalidTransition
	}
	return nil
}

// Transition moves an active share into a terminal status.
func (s *EtaStore) Transition(id int64, next model.EtaStatus) error {
	if !model.EtaActive.CanTransition(next) {
		return model.ErrInvalidTransition
	}
	result, err := s.db.Exec(
		`UPDATE eta_shares SET status = ?, updated_at = ? WHERE id = ? AND status = 'ACTIVE'`,
		string(next), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("transition eta share: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return model.ErrInvalidTransition
	}
	return nil
}

func (s *EtaStore) recipients(shareID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM eta_share_recipients WHERE share_id = ? ORDER BY user_id`, shareID)
	if err != nil {
		return nil, fmt.Errorf("list eta recipients: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan eta recipient: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
