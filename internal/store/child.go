package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type ChildStore struct {
	db *sql.DB
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

const childCols = `id, parent_id, proxy_user_id, name, device_id, device_secret_hash, battery_status, last_seen_at, is_active, created_at, updated_at`

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	var proxyID, battery sql.NullInt64
	var lastSeen sql.NullTime
	err := scanner.Scan(&c.ID, &c.ParentID, &proxyID, &c.Name, &c.DeviceID, &c.DeviceSecretHash,
		&battery, &lastSeen, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if proxyID.Valid {
		c.ProxyUserID = &proxyID.Int64
	}
	if battery.Valid {
		b := int(battery.Int64)
		c.BatteryStatus = &b
	}
	if lastSeen.Valid {
		c.LastSeenAt = &lastSeen.Time
	}
	return &c, nil
}

// Create inserts a child together with the proxy user that represents the
// child's device in chat.
func (s *ChildStore) Create(parentID int64, name, deviceID, secretHash string) (*model.Child, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO children (parent_id, name, device_id, device_secret_hash) VALUES (?, ?, ?, ?)`,
		parentID, name, deviceID, secretHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	childID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	result, err = tx.Exec(
		`INSERT INTO users (username, display_name, is_proxy) VALUES (?, ?, 1)`,
		model.ProxyUsername(childID), name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert proxy user: %w", err)
	}
	proxyID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(`UPDATE children SET proxy_user_id = ? WHERE id = ?`, proxyID, childID); err != nil {
		return nil, fmt.Errorf("link proxy user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(childID)
}

func (s *ChildStore) GetByID(id int64) (*model.Child, error) {
	c, err := scanChild(s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) ListByParent(parentID int64) ([]model.Child, error) {
	rows, err := s.db.Query(`SELECT `+childCols+` FROM children WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()
	return scanChildren(rows)
}

// ListSeenSince returns active children whose device reported at or after since.
func (s *ChildStore) ListSeenSince(since time.Time) ([]model.Child, error) {
	rows, err := s.db.Query(
		`SELECT `+childCols+` FROM children WHERE is_active = 1 AND last_seen_at >= ? ORDER BY id`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list children seen since: %w", err)
	}
	defer rows.Close()
	return scanChildren(rows)
}

// ParentID returns the owning parent of a child, or 0 when the child is gone.
func (s *ChildStore) ParentID(childID int64) (int64, error) {
	var parentID int64
	err := s.db.QueryRow(`SELECT parent_id FROM children WHERE id = ?`, childID).Scan(&parentID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get child parent: %w", err)
	}
	return parentID, nil
}

// RecordCheckIn stores the latest battery level and contact time from the device.
func (s *ChildStore) RecordCheckIn(id int64, battery *int, seenAt time.Time) error {
	var b any
	if battery != nil {
		b = *battery
	}
	_, err := s.db.Exec(
		`UPDATE children SET battery_status = COALESCE(?, battery_status), last_seen_at = ?, updated_at = ? WHERE id = ?`,
		b, seenAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("record child check-in: %w", err)
	}
	return nil
}

func scanChildren(rows *sql.Rows) ([]model.Child, error) {
	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}
