package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type AlertStore struct {
	db *sql.DB
}

func NewAlertStore(db *sql.DB) *AlertStore {
	return &AlertStore{db: db}
}

const alertCols = `id, recipient_id, child_id, safe_zone_id, alert_type, message, is_read, created_at`

func scanAlert(scanner interface{ Scan(...any) error }) (*model.Alert, error) {
	var a model.Alert
	var childID, zoneID sql.NullInt64
	err := scanner.Scan(&a.ID, &a.RecipientID, &childID, &zoneID, &a.AlertType, &a.Message, &a.IsRead, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if childID.Valid {
		a.ChildID = &childID.Int64
	}
	if zoneID.Valid {
		a.SafeZoneID = &zoneID.Int64
	}
	return &a, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (s *AlertStore) Create(recipientID int64, childID, safeZoneID *int64, alertType model.AlertType, message string, at time.Time) (*model.Alert, error) {
	if !alertType.Valid() {
		return nil, fmt.Errorf("create alert: unknown type %q", alertType)
	}
	result, err := s.db.Exec(
		`INSERT INTO alerts (recipient_id, child_id, safe_zone_id, alert_type, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		recipientID, nullableID(childID), nullableID(safeZoneID), string(alertType), message, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AlertStore) GetByID(id int64) (*model.Alert, error) {
	a, err := scanAlert(s.db.QueryRow(`SELECT `+alertCols+` FROM alerts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (s *AlertStore) ListByRecipient(recipientID int64, limit int) ([]model.Alert, error) {
	rows, err := s.db.Query(
		`SELECT `+alertCols+` FROM alerts WHERE recipient_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		recipientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// MarkRead flags an alert as read. It returns false when the alert does not
// belong to the recipient.
func (s *AlertStore) MarkRead(id, recipientID int64) (bool, error) {
	result, err := s.db.Exec(`UPDATE alerts SET is_read = 1 WHERE id = ? AND recipient_id = ?`, id, recipientID)
	if err != nil {
		return false, fmt.Errorf("mark alert read: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// LastFor returns the most recent alert of a type raised about a child,
// optionally narrowed to one safe zone. Used for cooldown checks.
func (s *AlertStore) LastFor(childID int64, alertType model.AlertType, safeZoneID *int64) (*model.Alert, error) {
	query := `SELECT ` + alertCols + ` FROM alerts WHERE child_id = ? AND alert_type = ?`
	args := []any{childID, string(alertType)}
	if safeZoneID != nil {
		query += ` AND safe_zone_id = ?`
		args = append(args, *safeZoneID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	a, err := scanAlert(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last alert: %w", err)
	}
	return a, nil
}
