package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type DeviceStore struct {
	db *sql.DB
}

func NewDeviceStore(db *sql.DB) *DeviceStore {
	return &DeviceStore{db: db}
}

const deviceCols = `id, user_id, platform, token, p256dh_key, auth_key, device_name, is_active, created_at, updated_at`

func scanDevice(scanner interface{ Scan(...any) error }) (*model.UserDevice, error) {
	var d model.UserDevice
	err := scanner.Scan(&d.ID, &d.UserID, &d.Platform, &d.Token, &d.P256dhKey, &d.AuthKey, &d.DeviceName, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Register stores a push token for a user. A token already registered by
// another account moves to this user and becomes active again.
func (s *DeviceStore) Register(userID int64, platform model.Platform, token, p256dh, auth, deviceName string) (*model.UserDevice, error) {
	if !platform.Valid() {
		return nil, fmt.Errorf("register device: unknown platform %q", platform)
	}
	_, err := s.db.Exec(
		`INSERT INTO user_devices (user_id, platform, token, p256dh_key, auth_key, device_name)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET
			user_id = excluded.user_id,
			platform = excluded.platform,
			p256dh_key = excluded.p256dh_key,
			auth_key = excluded.auth_key,
			device_name = excluded.device_name,
			is_active = 1,
			updated_at = ?`,
		userID, string(platform), token, p256dh, auth, deviceName, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	return s.GetByToken(token)
}

func (s *DeviceStore) GetByToken(token string) (*model.UserDevice, error) {
	d, err := scanDevice(s.db.QueryRow(`SELECT `+deviceCols+` FROM user_devices WHERE token = ?`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get device by token: %w", err)
	}
	return d, nil
}

func (s *DeviceStore) ListByUser(userID int64) ([]model.UserDevice, error) {
	return s.list(`SELECT `+deviceCols+` FROM user_devices WHERE user_id = ? ORDER BY id`, userID)
}

// ListActiveByUser returns the devices that should receive pushes for a user.
func (s *DeviceStore) ListActiveByUser(userID int64) ([]model.UserDevice, error) {
	return s.list(`SELECT `+deviceCols+` FROM user_devices WHERE user_id = ? AND is_active = 1 ORDER BY id`, userID)
}

func (s *DeviceStore) list(query string, args ...any) ([]model.UserDevice, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []model.UserDevice
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// Deactivate stops pushes to a device without forgetting the registration.
func (s *DeviceStore) Deactivate(id int64) error {
	_, err := s.db.Exec(`UPDATE user_devices SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate device: %w", err)
	}
	return nil
}

func (s *DeviceStore) Delete(id, userID int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM user_devices WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete device: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
