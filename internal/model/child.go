package model

import (
	"strconv"
	"time"
)

type Child struct {
	ID               int64      `json:"id"`
	ParentID         int64      `json:"parent_id"`
	ProxyUserID      *int64     `json:"proxy_user_id"`
	Name             string     `json:"name"`
	DeviceID         string     `json:"device_id"`
	DeviceSecretHash string     `json:"-"`
	BatteryStatus    *int       `json:"battery_status"`
	LastSeenAt       *time.Time `json:"last_seen_at"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// LocationPoint is an append-only position sample for a child.
type LocationPoint struct {
	ID         int64     `json:"id"`
	ChildID    int64     `json:"child_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	RecordedAt time.Time `json:"recorded_at"`
}

type SafeZone struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Radius    float64   `json:"radius"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
