package model

import "time"

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

func (p Platform) Valid() bool {
	return p == PlatformAndroid || p == PlatformIOS || p == PlatformWeb
}

// UserDevice is a push registration. Token holds the FCM registration token
// for mobile platforms and the subscription endpoint for web.
type UserDevice struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Platform   Platform  `json:"platform"`
	Token      string    `json:"token"`
	P256dhKey  string    `json:"p256dh_key,omitempty"`
	AuthKey    string    `json:"auth_key,omitempty"`
	DeviceName string    `json:"device_name"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
