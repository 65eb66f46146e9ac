package model

import "time"

type AlertType string

const (
	AlertSOS               AlertType = "SOS"
	AlertLeftZone          AlertType = "LEFT_ZONE"
	AlertEnteredZone       AlertType = "ENTERED_ZONE"
	AlertLowBattery        AlertType = "LOW_BATTERY"
	AlertUnusualRoute      AlertType = "UNUSUAL_ROUTE"
	AlertContextualWeather AlertType = "CONTEXTUAL_WEATHER"
	AlertCheckIn           AlertType = "CHECK_IN"
)

// Valid reports whether t is one of the known alert types.
func (t AlertType) Valid() bool {
	switch t {
	case AlertSOS, AlertLeftZone, AlertEnteredZone, AlertLowBattery,
		AlertUnusualRoute, AlertContextualWeather, AlertCheckIn:
		return true
	}
	return false
}

type Alert struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	ChildID     *int64    `json:"child_id"`
	SafeZoneID  *int64    `json:"safe_zone_id"`
	AlertType   AlertType `json:"alert_type"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}
