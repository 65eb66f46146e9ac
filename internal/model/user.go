package model

import "time"

type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	IsProxy     bool      `json:"is_proxy"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProxyUsername is the username of the account that speaks for a child's
// device in chat.
func ProxyUsername(childID int64) string {
	return "child_" + itoa(childID) + "_proxy"
}
