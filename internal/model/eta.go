package model

import (
	"errors"
	"time"
)

type EtaStatus string

const (
	EtaActive    EtaStatus = "ACTIVE"
	EtaArrived   EtaStatus = "ARRIVED"
	EtaCancelled EtaStatus = "CANCELLED"
)

// ErrInvalidTransition is returned when a share leaves a terminal status.
var ErrInvalidTransition = errors.New("invalid eta status transition")

// CanTransition reports whether a share may move from s to next.
// ACTIVE is the only non-terminal status.
func (s EtaStatus) CanTransition(next EtaStatus) bool {
	return s == EtaActive && (next == EtaArrived || next == EtaCancelled)
}

type EtaShare struct {
	ID                   int64      `json:"id"`
	SharerID             int64      `json:"sharer_id"`
	SharedWith           []int64    `json:"shared_with"`
	DestinationName      string     `json:"destination_name"`
	DestinationLatitude  float64    `json:"destination_latitude"`
	DestinationLongitude float64    `json:"destination_longitude"`
	CurrentLatitude      *float64   `json:"current_latitude"`
	CurrentLongitude     *float64   `json:"current_longitude"`
	CalculatedEta        *time.Time `json:"calculated_eta"`
	Status               EtaStatus  `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
