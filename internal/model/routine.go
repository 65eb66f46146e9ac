package model

import "time"

const (
	RoutineHomeToSchool = "Home to School"
	RoutineSchoolToHome = "School to Home"
)

type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// LearnedRoutine is a recurring trip derived from a child's history.
// WindowStart and WindowEnd are minutes after midnight UTC.
type LearnedRoutine struct {
	ID          int64        `json:"id"`
	ChildID     int64        `json:"child_id"`
	Name        string       `json:"name"`
	Start       Coordinate   `json:"start"`
	End         Coordinate   `json:"end"`
	WindowStart int          `json:"window_start"`
	WindowEnd   int          `json:"window_end"`
	Path        []Coordinate `json:"path"`
	Confidence  float64      `json:"confidence"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
