// Package routine learns a child's regular Home and School trips from
// location history and flags trips that stray from them.
package routine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/geo"
	"github.com/mauzenfan/mauzenfan/internal/model"
)

const (
	LearningWindow = 30 * 24 * time.Hour
	// PlaceRadius is how close a point must be to Home or School to count
	// as being there, in meters.
	PlaceRadius    = 150.0
	MinTripPoints  = 5
	MinTrips       = 3
	MatchRadius    = 200.0
	PathDeviation  = 500.0
	TimeDeviation  = 30 // minutes
	HomeZoneName   = "Home"
	SchoolZoneName = "Lekol"
)

// IsHome reports whether z is the zone routines treat as home.
func IsHome(z model.SafeZone) bool { return strings.EqualFold(z.Name, HomeZoneName) }

// IsSchool reports whether z is the zone routines treat as school.
func IsSchool(z model.SafeZone) bool { return strings.EqualFold(z.Name, SchoolZoneName) }

// Places picks the home and school zones from a parent's zones.
func Places(zones []model.SafeZone) (home, school *model.SafeZone) {
	for i := range zones {
		switch {
		case home == nil && IsHome(zones[i]):
			home = &zones[i]
		case school == nil && IsSchool(zones[i]):
			school = &zones[i]
		}
	}
	return home, school
}

type place int

const (
	unknown place = iota
	atHome
	atSchool
	fromHome
	fromSchool
)

func near(p model.LocationPoint, z model.SafeZone) bool {
	return geo.Distance(p.Latitude, p.Longitude, z.Latitude, z.Longitude) <= PlaceRadius
}

// Learn splits points (oldest first) into home-to-school and
// school-to-home trips and returns a routine for each direction that has
// enough trips.
func Learn(childID int64, points []model.LocationPoint, home, school model.SafeZone) []model.LearnedRoutine {
	if len(points) < MinTripPoints*MinTrips {
		return nil
	}

	var toSchool, toHome [][]model.LocationPoint
	var trip []model.LocationPoint
	state := unknown

	for _, p := range points {
		isHome, isSchool := near(p, home), near(p, school)
		switch state {
		case unknown:
			if isHome {
				state = atHome
			} else if isSchool {
				state = atSchool
			}
		case atHome:
			if !isHome {
				state, trip = fromHome, []model.LocationPoint{p}
			}
		case atSchool:
			if !isSchool {
				state, trip = fromSchool, []model.LocationPoint{p}
			}
		case fromHome:
			trip = append(trip, p)
			if isSchool {
				if len(trip) >= MinTripPoints {
					toSchool = append(toSchool, trip)
				}
				state, trip = atSchool, nil
			} else if isHome {
				state, trip = atHome, nil
			}
		case fromSchool:
			trip = append(trip, p)
			if isHome {
				if len(trip) >= MinTripPoints {
					toHome = append(toHome, trip)
				}
				state, trip = atHome, nil
			} else if isSchool {
				state, trip = atSchool, nil
			}
		}
	}

	var routines []model.LearnedRoutine
	if len(toSchool) >= MinTrips {
		routines = append(routines, summarize(childID, model.RoutineHomeToSchool, toSchool, home, school))
	}
	if len(toHome) >= MinTrips {
		routines = append(routines, summarize(childID, model.RoutineSchoolToHome, toHome, school, home))
	}
	return routines
}

func summarize(childID int64, name string, trips [][]model.LocationPoint, from, to model.SafeZone) model.LearnedRoutine {
	sort.SliceStable(trips, func(i, j int) bool { return len(trips[i]) > len(trips[j]) })

	path := make([]model.Coordinate, 0, len(trips[0]))
	for _, p := range trips[0] {
		path = append(path, model.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude})
	}

	lo, hi := minuteOfDay(trips[0][0].RecordedAt), minuteOfDay(trips[0][0].RecordedAt)
	for _, t := range trips {
		m := minuteOfDay(t[0].RecordedAt)
		lo, hi = min(lo, m), max(hi, m)
	}

	return model.LearnedRoutine{
		ChildID:     childID,
		Name:        name,
		Start:       model.Coordinate{Latitude: from.Latitude, Longitude: from.Longitude},
		End:         model.Coordinate{Latitude: to.Latitude, Longitude: to.Longitude},
		WindowStart: lo,
		WindowEnd:   hi,
		Path:        path,
		Confidence:  float64(len(trips)) / (LearningWindow.Hours() / 24 * 0.5),
	}
}

func minuteOfDay(t time.Time) int {
	t = t.UTC()
	return t.Hour()*60 + t.Minute()
}

// Finding describes how a trip deviated from a routine.
type Finding struct {
	Routine   string
	Anomalies []string
}

// Message renders the finding for an alert.
func (f Finding) Message(childName string) string {
	return fmt.Sprintf("Unusual activity detected for %s on routine '%s': %s",
		childName, f.Routine, strings.Join(f.Anomalies, " | "))
}

// Analyze compares a trip (oldest first) with the routines whose start and
// end match it. It reports the first routine the trip deviates from.
func Analyze(trip []model.LocationPoint, routines []model.LearnedRoutine) (Finding, bool) {
	if len(trip) < MinTripPoints {
		return Finding{}, false
	}
	first, last := trip[0], trip[len(trip)-1]

	coords := make([]model.Coordinate, 0, len(trip))
	for _, p := range trip {
		coords = append(coords, model.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude})
	}

	for _, r := range routines {
		if geo.Distance(first.Latitude, first.Longitude, r.Start.Latitude, r.Start.Longitude) > MatchRadius ||
			geo.Distance(last.Latitude, last.Longitude, r.End.Latitude, r.End.Longitude) > MatchRadius {
			continue
		}

		var anomalies []string
		if len(r.Path) > 0 {
			if avg := geo.AverageDeviation(coords, r.Path); avg > PathDeviation {
				anomalies = append(anomalies, fmt.Sprintf("path deviation of %.0fm on average", avg))
			}
		}

		start := minuteOfDay(first.RecordedAt)
		if start-r.WindowEnd > TimeDeviation || r.WindowStart-start > TimeDeviation {
			anomalies = append(anomalies, fmt.Sprintf("started at %s, outside the usual %s-%s",
				clock(start), clock(r.WindowStart), clock(r.WindowEnd)))
		}

		if len(anomalies) > 0 {
			return Finding{Routine: r.Name, Anomalies: anomalies}, true
		}
	}
	return Finding{}, false
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// TripInto returns the most recent trip that ends at the last point,
// starting with the last point still inside from. points must be oldest
// first. It returns nil when no departure from from is found.
func TripInto(points []model.LocationPoint, from model.SafeZone) []model.LocationPoint {
	for i := len(points) - 1; i >= 0; i-- {
		if near(points[i], from) {
			if i == len(points)-1 {
				return nil
			}
			return points[i:]
		}
	}
	return nil
}
