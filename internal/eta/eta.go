// Package eta runs "on my way" shares: a user's position and estimated
// arrival time exposed to chosen recipients until arrival or cancellation.
package eta

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/geo"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
)

const (
	// WalkingSpeed is the assumed travel speed in meters per second (5 km/h).
	WalkingSpeed = 5000.0 / 3600.0
	// ArrivalRadius is how close to the destination counts as arrived, in meters.
	ArrivalRadius = 100.0
)

var (
	ErrNotFound         = errors.New("eta share not found")
	ErrNotSharer        = errors.New("only the sharer can change this share")
	ErrInvalidRecipient = errors.New("invalid eta recipient")
)

// Estimate returns the arrival time walking from (lat, lon) to the
// destination starting at now.
func Estimate(lat, lon, destLat, destLon float64, now time.Time) time.Time {
	meters := geo.Distance(lat, lon, destLat, destLon)
	return now.Add(time.Duration(meters / WalkingSpeed * float64(time.Second))).UTC().Truncate(time.Second)
}

// Arrived reports whether (lat, lon) is within ArrivalRadius of the destination.
func Arrived(lat, lon, destLat, destLon float64) bool {
	return geo.Distance(lat, lon, destLat, destLon) <= ArrivalRadius
}

type ShareStore interface {
	Create(e model.EtaShare) (*model.EtaShare, error)
	GetByID(id int64) (*model.EtaShare, error)
	ListActiveFor(userID int64) ([]model.EtaShare, error)
	UpdatePosition(id int64, lat, lon float64, eta time.Time) error
	Transition(id int64, next model.EtaStatus) error
}

type UserStore interface {
	GetByID(id int64) (*model.User, error)
}

// Dispatcher queues notification events.
type Dispatcher interface {
	Dispatch(ev notify.Event)
}

// StartRequest describes a new share.
type StartRequest struct {
	DestinationName      string   `json:"destination_name"`
	DestinationLatitude  float64  `json:"destination_latitude"`
	DestinationLongitude float64  `json:"destination_longitude"`
	CurrentLatitude      *float64 `json:"current_latitude"`
	CurrentLongitude     *float64 `json:"current_longitude"`
	SharedWith           []int64  `json:"shared_with"`
}

// Service applies share lifecycle rules and emits the matching events.
type Service struct {
	shares ShareStore
	users  UserStore
	events Dispatcher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(shares ShareStore, users UserStore, events Dispatcher, logger *slog.Logger) *Service {
	return &Service{shares: shares, users: users, events: events, logger: logger, now: time.Now}
}

// Start creates an active share for sharerID and notifies everyone on it.
func (s *Service) Start(sharerID int64, req StartRequest) (*model.EtaShare, error) {
	seen := map[int64]bool{}
	recipients := make([]int64, 0, len(req.SharedWith))
	for _, id := range req.SharedWith {
		if id == sharerID {
			return nil, fmt.Errorf("%w: cannot share with yourself", ErrInvalidRecipient)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		u, err := s.users.GetByID(id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("%w: user %d does not exist", ErrInvalidRecipient, id)
		}
		recipients = append(recipients, id)
	}

	now := s.now()
	share := model.EtaShare{
		SharerID:             sharerID,
		SharedWith:           recipients,
		DestinationName:      req.DestinationName,
		DestinationLatitude:  req.DestinationLatitude,
		DestinationLongitude: req.DestinationLongitude,
	}
	if req.CurrentLatitude != nil && req.CurrentLongitude != nil {
		share.CurrentLatitude = req.CurrentLatitude
		share.CurrentLongitude = req.CurrentLongitude
		eta := Estimate(*req.CurrentLatitude, *req.CurrentLongitude, req.DestinationLatitude, req.DestinationLongitude, now)
		share.CalculatedEta = &eta
	}

	created, err := s.shares.Create(share)
	if err != nil {
		return nil, err
	}
	s.emit(notify.EventEtaStarted, created, now)
	return created, nil
}

// UpdateLocation records the sharer's position. A position inside the
// arrival radius completes the share.
func (s *Service) UpdateLocation(shareID, userID int64, lat, lon float64) (*model.EtaShare, error) {
	share, err := s.owned(shareID, userID)
	if err != nil {
		return nil, err
	}
	if share.Status != model.EtaActive {
		return nil, model.ErrInvalidTransition
	}

	now := s.now()
	eta := Estimate(lat, lon, share.DestinationLatitude, share.DestinationLongitude, now)
	if err := s.shares.UpdatePosition(shareID, lat, lon, eta); err != nil {
		return nil, err
	}

	event := notify.EventEtaUpdated
	if Arrived(lat, lon, share.DestinationLatitude, share.DestinationLongitude) {
		if err := s.shares.Transition(shareID, model.EtaArrived); err != nil {
			return nil, err
		}
		event = notify.EventEtaArrived
	}

	updated, err := s.shares.GetByID(shareID)
	if err != nil {
		return nil, err
	}
	s.emit(event, updated, now)
	return updated, nil
}

// Cancel ends an active share without arrival.
func (s *Service) Cancel(shareID, userID int64) (*model.EtaShare, error) {
	return s.finish(shareID, userID, model.EtaCancelled, notify.EventEtaCancelled)
}

// Arrive marks an active share as arrived.
func (s *Service) Arrive(shareID, userID int64) (*model.EtaShare, error) {
	return s.finish(shareID, userID, model.EtaArrived, notify.EventEtaArrived)
}

// ListActive returns the active shares userID started or receives.
func (s *Service) ListActive(userID int64) ([]model.EtaShare, error) {
	return s.shares.ListActiveFor(userID)
}

func (s *Service) finish(shareID, userID int64, next model.EtaStatus, event notify.EventType) (*model.EtaShare, error) {
	if _, err := s.owned(shareID, userID); err != nil {
		return nil, err
	}
	if err := s.shares.Transition(shareID, next); err != nil {
		return nil, err
	}
	updated, err := s.shares.GetByID(shareID)
	if err != nil {
		return nil, err
	}
	s.emit(event, updated, s.now())
	return updated, nil
}

func (s *Service) owned(shareID, userID int64) (*model.EtaShare, error) {
	share, err := s.shares.GetByID(shareID)
	if err != nil {
		return nil, err
	}
	if share == nil {
		return nil, ErrNotFound
	}
	if share.SharerID != userID {
		return nil, ErrNotSharer
	}
	return share, nil
}

func (s *Service) emit(t notify.EventType, share *model.EtaShare, at time.Time) {
	if share == nil {
		return
	}
	sharer, err := s.users.GetByID(share.SharerID)
	if err != nil {
		s.logger.Error("eta event dropped", "type", t, "share_id", share.ID, "error", err)
		return
	}
	if sharer == nil {
		s.logger.Warn("eta event dropped, sharer gone", "type", t, "share_id", share.ID, "sharer_id", share.SharerID)
		return
	}
	s.events.Dispatch(notify.EtaEvent(t, *share, *sharer, at))
}
