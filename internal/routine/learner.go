package routine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

type ChildLister interface {
	ListSeenSince(since time.Time) ([]model.Child, error)
}

type ZoneLister interface {
	ListActiveByOwner(ownerID int64) ([]model.SafeZone, error)
}

type PointLister interface {
	ListSince(childID int64, since time.Time) ([]model.LocationPoint, error)
}

type RoutineWriter interface {
	Upsert(r model.LearnedRoutine) error
}

// Learner periodically relearns routines for every recently active child.
type Learner struct {
	mu       sync.RWMutex
	children ChildLister
	zones    ZoneLister
	points   PointLister
	routines RoutineWriter
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewLearner(children ChildLister, zones ZoneLister, points PointLister, routines RoutineWriter, logger *slog.Logger) *Learner {
	return &Learner{
		children: children,
		zones:    zones,
		points:   points,
		routines: routines,
		logger:   logger,
		interval: 24 * time.Hour,
	}
}

// Start begins the learning loop.
func (l *Learner) Start(ctx context.Context) {
	l.mu.Lock()
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	l.mu.Unlock()

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.LearnAll(time.Now())
			}
		}
	}()
}

// Stop gracefully stops the learning loop.
func (l *Learner) Stop() {
	l.mu.RLock()
	cancel := l.cancel
	done := l.done
	l.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// LearnAll relearns routines for children seen within the learning window.
func (l *Learner) LearnAll(now time.Time) {
	children, err := l.children.ListSeenSince(now.Add(-LearningWindow))
	if err != nil {
		l.logger.Error("list children for learning", "error", err)
		return
	}
	for _, c := range children {
		if _, err := l.LearnChild(c, now); err != nil {
			l.logger.Error("learn routines", "child_id", c.ID, "error", err)
		}
	}
}

// LearnChild learns and stores the routines of one child and returns how
// many were stored. Parents without both a Home and a School zone get none.
func (l *Learner) LearnChild(c model.Child, now time.Time) (int, error) {
	zones, err := l.zones.ListActiveByOwner(c.ParentID)
	if err != nil {
		return 0, err
	}
	home, school := Places(zones)
	if home == nil || school == nil {
		l.logger.Debug("no home and school zones", "child_id", c.ID)
		return 0, nil
	}

	points, err := l.points.ListSince(c.ID, now.Add(-LearningWindow))
	if err != nil {
		return 0, err
	}

	learned := Learn(c.ID, points, *home, *school)
	for _, r := range learned {
		if err := l.routines.Upsert(r); err != nil {
			return 0, err
		}
	}
	if len(learned) > 0 {
		l.logger.Info("routines learned", "child_id", c.ID, "count", len(learned))
	}
	return len(learned), nil
}
