package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mauzenfan/mauzenfan/internal/alerting"
	"github.com/mauzenfan/mauzenfan/internal/model"
	"github.com/mauzenfan/mauzenfan/internal/notify"
)

const (
	// PrecipitationThreshold is the hourly probability, in percent, that
	// triggers an alert.
	PrecipitationThreshold = 60
	Cooldown               = 3 * time.Hour
	activeWithin           = time.Hour
)

type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64) (Forecast, error)
}

type ChildLister interface {
	ListSeenSince(since time.Time) ([]model.Child, error)
}

type LocationSource interface {
	Latest(childID int64, limit int) ([]model.LocationPoint, error)
}

// Checker periodically warns parents about rain, snow or storms expected
// where their children are.
type Checker struct {
	mu        sync.RWMutex
	forecasts Forecaster
	children  ChildLister
	locations LocationSource
	alerts    *alerting.Raiser
	logger    *slog.Logger
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewChecker creates a weather checker running every interval.
func NewChecker(forecasts Forecaster, children ChildLister, locations LocationSource, alerts *alerting.Raiser, interval time.Duration, logger *slog.Logger) *Checker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Checker{
		forecasts: forecasts,
		children:  children,
		locations: locations,
		alerts:    alerts,
		logger:    logger,
		interval:  interval,
	}
}

// Start begins the checker loop.
func (c *Checker) Start(ctx context.Context) {
	c.mu.Lock()
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Check(ctx, time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the checker.
func (c *Checker) Stop() {
	c.mu.RLock()
	cancel := c.cancel
	done := c.done
	c.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Check runs one pass over recently active children and returns how many
// alerts were raised.
func (c *Checker) Check(ctx context.Context, now time.Time) int {
	children, err := c.children.ListSeenSince(now.Add(-activeWithin))
	if err != nil {
		c.logger.Error("list active children", "error", err)
		return 0
	}

	raised := 0
	for _, child := range children {
		if ctx.Err() != nil {
			break
		}
		ok, err := c.checkChild(ctx, child, now)
		if err != nil {
			c.logger.Error("weather check", "child_id", child.ID, "error", err)
			continue
		}
		if ok {
			raised++
		}
	}
	return raised
}

func (c *Checker) checkChild(ctx context.Context, child model.Child, now time.Time) (bool, error) {
	latest, err := c.locations.Latest(child.ID, 1)
	if err != nil {
		return false, err
	}
	if len(latest) == 0 {
		return false, nil
	}
	p := latest[0]

	f, err := c.forecasts.Forecast(ctx, p.Latitude, p.Longitude)
	if err != nil {
		return false, err
	}
	hour, ok := Precipitation(f, now)
	if !ok {
		return false, nil
	}

	message := Message(child.Name, hour)
	alert, err := c.alerts.Raise(alerting.Alert{
		Child:    child,
		Type:     model.AlertContextualWeather,
		Message:  message,
		Cooldown: Cooldown,
		At:       now,
		Event: func(a model.Alert) notify.Event {
			return notify.WeatherEvent(a, child, hour.Description)
		},
	})
	if err != nil {
		return false, err
	}
	return alert != nil, nil
}

// Precipitation returns the first hour in the forecast window, starting
// from the current hour, whose probability reaches the threshold.
func Precipitation(f Forecast, now time.Time) (Hour, bool) {
	from := now.UTC().Truncate(time.Hour)
	until := from.Add(forecastHours * time.Hour)
	for _, h := range f.Hours {
		if h.Time.Before(from) || !h.Time.Before(until) {
			continue
		}
		if h.PrecipitationProbability >= PrecipitationThreshold {
			return h, true
		}
	}
	return Hour{}, false
}

// Message renders the alert text for a forecast hour.
func Message(childName string, h Hour) string {
	desc := strings.ToLower(h.Description)
	category := "Weather Update"
	suggestion := ""
	switch {
	case strings.Contains(desc, "thunderstorm"):
		category = "Weather Alert"
		suggestion = " Stay safe and be aware of lightning."
	case strings.Contains(desc, "snow"):
		suggestion = " Dress warmly!"
	case strings.Contains(desc, "rain"), strings.Contains(desc, "drizzle"):
		suggestion = " Consider taking an umbrella!"
	}
	return fmt.Sprintf("%s: %s likely near %s around %s UTC (%d%%).%s",
		category, h.Description, childName, h.Time.Format("15:04"), h.PrecipitationProbability, suggestion)
}
