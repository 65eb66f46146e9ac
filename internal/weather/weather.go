package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	cacheTTL      = 30 * time.Minute
	forecastHours = 3
	// A forecast older than its own window has no future hours left.
	staleLimit = forecastHours * time.Hour
)

// Hour is one hourly forecast slot.
type Hour struct {
	Time                     time.Time
	PrecipitationProbability int // percent
	Code                     int
	Description              string
}

// Forecast holds the next few hours for one location.
type Forecast struct {
	Hours     []Hour
	FetchedAt time.Time
}

type cachedForecast struct {
	forecast  Forecast
	lastFetch time.Time
}

// Service fetches hourly forecasts from Open-Meteo and caches them per
// rounded coordinate.
type Service struct {
	client  *http.Client
	baseURL string
	mu      sync.RWMutex
	cache   map[string]cachedForecast
}

// NewService creates a new weather service.
func NewService() *Service {
	return &Service{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://api.open-meteo.com/v1/forecast",
		cache:   make(map[string]cachedForecast),
	}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lon)
}

// Forecast returns the next hours for a location, fetching from the API if
// the cache is stale. On fetch failure stale data is returned if present.
func (s *Service) Forecast(ctx context.Context, lat, lon float64) (Forecast, error) {
	key := cacheKey(lat, lon)

	s.mu.RLock()
	c, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && time.Since(c.lastFetch) < cacheTTL {
		return c.forecast, nil
	}

	f, err := s.fetch(ctx, lat, lon)
	if err != nil {
		if ok && time.Since(c.lastFetch) < staleLimit {
			return c.forecast, nil
		}
		return Forecast{}, err
	}

	now := time.Now()
	s.mu.Lock()
	s.cache[key] = cachedForecast{forecast: f, lastFetch: now}
	s.prune(now)
	s.mu.Unlock()
	return f, nil
}

// prune drops cached forecasts past staleLimit. Callers hold s.mu.
func (s *Service) prune(now time.Time) {
	for key, c := range s.cache {
		if now.Sub(c.lastFetch) >= staleLimit {
			delete(s.cache, key)
		}
	}
}

type apiResponse struct {
	Hourly struct {
		Time                     []string `json:"time"`
		PrecipitationProbability []*int   `json:"precipitation_probability"`
		WeatherCode              []*int   `json:"weather_code"`
	} `json:"hourly"`
}

func (s *Service) fetch(ctx context.Context, lat, lon float64) (Forecast, error) {
	url := fmt.Sprintf(
		"%s?latitude=%.4f&longitude=%.4f&hourly=precipitation_probability,weather_code&forecast_hours=%d&timezone=UTC",
		s.baseURL, lat, lon, forecastHours,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Forecast{}, fmt.Errorf("weather API request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("weather API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Forecast{}, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Forecast{}, fmt.Errorf("decode weather response: %w", err)
	}

	return parseHourly(apiResp), nil
}

func parseHourly(apiResp apiResponse) Forecast {
	h := apiResp.Hourly
	f := Forecast{FetchedAt: time.Now().UTC()}
	for i, ts := range h.Time {
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		hour := Hour{Time: t.UTC()}
		if i < len(h.PrecipitationProbability) && h.PrecipitationProbability[i] != nil {
			hour.PrecipitationProbability = *h.PrecipitationProbability[i]
		}
		if i < len(h.WeatherCode) && h.WeatherCode[i] != nil {
			hour.Code = *h.WeatherCode[i]
		}
		hour.Description = Describe(hour.Code)
		f.Hours = append(f.Hours, hour)
	}
	return f
}

// Describe maps a WMO weather code to a human-readable description.
func Describe(code int) string {
	switch code {
	case 0:
		return "Clear sky"
	case 1:
		return "Mainly clear"
	case 2:
		return "Partly cloudy"
	case 3:
		return "Overcast"
	case 45, 48:
		return "Foggy"
	case 51:
		return "Light drizzle"
	case 53:
		return "Moderate drizzle"
	case 55:
		return "Dense drizzle"
	case 56, 57:
		return "Freezing drizzle"
	case 61:
		return "Slight rain"
	case 63:
		return "Moderate rain"
	case 65:
		return "Heavy rain"
	case 66, 67:
		return "Freezing rain"
	case 71:
		return "Slight snow"
	case 73:
		return "Moderate snow"
	case 75:
		return "Heavy snow"
	case 77:
		return "Snow grains"
	case 80:
		return "Slight rain showers"
	case 81:
		return "Moderate rain showers"
	case 82:
		return "Violent rain showers"
	case 85:
		return "Slight snow showers"
	case 86:
		return "Heavy snow showers"
	case 95:
		return "Thunderstorm"
	case 96, 99:
		return "Thunderstorm with hail"
	default:
		return "Precipitation"
	}
}
