package dashboard

import (
	"sync"
	"time"

	"github.com/syakhish/weather-monitor/internal/forecast"
	"github.com/syakhish/weather-monitor/internal/reading"
)

// Snapshot is the last successfully fetched state.
type Snapshot struct {
	Readings  []reading.Reading
	FetchedAt time.Time
	Forecast  *forecast.Forecast
}

// Cache holds the poller's local copy of the reading log. A failed poll
// never overwrites it.
type Cache struct {
	mu   sync.RWMutex
	snap Snapshot
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Cache) setReadings(readings []reading.Reading, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Readings = readings
	c.snap.FetchedAt = at
}

func (c *Cache) setForecast(fc forecast.Forecast) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Forecast = &fc
}
