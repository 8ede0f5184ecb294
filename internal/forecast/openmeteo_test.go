package forecast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/syakhish/weather-monitor/internal/reading"
	"github.com/syakhish/weather-monitor/internal/resilience"
)

const openMeteoBody = `{
  "current": {
    "time": "2025-01-10T06:00",
    "temperature_2m": 27.4,
    "relative_humidity_2m": 84,
    "surface_pressure": 1008.2,
    "weather_code": 61
  },
  "daily": {
    "time": ["2025-01-10", "2025-01-11"],
    "weather_code": [95, 2],
    "temperature_2m_max": [31.2, 32.0],
    "temperature_2m_min": [24.1, 24.5],
    "precipitation_probability_max": [90, 35]
  }
}`

func TestOpenMeteoFetch(t *testing.T) {
	var query map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query = map[string]string{
			"latitude":      q.Get("latitude"),
			"longitude":     q.Get("longitude"),
			"forecast_days": q.Get("forecast_days"),
			"timezone":      q.Get("timezone"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openMeteoBody))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, -6.2, 106.8, 2)

	fc, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if query["latitude"] != "-6.2000" || query["longitude"] != "106.8000" {
		t.Fatalf("unexpected coordinates in query: %v", query)
	}
	if query["forecast_days"] != "2" || query["timezone"] != "GMT" {
		t.Fatalf("unexpected query: %v", query)
	}

	if fc.Provider != "openmeteo" {
		t.Fatalf("expected provider openmeteo, got %q", fc.Provider)
	}
	if fc.Current.TemperatureC != 27.4 || fc.Current.HumidityPct != 84 {
		t.Fatalf("unexpected current conditions: %+v", fc.Current)
	}
	if fc.Current.Condition != reading.ConditionRain {
		t.Fatalf("expected rain, got %q", fc.Current.Condition)
	}
	wantTime := time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)
	if !fc.Current.Time.Equal(wantTime) {
		t.Fatalf("expected %v, got %v", wantTime, fc.Current.Time)
	}

	if len(fc.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(fc.Days))
	}
	if fc.Days[0].Condition != reading.ConditionStorm || fc.Days[0].PrecipProbPct != 90 {
		t.Fatalf("unexpected first day: %+v", fc.Days[0])
	}
	if fc.Days[1].Condition != reading.ConditionCloudy || fc.Days[1].MaxC != 32.0 {
		t.Fatalf("unexpected second day: %+v", fc.Days[1])
	}
}

func TestOpenMeteoFetchServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, 0, 0, 1)
	p.httpCfg.Backoff = resilience.BackoffConfig{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}

	_, err := p.Fetch(context.Background())
	if !errors.Is(err, resilience.ErrServerError) {
		t.Fatalf("expected ErrServerError, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestMapOpenMeteoCondition(t *testing.T) {
	tests := []struct {
		code int
		want reading.Condition
	}{
		{0, reading.ConditionClear},
		{3, reading.ConditionCloudy},
		{45, reading.ConditionMist},
		{63, reading.ConditionRain},
		{81, reading.ConditionRain},
		{99, reading.ConditionStorm},
		{71, reading.ConditionUnknown},
	}

	for _, tt := range tests {
		if got := mapOpenMeteoCondition(tt.code); got != tt.want {
			t.Errorf("code %d: expected %q, got %q", tt.code, tt.want, got)
		}
	}
}
