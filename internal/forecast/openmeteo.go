// Package forecast fetches public forecast data shown next to the station's
// own readings.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/syakhish/weather-monitor/internal/reading"
	"github.com/syakhish/weather-monitor/internal/resilience"
)

// Current holds the provider's current conditions.
type Current struct {
	Time         time.Time         `json:"time"`
	TemperatureC float64           `json:"temperatureC"`
	HumidityPct  float64           `json:"humidityPercent"`
	PressureHpa  float64           `json:"pressureHpa"`
	Condition    reading.Condition `json:"condition"`
}

// Day is one daily forecast entry.
type Day struct {
	Date          time.Time         `json:"date"`
	MinC          float64           `json:"minC"`
	MaxC          float64           `json:"maxC"`
	PrecipProbPct float64           `json:"precipProbabilityPercent"`
	Condition     reading.Condition `json:"condition"`
}

// Forecast is what a provider returns for one location. Days are ordered by
// date ascending.
type Forecast struct {
	Provider string  `json:"provider"`
	Current  Current `json:"current"`
	Days     []Day   `json:"days"`
}

// OpenMeteoProvider fetches forecasts from Open-Meteo. No API key is needed.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	lat     float64
	lon     float64
	days    int
	httpCfg resilience.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, baseURL string, lat, lon float64, days int) *OpenMeteoProvider {
	if days <= 0 {
		days = 3
	}

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		lat:     lat,
		lon:     lon,
		days:    days,
		httpCfg: resilience.HTTPClientConfig{
			Client:  client,
			Backoff: resilience.DefaultBackoff,
		},
		circuit: resilience.NewBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context) (Forecast, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(p.lat, 'f', 4, 64))
		values.Set("longitude", strconv.FormatFloat(p.lon, 'f', 4, 64))
		values.Set("current", "temperature_2m,relative_humidity_2m,surface_pressure,weather_code")
		values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
		values.Set("forecast_days", strconv.Itoa(p.days))
		values.Set("timezone", "GMT")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := resilience.Do(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return Forecast{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Time        string  `json:"time"`
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			Pressure    float64 `json:"surface_pressure"`
			WeatherCode int     `json:"weather_code"`
		} `json:"current"`
		Daily struct {
			Time        []string  `json:"time"`
			WeatherCode []int     `json:"weather_code"`
			MaxTemp     []float64 `json:"temperature_2m_max"`
			MinTemp     []float64 `json:"temperature_2m_min"`
			PrecipProb  []float64 `json:"precipitation_probability_max"`
		} `json:"daily"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Forecast{}, err
	}

	ts, err := time.ParseInLocation("2006-01-02T15:04", payload.Current.Time, time.UTC)
	if err != nil {
		ts = time.Now().UTC()
	}

	out := Forecast{
		Provider: p.name,
		Current: Current{
			Time:         ts,
			TemperatureC: payload.Current.Temperature,
			HumidityPct:  payload.Current.Humidity,
			PressureHpa:  payload.Current.Pressure,
			Condition:    mapOpenMeteoCondition(payload.Current.WeatherCode),
		},
	}

	for i, day := range payload.Daily.Time {
		date, err := time.ParseInLocation("2006-01-02", day, time.UTC)
		if err != nil {
			continue
		}
		d := Day{Date: date, Condition: reading.ConditionUnknown}
		if i < len(payload.Daily.WeatherCode) {
			d.Condition = mapOpenMeteoCondition(payload.Daily.WeatherCode[i])
		}
		if i < len(payload.Daily.MaxTemp) {
			d.MaxC = payload.Daily.MaxTemp[i]
		}
		if i < len(payload.Daily.MinTemp) {
			d.MinC = payload.Daily.MinTemp[i]
		}
		if i < len(payload.Daily.PrecipProb) {
			d.PrecipProbPct = payload.Daily.PrecipProb[i]
		}
		out.Days = append(out.Days, d)
	}

	return out, nil
}

// mapOpenMeteoCondition maps WMO weather codes (simplified).
func mapOpenMeteoCondition(code int) reading.Condition {
	switch {
	case code == 0:
		return reading.ConditionClear
	case code >= 1 && code <= 3:
		return reading.ConditionCloudy
	case code == 45 || code == 48:
		return reading.ConditionMist
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return reading.ConditionRain
	case code >= 95:
		return reading.ConditionStorm
	default:
		return reading.ConditionUnknown
	}
}
