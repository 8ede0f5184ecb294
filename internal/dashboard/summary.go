package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/syakhish/weather-monitor/internal/forecast"
	"github.com/syakhish/weather-monitor/internal/reading"
)

// Point is one sample of a numeric series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Summary is what a dashboard renders for one poll. The zero value means no
// reading has arrived yet.
type Summary struct {
	HasData    bool              `json:"hasData"`
	Latest     reading.Reading   `json:"latest"`
	ObservedAt time.Time         `json:"observedAt"`
	Condition  reading.Condition `json:"condition"`
	Total      int               `json:"total"`

	// Recent holds the newest readings first.
	Recent []reading.Reading `json:"recent"`

	Temperature []Point `json:"temperature"`
	Humidity    []Point `json:"humidity"`
	Pressure    []Point `json:"pressure"`

	Forecast *forecast.Forecast `json:"forecast,omitempty"`
}

// Summarize builds a Summary from a log in insertion order. Times are shown
// in loc and Recent is capped at history entries.
func Summarize(readings []reading.Reading, loc *time.Location, history int, th reading.Thresholds) Summary {
	if len(readings) == 0 {
		return Summary{Condition: reading.ConditionUnknown}
	}
	if loc == nil {
		loc = time.UTC
	}

	latest := readings[len(readings)-1]
	s := Summary{
		HasData:   true,
		Latest:    latest,
		Condition: th.Classify(latest),
		Total:     len(readings),
		Recent:    newestFirst(readings, history),
	}
	if ts, ok := latest.Time(); ok {
		s.ObservedAt = ts.In(loc)
	}

	for _, r := range readings {
		ts, ok := r.Time()
		if !ok {
			continue
		}
		ts = ts.In(loc)
		if v, ok := r.Float(reading.FieldTemperature); ok {
			s.Temperature = append(s.Temperature, Point{Time: ts, Value: v})
		}
		if v, ok := r.Float(reading.FieldHumidity); ok {
			s.Humidity = append(s.Humidity, Point{Time: ts, Value: v})
		}
		if v, ok := r.Float(reading.FieldPressure); ok {
			s.Pressure = append(s.Pressure, Point{Time: ts, Value: v})
		}
	}

	return s
}

// newestFirst orders readings by timestamp descending and returns at most
// limit of them. Readings without a timestamp sort last; ties keep the most
// recent arrival first.
func newestFirst(readings []reading.Reading, limit int) []reading.Reading {
	out := make([]reading.Reading, 0, len(readings))
	for i := len(readings) - 1; i >= 0; i-- {
		out = append(out, readings[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, okI := out[i].Time()
		tj, okJ := out[j].Time()
		switch {
		case okI && !okJ:
			return true
		case !okI:
			return false
		default:
			return ti.After(tj)
		}
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Banner is the one-line status shown at the top of a dashboard.
func (s Summary) Banner() string {
	if !s.HasData {
		return "Waiting for sensor data..."
	}

	var b strings.Builder
	if s.ObservedAt.IsZero() {
		b.WriteString("Latest reading")
	} else {
		fmt.Fprintf(&b, "Latest reading %s", s.ObservedAt.Format("02 Jan 2006, 15:04:05 MST"))
	}

	metrics := []struct {
		field  string
		format string
	}{
		{reading.FieldTemperature, "%.1f°C"},
		{reading.FieldHumidity, "%.1f%%"},
		{reading.FieldPressure, "%.1f hPa"},
		{reading.FieldLight, "light %.0f"},
		{reading.FieldRainIndex, "imcs %.2f"},
	}
	var parts []string
	for _, m := range metrics {
		if v, ok := s.Latest.Float(m.field); ok {
			parts = append(parts, fmt.Sprintf(m.format, v))
		}
	}
	if len(parts) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(parts, " "))
	}

	b.WriteString(" | ")
	b.WriteString(s.Condition.Label())
	return b.String()
}
