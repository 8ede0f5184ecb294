// Package reading models a single sensor observation as pushed by the
// weather station device.
package reading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Field names sent by the station firmware.
const (
	FieldTimestamp   = "timestamp"
	FieldTemperature = "suhu"
	FieldHumidity    = "kelembapan"
	FieldPressure    = "tekanan"
	FieldLight       = "cahaya"
	FieldRain        = "hujan"
	FieldRainIndex   = "imcs"
)

// ErrMalformed is returned when a payload is not a JSON object.
var ErrMalformed = errors.New("reading is not a JSON object")

// Reading is one sensor observation: an open set of named fields kept in the
// order the device sent them. No field is required. Values are kept as the
// raw JSON the device sent, so numbers and nested objects are written back
// exactly as received.
type Reading struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// New returns an empty reading.
func New() Reading {
	return Reading{fields: orderedmap.New[string, json.RawMessage]()}
}

// Decode parses a serialized reading. Anything other than a JSON object
// (arrays, scalars, null, truncated input) fails with ErrMalformed.
func Decode(data []byte) (Reading, error) {
	r := New()
	if err := r.UnmarshalJSON(data); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// Set adds or replaces a field with the JSON encoding of value. New fields
// go to the end.
func (r *Reading) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode field %q: %w", key, err)
	}
	return r.SetRaw(key, raw)
}

// SetRaw adds or replaces a field with an already encoded JSON value.
func (r *Reading) SetRaw(key string, raw json.RawMessage) error {
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return fmt.Errorf("field %q: invalid JSON value", key)
	}
	if r.fields == nil {
		r.fields = orderedmap.New[string, json.RawMessage]()
	}
	r.fields.Set(key, append(json.RawMessage(nil), raw...))
	return nil
}

// Raw returns the JSON encoding of a field as received.
func (r Reading) Raw(key string) (json.RawMessage, bool) {
	if r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Get returns the decoded value of a field. Numbers decode as json.Number
// so large integers keep every digit.
func (r Reading) Get(key string) (any, bool) {
	raw, ok := r.Raw(key)
	if !ok {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// Len returns the number of fields.
func (r Reading) Len() int {
	if r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Keys returns the field names in insertion order.
func (r Reading) Keys() []string {
	if r.fields == nil {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Float returns a field as a float64. Numeric strings are accepted since some
// firmware revisions send values formatted with dtostrf.
func (r Reading) Float(key string) (float64, bool) {
	raw, ok := r.Raw(key)
	if !ok || len(raw) == 0 {
		return 0, false
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Time returns the device timestamp (Unix seconds) as UTC.
func (r Reading) Time() (time.Time, bool) {
	secs, ok := r.Float(FieldTimestamp)
	if !ok || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
}

// MarshalJSON encodes the reading as a JSON object, fields in order.
func (r Reading) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return r.fields.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object into the reading.
func (r *Reading) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrMalformed
	}

	fields := orderedmap.New[string, json.RawMessage]()
	if err := fields.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	r.fields = fields
	return nil
}
