// Package store implements the reading log: an append-only, bounded,
// insertion-ordered list of sensor readings persisted as a single JSON
// array blob.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/syakhish/weather-monitor/internal/metrics"
	"github.com/syakhish/weather-monitor/internal/reading"
)

// DefaultRetention is the number of readings kept when none is configured.
const DefaultRetention = 1000

var (
	// ErrMalformedInput is returned when an appended payload is not a JSON
	// object. Nothing is written.
	ErrMalformedInput = reading.ErrMalformed

	// ErrStorageUnavailable is returned when the backend cannot be read or
	// written. The previously persisted log is left untouched.
	ErrStorageUnavailable = errors.New("reading storage unavailable")

	// ErrNoState is returned by a Backend that has never been saved to.
	ErrNoState = errors.New("no persisted reading log")
)

// Backend persists the serialized log as one opaque blob. Save must replace
// the previous blob atomically: a concurrent Load sees the old or the new
// blob, never a mix.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Log is the reading store. Appends are serialized; reads share the lock and
// never observe a half-applied append.
type Log struct {
	mu        sync.RWMutex
	backend   Backend
	retention int
	log       zerolog.Logger
	metrics   *metrics.StoreMetrics
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the logger used for recovery and failure events.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Log) {
		l.log = log
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(l *Log) {
		l.metrics = m
	}
}

// New creates a Log on top of backend keeping at most retention readings.
// A retention <= 0 means DefaultRetention.
func New(backend Backend, retention int, opts ...Option) *Log {
	if retention <= 0 {
		retention = DefaultRetention
	}

	l := &Log{
		backend:   backend,
		retention: retention,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Retention returns the retention ceiling.
func (l *Log) Retention() int {
	return l.retention
}

// AppendJSON decodes body as a reading and appends it.
func (l *Log) AppendJSON(ctx context.Context, body []byte) error {
	r, err := reading.Decode(body)
	if err != nil {
		l.metrics.Append("malformed")
		return err
	}
	return l.Append(ctx, r)
}

// Append adds r to the end of the log, evicting the oldest readings beyond
// the retention ceiling, and persists the result.
func (l *Log) Append(ctx context.Context, r reading.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := l.load(ctx)
	if err != nil {
		l.metrics.Append("unavailable")
		return err
	}

	entries = append(entries, r)
	if over := len(entries) - l.retention; over > 0 {
		entries = entries[over:]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		l.metrics.Append("malformed")
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	start := time.Now()
	err = l.backend.Save(ctx, data)
	l.metrics.ObserveBackend("save", start)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to persist reading log")
		l.metrics.Append("unavailable")
		return fmt.Errorf("%w: save: %w", ErrStorageUnavailable, err)
	}

	l.metrics.Append("ok")
	l.metrics.Entries(len(entries))
	l.log.Debug().Int("entries", len(entries)).Msg("reading appended")
	return nil
}

// ReadAll returns every retained reading in insertion order. A log that was
// never written, or whose persisted form is unparseable, reads as empty.
func (l *Log) ReadAll(ctx context.Context) ([]reading.Reading, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries, err := l.load(ctx)
	if err != nil {
		l.metrics.Read("unavailable")
		return nil, err
	}
	if entries == nil {
		entries = []reading.Reading{}
	}

	l.metrics.Read("ok")
	return entries, nil
}

// Len returns the number of retained readings. It backs health checks and
// is not counted as a read.
func (l *Log) Len(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Close releases the backend.
func (l *Log) Close() error {
	return l.backend.Close()
}

// load must be called with l.mu held.
func (l *Log) load(ctx context.Context) ([]reading.Reading, error) {
	start := time.Now()
	data, err := l.backend.Load(ctx)
	l.metrics.ObserveBackend("load", start)

	if errors.Is(err, ErrNoState) {
		return nil, nil
	}
	if err != nil {
		l.log.Error().Err(err).Msg("failed to load reading log")
		return nil, fmt.Errorf("%w: load: %w", ErrStorageUnavailable, err)
	}

	var entries []reading.Reading
	if err := json.Unmarshal(data, &entries); err != nil {
		// Corrupt state is recovered as an empty log rather than blocking
		// appends; the next append overwrites it.
		l.log.Warn().Err(err).Int("bytes", len(data)).Msg("persisted reading log is unparseable, treating as empty")
		l.metrics.Corrupt()
		return nil, nil
	}

	return entries, nil
}
