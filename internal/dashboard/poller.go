// Package dashboard polls the reading store on a fixed cadence, keeps a local
// copy of what it fetched and turns it into something a screen can show.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/syakhish/weather-monitor/internal/forecast"
	"github.com/syakhish/weather-monitor/internal/logger"
	"github.com/syakhish/weather-monitor/internal/metrics"
	"github.com/syakhish/weather-monitor/internal/reading"
)

// ReadingSource fetches the full reading log, oldest first.
type ReadingSource interface {
	Readings(ctx context.Context) ([]reading.Reading, error)
}

// ForecastSource fetches a public forecast for the station's location.
type ForecastSource interface {
	Name() string
	Fetch(ctx context.Context) (forecast.Forecast, error)
}

// Options configure a Poller. Zero values fall back to the defaults below.
type Options struct {
	Interval   time.Duration
	Timeout    time.Duration
	History    int
	Location   *time.Location
	Thresholds *reading.Thresholds

	Forecast ForecastSource
	Metrics  *metrics.PollerMetrics
	Logger   zerolog.Logger

	// OnUpdate, when set, is called with the summary after every poll.
	OnUpdate func(Summary)
}

const (
	defaultInterval = 15 * time.Second
	defaultTimeout  = 10 * time.Second
	defaultHistory  = 10
)

// Poller periodically fetches readings into its Cache.
type Poller struct {
	scheduler *gocron.Scheduler
	source    ReadingSource
	cache     *Cache
	opts      Options
	log       zerolog.Logger
}

// NewPoller creates a Poller. It does nothing until Start is called.
func NewPoller(source ReadingSource, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.History <= 0 {
		opts.History = defaultHistory
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Thresholds == nil {
		th := reading.DefaultThresholds
		opts.Thresholds = &th
	}

	return &Poller{
		scheduler: gocron.NewScheduler(time.UTC),
		source:    source,
		cache:     &Cache{},
		opts:      opts,
		log:       logger.Component(opts.Logger, "dashboard"),
	}
}

func (p *Poller) Cache() *Cache {
	return p.cache
}

// Start schedules the poll job and runs the first poll immediately. Polls
// never overlap; a slow poll makes the next tick wait.
func (p *Poller) Start(ctx context.Context) error {
	_, err := p.scheduler.Every(p.opts.Interval).SingletonMode().Do(func() {
		p.PollOnce(ctx)
	})
	if err != nil {
		return err
	}

	p.scheduler.StartAsync()
	p.log.Info().Dur("interval", p.opts.Interval).Msg("poller started")
	return nil
}

// Stop stops the scheduler and cancels any future polls.
func (p *Poller) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}

// PollOnce fetches readings, and the forecast when configured, refreshes the
// cache on success and returns the summary built from the cache. Errors are
// logged and counted; the previous cache is kept.
func (p *Poller) PollOnce(ctx context.Context) Summary {
	if ctx.Err() != nil {
		return p.Summary()
	}

	p.pollReadings(ctx)
	if p.opts.Forecast != nil {
		p.pollForecast(ctx)
	}

	summary := p.Summary()
	p.log.Info().
		Int("readings", summary.Total).
		Str("condition", string(summary.Condition)).
		Msg(summary.Banner())

	if p.opts.OnUpdate != nil {
		p.opts.OnUpdate(summary)
	}
	return summary
}

// pollReadings and pollForecast each get their own timeout so a slow
// readings fetch cannot starve the forecast.
func (p *Poller) pollReadings(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	readings, err := p.source.Readings(ctx)
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		p.log.Debug().Err(err).Msg("poll cancelled")
	case err != nil:
		p.opts.Metrics.Poll("readings", "error")
		p.log.Warn().Err(err).Msg("fetch readings failed, keeping cached data")
	default:
		now := time.Now()
		p.cache.setReadings(readings, now)
		p.opts.Metrics.Poll("readings", "ok")
		p.opts.Metrics.Success(now, len(readings))
	}
}

func (p *Poller) pollForecast(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	fc, err := p.opts.Forecast.Fetch(ctx)
	if err != nil {
		p.opts.Metrics.Poll("forecast", "error")
		p.log.Warn().Err(err).Str("provider", p.opts.Forecast.Name()).Msg("fetch forecast failed")
		return
	}
	p.cache.setForecast(fc)
	p.opts.Metrics.Poll("forecast", "ok")
}

// Summary builds a Summary from the cached data.
func (p *Poller) Summary() Summary {
	snap := p.cache.Snapshot()
	s := Summarize(snap.Readings, p.opts.Location, p.opts.History, *p.opts.Thresholds)
	s.Forecast = snap.Forecast
	return s
}
