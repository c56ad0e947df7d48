// Package daemon runs scheduled pre-market earnings scans.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ivcrush/internal/config"
	"ivcrush/internal/provider"
	"ivcrush/internal/scanner"
	"ivcrush/internal/store"
	"ivcrush/internal/symbols"
)

// Daemon scans the configured universe on a cron schedule and persists
// each run. Scans are skipped on weekends; the schedule itself decides
// the time of day.
type Daemon struct {
	cfg      *config.Config
	provider provider.Provider
	calendar *symbols.CalendarLoader
	store    *store.Store
	log      zerolog.Logger
	cron     *cron.Cron
}

// New creates the daemon. store may be nil; runs are then logged only.
func New(cfg *config.Config, p provider.Provider, cal *symbols.CalendarLoader, st *store.Store, log zerolog.Logger) *Daemon {
	return &Daemon{
		cfg:      cfg,
		provider: p,
		calendar: cal,
		store:    st,
		log:      log.With().Str("component", "daemon").Logger(),
		cron:     cron.New(cron.WithLocation(ETLocation())),
	}
}

// Run blocks until the context is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	schedule := d.cfg.Daemon.Schedule
	if schedule == "" {
		schedule = "30 8 * * 1-5" // 08:30 ET, weekday pre-market
	}

	_, err := d.cron.AddFunc(schedule, func() { d.runScan(ctx) })
	if err != nil {
		return fmt.Errorf("bad daemon schedule %q: %w", schedule, err)
	}

	d.log.Info().
		Str("schedule", schedule).
		Str("universe", d.cfg.Daemon.Universe).
		Msg("daemon started")
	d.cron.Start()

	<-ctx.Done()
	stop := d.cron.Stop()
	<-stop.Done() // let an in-flight scan finish
	d.log.Info().Msg("daemon stopped")
	return nil
}

// RunOnce performs a single scan outside the schedule
func (d *Daemon) RunOnce(ctx context.Context) {
	d.runScan(ctx)
}

func (d *Daemon) runScan(ctx context.Context) {
	status := GetMarketStatus(DefaultMarketSchedule(), time.Now())
	if !status.IsTradingDay {
		d.log.Info().Str("reason", status.Reason).Msg("skipping scan")
		return
	}

	universe := symbols.Universe(d.cfg.Daemon.Universe)
	profile, err := d.cfg.Profile(d.cfg.Analysis.Profile)
	if err != nil {
		d.log.Error().Err(err).Msg("resolving profile")
		return
	}

	events, err := d.calendar.Upcoming(ctx, universe, time.Now(), d.cfg.Scanner.DaysAhead)
	if err != nil {
		d.log.Error().Err(err).Msg("loading earnings calendar")
		return
	}
	if len(events) == 0 {
		d.log.Info().Int("days_ahead", d.cfg.Scanner.DaysAhead).Msg("no upcoming earnings")
		return
	}

	sc := scanner.NewScanner(d.provider, d.calendar, profile, d.cfg.Analysis.RiskBudget,
		d.cfg.Scanner.Workers, d.cfg.Scanner.Timeout)
	scan, err := sc.Scan(ctx, events)
	if err != nil {
		d.log.Error().Err(err).Msg("scan failed")
		return
	}

	event := d.log.Info().
		Int("scanned", scan.TotalScanned).
		Int("tradeable", len(scan.Results)).
		Int("skipped", len(scan.Skipped))
	if len(scan.Results) > 0 {
		top := scan.Results[0].RankedStrategies[0]
		event = event.
			Str("top_ticker", top.Ticker).
			Str("top_strategy", string(top.Type)).
			Float64("top_score", top.Score)
	}
	event.Msg("scan complete")

	if d.store == nil {
		return
	}
	runID, err := d.store.SaveScan(ctx, string(universe), scan)
	if err != nil {
		d.log.Error().Err(err).Msg("saving scan run")
		return
	}
	d.log.Info().Str("run_id", runID).Msg("scan persisted")
}
