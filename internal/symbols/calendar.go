package symbols

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ivcrush/internal/provider"
	"ivcrush/pkg/model"
)

// CalendarLoader resolves upcoming and past earnings events, from the
// provider's calendar when one is wired and from a YAML file otherwise.
type CalendarLoader struct {
	provider provider.Provider
	fixed    []model.EarningsEvent // file-loaded events, checked first
}

// NewCalendarLoader creates a loader backed by the given provider. The
// provider may be nil when events come only from a file.
func NewCalendarLoader(p provider.Provider) *CalendarLoader {
	return &CalendarLoader{provider: p}
}

// AddEvents registers fixed events directly, the programmatic equivalent
// of LoadFile.
func (l *CalendarLoader) AddEvents(events ...model.EarningsEvent) {
	l.fixed = append(l.fixed, events...)
}

// calendarFile is the YAML shape for a fixed calendar:
//
//	events:
//	  - ticker: NVDA
//	    date: 2026-02-25
//	    session: AMC
type calendarFile struct {
	Events []struct {
		Ticker  string `yaml:"ticker"`
		Date    string `yaml:"date"`
		Session string `yaml:"session"`
	} `yaml:"events"`
}

// LoadFile adds events from a YAML calendar file. File events take
// precedence over provider lookups for the range they cover.
func (l *CalendarLoader) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading calendar: %w", err)
	}

	var file calendarFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing calendar: %w", err)
	}

	for _, e := range file.Events {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return fmt.Errorf("parsing calendar: %s: bad date %q", e.Ticker, e.Date)
		}
		session := model.AfterClose
		if strings.EqualFold(e.Session, "BMO") {
			session = model.BeforeOpen
		}
		l.fixed = append(l.fixed, model.EarningsEvent{
			Ticker:  strings.ToUpper(strings.TrimSpace(e.Ticker)),
			Date:    date,
			Session: session,
		})
	}
	return nil
}

// Upcoming returns the universe's earnings events in the next daysAhead
// days, soonest first.
func (l *CalendarLoader) Upcoming(ctx context.Context, universe Universe, from time.Time, daysAhead int) ([]model.EarningsEvent, error) {
	to := from.AddDate(0, 0, daysAhead)

	events := l.fixedInRange(from, to)
	if len(events) == 0 && l.provider != nil {
		fetched, err := l.provider.GetEarningsCalendar(ctx, from, to)
		if err != nil {
			return nil, fmt.Errorf("loading earnings calendar: %w", err)
		}
		events = fetched
	}

	filtered := make([]model.EarningsEvent, 0, len(events))
	for _, e := range events {
		if Contains(universe, e.Ticker) {
			filtered = append(filtered, e)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date.Before(filtered[j].Date) })
	return filtered, nil
}

// Past returns a ticker's historical earnings events over roughly the
// given number of quarters, oldest first. The analyzer needs these to
// bracket realized moves.
func (l *CalendarLoader) Past(ctx context.Context, ticker string, quarters int) ([]model.EarningsEvent, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	now := time.Now().UTC()
	from := now.AddDate(0, -3*quarters-1, 0)

	var events []model.EarningsEvent
	for _, e := range l.fixed {
		if e.Ticker == ticker && e.Date.Before(now) && !e.Date.Before(from) {
			events = append(events, e)
		}
	}
	if len(events) == 0 && l.provider != nil {
		fetched, err := l.provider.GetEarningsCalendar(ctx, from, now)
		if err != nil {
			return nil, fmt.Errorf("loading past earnings for %s: %w", ticker, err)
		}
		for _, e := range fetched {
			if e.Ticker == ticker {
				events = append(events, e)
			}
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

func (l *CalendarLoader) fixedInRange(from, to time.Time) []model.EarningsEvent {
	var events []model.EarningsEvent
	for _, e := range l.fixed {
		if !e.Date.Before(from) && !e.Date.After(to) {
			events = append(events, e)
		}
	}
	return events
}
