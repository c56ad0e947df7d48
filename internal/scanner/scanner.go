// Package scanner runs the evaluation engine across upcoming earnings
// events with a worker pool.
package scanner

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ivcrush/internal/config"
	"ivcrush/internal/engine"
	"ivcrush/internal/provider"
	"ivcrush/internal/symbols"
	"ivcrush/pkg/model"
)

// ProgressCallback is called with progress updates
type ProgressCallback func(scanned, total int)

// Scanner evaluates earnings events in parallel
type Scanner struct {
	provider     provider.Provider
	calendar     *symbols.CalendarLoader
	profile      config.Profile
	riskBudget   float64
	workers      int
	timeout      time.Duration
	progressFunc ProgressCallback
}

// NewScanner creates a scanner. The provider should already be wrapped in
// a CachingProvider when the caller scans overlapping events.
func NewScanner(p provider.Provider, cal *symbols.CalendarLoader, profile config.Profile, riskBudget float64, workers int, timeout time.Duration) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		provider:   p,
		calendar:   cal,
		profile:    profile,
		riskBudget: riskBudget,
		workers:    workers,
		timeout:    timeout,
	}
}

// SetProgressCallback sets the progress callback function
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// outcome pairs one event with either its result or a skip reason
type outcome struct {
	result *model.AnalysisResult
	skip   *model.ScanSkip
}

// Scan evaluates every event, collecting tradeable results sorted by the
// top strategy's score.
func (s *Scanner) Scan(ctx context.Context, events []model.EarningsEvent) (*model.ScanResult, error) {
	startTime := time.Now()

	scan := &model.ScanResult{
		Profile:      s.profile.Name,
		TotalScanned: len(events),
		Results:      []model.AnalysisResult{},
	}
	if len(events) == 0 {
		scan.ScanTime = time.Since(startTime)
		return scan, nil
	}

	scan.From, scan.To = events[0].Date, events[0].Date
	for _, e := range events[1:] {
		if e.Date.Before(scan.From) {
			scan.From = e.Date
		}
		if e.Date.After(scan.To) {
			scan.To = e.Date
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	jobChan := make(chan model.EarningsEvent, len(events))
	outChan := make(chan outcome, len(events))
	for _, event := range events {
		jobChan <- event
	}
	close(jobChan)

	var scannedCount int64
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			eng := engine.New(s.profile, s.riskBudget)

			for event := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					outChan <- s.outcomeFor(ctx, eng, event)
					count := atomic.AddInt64(&scannedCount, 1)
					if s.progressFunc != nil {
						s.progressFunc(int(count), len(events))
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(outChan)
	}()

	for out := range outChan {
		if out.result != nil {
			scan.Results = append(scan.Results, *out.result)
		}
		if out.skip != nil {
			scan.Skipped = append(scan.Skipped, *out.skip)
		}
	}

	sort.Slice(scan.Results, func(i, j int) bool {
		return scan.Results[i].RankedStrategies[0].Score > scan.Results[j].RankedStrategies[0].Score
	})

	scan.ScanTime = time.Since(startTime)
	return scan, nil
}

func (s *Scanner) outcomeFor(ctx context.Context, eng *engine.Engine, event model.EarningsEvent) outcome {
	result, err := s.analyze(ctx, eng, event, model.Neutral)
	if err != nil {
		return outcome{skip: &model.ScanSkip{Ticker: event.Ticker, Reason: err.Error()}}
	}
	if len(result.RankedStrategies) == 0 {
		return outcome{skip: &model.ScanSkip{Ticker: event.Ticker, Reason: result.NoTradeReason}}
	}
	return outcome{result: result}
}

// AnalyzeEvent evaluates a single earnings event with an explicit bias.
// Unlike Scan, a no-trade outcome comes back as a result, not a skip.
func (s *Scanner) AnalyzeEvent(ctx context.Context, event model.EarningsEvent, bias model.Bias) (*model.AnalysisResult, error) {
	return s.analyze(ctx, engine.New(s.profile, s.riskBudget), event, bias)
}

// analyze builds the snapshot for one event and runs it through the engine
func (s *Scanner) analyze(ctx context.Context, eng *engine.Engine, event model.EarningsEvent, bias model.Bias) (*model.AnalysisResult, error) {
	expiration, err := s.expirationAfter(ctx, event)
	if err != nil {
		return nil, err
	}
	chain, err := s.provider.GetChain(ctx, event.Ticker, expiration)
	if err != nil {
		return nil, err
	}
	past, err := s.calendar.Past(ctx, event.Ticker, s.profile.LookbackEvents)
	if err != nil {
		return nil, err
	}
	moves, err := s.provider.GetHistoricalMoves(ctx, event.Ticker, past)
	if err != nil {
		return nil, err
	}

	return eng.Evaluate(engine.Snapshot{
		Ticker:       event.Ticker,
		EarningsDate: event.Date,
		Spot:         chain.Spot,
		Chain:        chain,
		Moves:        moves,
		Bias:         bias,
	})
}

// expirationAfter picks the first expiration on or after the report's
// reaction session, the one whose premium carries the event.
func (s *Scanner) expirationAfter(ctx context.Context, event model.EarningsEvent) (time.Time, error) {
	expirations, err := s.provider.GetExpirations(ctx, event.Ticker)
	if err != nil {
		return time.Time{}, err
	}

	earliest := event.Date
	if event.Session == model.AfterClose {
		earliest = event.Date.AddDate(0, 0, 1)
	}

	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })
	for _, exp := range expirations {
		if !exp.Before(earliest) {
			return exp, nil
		}
	}
	return time.Time{}, &provider.ProviderError{
		Provider:  s.provider.Name(),
		Err:       errNoExpiration(event.Ticker),
		Retryable: false,
	}
}

type errNoExpiration string

func (e errNoExpiration) Error() string {
	return "no expiration after earnings for " + string(e)
}
