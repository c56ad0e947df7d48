// Package backtest replays recorded earnings events through the analysis
// engine and settles each pick against the realized move.
package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"ivcrush/internal/config"
	"ivcrush/internal/engine"
	"ivcrush/internal/provider"
	"ivcrush/internal/symbols"
	"ivcrush/pkg/model"
)

// Config holds replay parameters
type Config struct {
	RiskBudget float64
	Quarters   int // how far back to replay, per ticker

	// IVPremium is the assumed implied/realized richness used to
	// reconstruct pre-event option prices, since no provider serves
	// historical chains. At 3.0 the engine sees every event priced at
	// three times its trailing realized move.
	IVPremium float64
}

// DefaultConfig returns replay defaults: two years back, entries priced
// rich enough to clear the balanced profile's tradeable bar.
func DefaultConfig() Config {
	return Config{
		RiskBudget: 2000,
		Quarters:   8,
		IVPremium:  3.0,
	}
}

// Trade is one replayed event that produced a position
type Trade struct {
	Ticker          string             `json:"ticker"`
	Date            time.Time          `json:"date"`
	Strategy        model.StrategyType `json:"strategy"`
	Score           float64            `json:"score"`
	ImpliedMovePct  float64            `json:"implied_move_pct"`
	RealizedMovePct float64            `json:"realized_move_pct"`
	Credit          float64            `json:"credit"` // per share
	PnLPerShare     float64            `json:"pnl_per_share"`
	PnL             float64            `json:"pnl"` // dollars across the sized position
	IsWin           bool               `json:"is_win"`
}

// Result aggregates a replay across tickers
type Result struct {
	Period       string  `json:"period"`
	TotalEvents  int     `json:"total_events"`
	NoTrades     int     `json:"no_trades"` // events the engine declined
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	TotalPnL     float64 `json:"total_pnl"`
	AvgPnL       float64 `json:"avg_pnl"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"` // expected dollars per trade

	AvgImpliedPct  float64 `json:"avg_implied_pct"`
	AvgRealizedPct float64 `json:"avg_realized_pct"`

	MaxWinStreak  int `json:"max_win_streak"`
	MaxLoseStreak int `json:"max_lose_streak"`

	Trades []Trade `json:"trades"`
}

// Backtester replays historical earnings through the engine
type Backtester struct {
	provider provider.Provider
	calendar *symbols.CalendarLoader
	profile  config.Profile
	cfg      Config
}

// NewBacktester creates a backtester
func NewBacktester(p provider.Provider, cal *symbols.CalendarLoader, profile config.Profile, cfg Config) *Backtester {
	return &Backtester{provider: p, calendar: cal, profile: profile, cfg: cfg}
}

// Run replays the tickers' recorded earnings. Each event is evaluated with
// only the history that preceded it, entered at the top-ranked structure,
// and settled at the post-event close.
func (b *Backtester) Run(ctx context.Context, tickers []string) (*Result, error) {
	result := &Result{Trades: make([]Trade, 0)}
	var first, last time.Time

	for _, ticker := range tickers {
		past, err := b.calendar.Past(ctx, ticker, b.cfg.Quarters+b.profile.LookbackEvents)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", ticker, err)
		}
		moves, err := b.provider.GetHistoricalMoves(ctx, ticker, past)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", ticker, err)
		}

		for i := b.profile.MinHistory; i < len(moves); i++ {
			event := moves[i]
			result.TotalEvents++
			if first.IsZero() || event.Date.Before(first) {
				first = event.Date
			}
			if event.Date.After(last) {
				last = event.Date
			}

			trade, traded := b.replayEvent(ticker, moves[:i], event)
			if !traded {
				result.NoTrades++
				continue
			}
			result.Trades = append(result.Trades, trade)
		}
	}

	if !first.IsZero() {
		result.Period = first.Format("2006-01-02") + " ~ " + last.Format("2006-01-02")
	}
	b.calculateStats(result)
	return result, nil
}

// replayEvent evaluates one event against its trailing history and settles
// the top-ranked structure at the realized close.
func (b *Backtester) replayEvent(ticker string, trailing []model.HistoricalMove, event model.HistoricalMove) (Trade, bool) {
	spot := event.PreClose
	if spot <= 0 {
		return Trade{}, false
	}

	impliedPct := trailingMeanAbs(trailing, b.profile) * b.cfg.IVPremium
	if impliedPct <= 0 {
		return Trade{}, false
	}

	expiration := event.Date.AddDate(0, 0, 7)
	chain := syntheticChain(ticker, expiration, spot, impliedPct)

	eng := engine.New(b.profile, b.cfg.RiskBudget)
	analysis, err := eng.Evaluate(engine.Snapshot{
		Ticker:       ticker,
		EarningsDate: event.Date,
		Spot:         spot,
		Chain:        chain,
		Moves:        trailing,
		Bias:         model.Neutral,
	})
	if err != nil || len(analysis.RankedStrategies) == 0 {
		return Trade{}, false
	}
	top := analysis.RankedStrategies[0]

	settle := event.PostClose
	if settle <= 0 {
		settle = spot * (1 + event.MovePct/100)
	}

	perShare := settlePerShare(&top, settle)
	contracts := top.Contracts
	if contracts < 1 {
		contracts = 1
	}

	return Trade{
		Ticker:          ticker,
		Date:            event.Date,
		Strategy:        top.Type,
		Score:           top.Score,
		ImpliedMovePct:  impliedPct,
		RealizedMovePct: event.MovePct,
		Credit:          top.NetCredit,
		PnLPerShare:     perShare,
		PnL:             perShare * 100 * float64(contracts),
		IsWin:           perShare > 0,
	}, true
}

// settlePerShare values a structure at expiration: credit kept, minus what
// the short legs owe, plus what the long legs pay back.
func settlePerShare(strat *model.Strategy, settle float64) float64 {
	pnl := strat.NetCredit
	for _, leg := range strat.Legs {
		var intrinsic float64
		if leg.Side == model.Call {
			intrinsic = math.Max(0, settle-leg.Strike)
		} else {
			intrinsic = math.Max(0, leg.Strike-settle)
		}
		qty := float64(leg.Quantity)
		if qty == 0 {
			qty = 1
		}
		if leg.Direction == model.LongLeg {
			pnl += intrinsic * qty
		} else {
			pnl -= intrinsic * qty
		}
	}
	return pnl
}

// trailingMeanAbs mirrors the aggregator's recency weighting over the
// trailing window, without its minimum-history gate.
func trailingMeanAbs(moves []model.HistoricalMove, profile config.Profile) float64 {
	if len(moves) > profile.LookbackEvents {
		moves = moves[len(moves)-profile.LookbackEvents:]
	}
	if len(moves) == 0 {
		return 0
	}
	var sum, weightSum float64
	for i, m := range moves {
		lag := len(moves) - 1 - i
		w := math.Pow(profile.DecayFactor, float64(lag))
		sum += math.Abs(m.MovePct) * w
		weightSum += w
	}
	return sum / weightSum
}

func (b *Backtester) calculateStats(result *Result) {
	if len(result.Trades) == 0 {
		return
	}

	var totalWin, totalLoss float64
	var implied, realized float64
	var winStreak, loseStreak int

	for _, t := range result.Trades {
		result.TotalPnL += t.PnL
		implied += t.ImpliedMovePct
		realized += math.Abs(t.RealizedMovePct)

		if t.IsWin {
			result.Wins++
			totalWin += t.PnL
			if t.PnL > result.LargestWin {
				result.LargestWin = t.PnL
			}
			winStreak++
			loseStreak = 0
			if winStreak > result.MaxWinStreak {
				result.MaxWinStreak = winStreak
			}
		} else {
			result.Losses++
			totalLoss += math.Abs(t.PnL)
			if t.PnL < result.LargestLoss {
				result.LargestLoss = t.PnL
			}
			loseStreak++
			winStreak = 0
			if loseStreak > result.MaxLoseStreak {
				result.MaxLoseStreak = loseStreak
			}
		}
	}

	result.TotalTrades = len(result.Trades)
	result.WinRate = float64(result.Wins) / float64(result.TotalTrades) * 100
	result.AvgPnL = result.TotalPnL / float64(result.TotalTrades)
	result.AvgImpliedPct = implied / float64(result.TotalTrades)
	result.AvgRealizedPct = realized / float64(result.TotalTrades)

	if result.Wins > 0 {
		result.AvgWin = totalWin / float64(result.Wins)
	}
	if result.Losses > 0 {
		result.AvgLoss = totalLoss / float64(result.Losses)
	}
	if totalLoss > 0 {
		result.ProfitFactor = totalWin / totalLoss
	}
	result.Expectancy = result.WinRate/100*result.AvgWin - (100-result.WinRate)/100*result.AvgLoss
}
