// Package engine wires the analyzers, the strategy constructor and the
// scorer into one evaluation of a ticker ahead of its earnings report.
// It is pure orchestration: no I/O, no logging, deterministic for a given
// snapshot, so callers can cache or replay results freely.
package engine

import (
	"fmt"
	"time"

	"ivcrush/internal/analyzer"
	"ivcrush/internal/config"
	"ivcrush/internal/scoring"
	"ivcrush/internal/strategy"
	"ivcrush/pkg/model"
)

// Snapshot is everything Evaluate needs about one ticker, captured by the
// provider layer at a single point in time.
type Snapshot struct {
	Ticker       string
	EarningsDate time.Time
	Spot         float64
	Chain        *model.OptionChain   // first expiration after the earnings date
	Moves        []model.HistoricalMove
	Bias         model.Bias // defaults to neutral when empty
}

// CacheKey identifies one evaluation. Two calls with the same key and the
// same snapshot produce the same result.
type CacheKey struct {
	Ticker     string
	Expiration time.Time
	Profile    string
}

// Cache is an optional caller-owned result cache. The engine never evicts;
// ownership of retention policy stays with the caller.
type Cache interface {
	Get(key CacheKey) (*model.AnalysisResult, bool)
	Put(key CacheKey, result *model.AnalysisResult)
}

// Engine evaluates snapshots under one named profile
type Engine struct {
	profile     config.Profile
	constructor *strategy.Constructor
	scorer      *scoring.Scorer
	cache       Cache
}

// New builds an engine for the given profile and per-trade risk budget.
// Cache is nil by default; attach one with WithCache.
func New(profile config.Profile, riskBudget float64) *Engine {
	return &Engine{
		profile:     profile,
		constructor: strategy.NewConstructor(profile, riskBudget),
		scorer:      scoring.NewScorer(profile),
	}
}

// WithCache attaches a result cache and returns the engine for chaining
func (e *Engine) WithCache(c Cache) *Engine {
	e.cache = c
	return e
}

// Evaluate runs the full pipeline on one snapshot: implied move, historical
// aggregation, VRP evaluation, strategy construction, scoring and ranking.
//
// Insufficient chain data or history surfaces as an error for the caller to
// log and skip. A clean evaluation that finds nothing worth trading is not
// an error: the result comes back with an empty RankedStrategies slice and
// a NoTradeReason.
func (e *Engine) Evaluate(snap Snapshot) (*model.AnalysisResult, error) {
	if snap.Chain == nil {
		return nil, fmt.Errorf("evaluate %s: %w: no option chain", snap.Ticker, analyzer.ErrInsufficientData)
	}

	key := CacheKey{Ticker: snap.Ticker, Expiration: snap.Chain.Expiration, Profile: e.profile.Name}
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
	}

	implied, err := analyzer.ImpliedMove(snap.Chain, snap.Spot, e.profile)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", snap.Ticker, err)
	}
	stats, err := analyzer.AggregateMoves(snap.Moves, e.profile)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", snap.Ticker, err)
	}
	vrp, err := analyzer.EvaluateVRP(implied, stats, e.profile)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", snap.Ticker, err)
	}

	bias := snap.Bias
	if bias == "" {
		bias = model.Neutral
	}

	ranked := e.scorer.Rank(e.constructor.Build(snap.Chain, implied, vrp, bias), vrp)

	result := &model.AnalysisResult{
		Ticker:           snap.Ticker,
		EarningsDate:     snap.EarningsDate,
		Expiration:       snap.Chain.Expiration,
		Profile:          e.profile.Name,
		Bias:             bias,
		Spot:             snap.Spot,
		ImpliedMove:      implied,
		MoveStats:        stats,
		VRP:              vrp,
		RankedStrategies: ranked,
	}
	if top := result.Recommended(); top != nil {
		if top.Liquidity != nil {
			result.LiquiditySummary = top.Liquidity.Overall
		}
	} else {
		result.NoTradeReason = noTradeReason(vrp, bias)
	}

	if e.cache != nil {
		e.cache.Put(key, result)
	}
	return result, nil
}

func noTradeReason(vrp *model.VRPResult, bias model.Bias) string {
	if !vrp.Tier.AtLeast(model.VRPGood) {
		return fmt.Sprintf("%s VRP at %.1fx is below the tradeable bar", vrp.Tier, vrp.Ratio)
	}
	return fmt.Sprintf("no %s structure cleared liquidity at %.1fx VRP", bias, vrp.Ratio)
}

// MemoryCache is a plain map-backed Cache for single-goroutine use, enough
// for the CLI's one-shot runs. The scanner shards work by ticker so it
// never shares one of these across workers.
type MemoryCache struct {
	results map[CacheKey]*model.AnalysisResult
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{results: make(map[CacheKey]*model.AnalysisResult)}
}

func (c *MemoryCache) Get(key CacheKey) (*model.AnalysisResult, bool) {
	r, ok := c.results[key]
	return r, ok
}

func (c *MemoryCache) Put(key CacheKey, result *model.AnalysisResult) {
	c.results[key] = result
}
