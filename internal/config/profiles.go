package config

import (
	"fmt"
	"math"
)

// ValidationError reports a profile or config value that fails validation
type ValidationError struct {
	Profile string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Profile != "" {
		return fmt.Sprintf("invalid configuration: profile %q: %s: %s", e.Profile, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ScoreWeights are the composite-score component weights. They must sum to 1.0.
type ScoreWeights struct {
	POP        float64 `yaml:"pop"`
	Liquidity  float64 `yaml:"liquidity"`
	VRPEdge    float64 `yaml:"vrp_edge"`
	RewardRisk float64 `yaml:"reward_risk"`
	Greeks     float64 `yaml:"greeks"`
}

// Sum returns the total weight
func (w ScoreWeights) Sum() float64 {
	return w.POP + w.Liquidity + w.VRPEdge + w.RewardRisk + w.Greeks
}

// Profile is one named set of thresholds and weights. Every component reads
// its knobs from here; nothing downstream hardcodes a threshold.
type Profile struct {
	Name string `yaml:"name"`

	// Historical-move aggregation
	MinHistory     int     `yaml:"min_history"`     // minimum past events required
	LookbackEvents int     `yaml:"lookback_events"` // window of most recent events
	DecayFactor    float64 `yaml:"decay_factor"`    // recency weight per quarter of lag

	// Implied-move calculation
	ATMRangePct float64 `yaml:"atm_range_pct"` // max strike distance from spot, percent

	// VRP tier thresholds (ratio = implied / historical mean)
	MarginalRatio  float64 `yaml:"marginal_ratio"`
	GoodRatio      float64 `yaml:"good_ratio"`
	ExcellentRatio float64 `yaml:"excellent_ratio"`

	// Liquidity bands
	OITarget        int     `yaml:"oi_target"`         // EXCELLENT at >=5x, GOOD 2-5x, WARNING 1-2x
	OIFloor         int     `yaml:"oi_floor"`          // absolute open-interest floor, hard reject below
	VolumeFloor     int     `yaml:"volume_floor"`      // absolute volume floor, hard reject below
	SpreadExcellent float64 `yaml:"spread_excellent"`  // max spread % for EXCELLENT
	SpreadGood      float64 `yaml:"spread_good"`       // max spread % for GOOD
	SpreadWarning   float64 `yaml:"spread_warning"`    // max spread % for WARNING, REJECT above

	// Strategy construction
	ShortDelta     float64 `yaml:"short_delta"`     // target delta for sold strikes
	WingIncrements int     `yaml:"wing_increments"` // long-wing distance in strike increments
	MaxContracts   int     `yaml:"max_contracts"`

	// Composite scoring
	Weights        ScoreWeights `yaml:"weights"`
	VRPCapMultiple float64      `yaml:"vrp_cap_multiple"`   // sub-score caps at GoodRatio x this
	TargetRR       float64      `yaml:"target_reward_risk"` // credit/max-loss target for full RR weight
}

const weightTolerance = 1e-6

// Validate checks weight totals and threshold monotonicity
func (p Profile) Validate() error {
	if p.MinHistory < 1 {
		return &ValidationError{Profile: p.Name, Field: "min_history", Reason: "must be at least 1"}
	}
	if p.LookbackEvents < p.MinHistory {
		return &ValidationError{Profile: p.Name, Field: "lookback_events", Reason: "must be >= min_history"}
	}
	if p.DecayFactor <= 0 || p.DecayFactor > 1 {
		return &ValidationError{Profile: p.Name, Field: "decay_factor", Reason: "must be in (0, 1]"}
	}
	if p.ATMRangePct <= 0 {
		return &ValidationError{Profile: p.Name, Field: "atm_range_pct", Reason: "must be positive"}
	}
	if !(p.MarginalRatio < p.GoodRatio && p.GoodRatio < p.ExcellentRatio) {
		return &ValidationError{Profile: p.Name, Field: "vrp thresholds", Reason: "must be strictly increasing"}
	}
	if !(p.SpreadExcellent < p.SpreadGood && p.SpreadGood < p.SpreadWarning) {
		return &ValidationError{Profile: p.Name, Field: "spread bands", Reason: "must be strictly increasing"}
	}
	if p.OITarget <= 0 {
		return &ValidationError{Profile: p.Name, Field: "oi_target", Reason: "must be positive"}
	}
	if p.ShortDelta <= 0 || p.ShortDelta >= 0.5 {
		return &ValidationError{Profile: p.Name, Field: "short_delta", Reason: "must be in (0, 0.5)"}
	}
	if p.WingIncrements < 1 {
		return &ValidationError{Profile: p.Name, Field: "wing_increments", Reason: "must be at least 1"}
	}
	if p.MaxContracts < 1 {
		return &ValidationError{Profile: p.Name, Field: "max_contracts", Reason: "must be at least 1"}
	}
	if math.Abs(p.Weights.Sum()-1.0) > weightTolerance {
		return &ValidationError{
			Profile: p.Name,
			Field:   "weights",
			Reason:  fmt.Sprintf("must sum to 1.0, got %.4f", p.Weights.Sum()),
		}
	}
	if p.VRPCapMultiple < 1 {
		return &ValidationError{Profile: p.Name, Field: "vrp_cap_multiple", Reason: "must be at least 1"}
	}
	if p.TargetRR <= 0 {
		return &ValidationError{Profile: p.Name, Field: "target_reward_risk", Reason: "must be positive"}
	}
	return nil
}

// BalancedProfile is the canonical profile: POP 30, liquidity 25, VRP 20,
// reward/risk 15, Greeks 10.
func BalancedProfile() Profile {
	return Profile{
		Name:            "balanced",
		MinHistory:      4,
		LookbackEvents:  12,
		DecayFactor:     0.85,
		ATMRangePct:     10.0,
		MarginalRatio:   1.5,
		GoodRatio:       2.5,
		ExcellentRatio:  4.0,
		OITarget:        500,
		OIFloor:         500,
		VolumeFloor:     100,
		SpreadExcellent: 8.0,
		SpreadGood:      12.0,
		SpreadWarning:   15.0,
		ShortDelta:      0.16,
		WingIncrements:  1,
		MaxContracts:    20,
		Weights: ScoreWeights{
			POP:        0.30,
			Liquidity:  0.25,
			VRPEdge:    0.20,
			RewardRisk: 0.15,
			Greeks:     0.10,
		},
		VRPCapMultiple: 2.0,
		TargetRR:       0.50,
	}
}

// ConsistencyHeavyProfile demands a longer, steadier history and raises the
// EXCELLENT ceiling to 7x before calling an edge exceptional.
func ConsistencyHeavyProfile() Profile {
	p := BalancedProfile()
	p.Name = "consistency-heavy"
	p.MinHistory = 6
	p.DecayFactor = 0.92
	p.ExcellentRatio = 7.0
	p.Weights = ScoreWeights{
		POP:        0.35,
		Liquidity:  0.25,
		VRPEdge:    0.10,
		RewardRisk: 0.15,
		Greeks:     0.15,
	}
	return p
}

// AggressiveProfile accepts thinner edges and sells closer to the money
func AggressiveProfile() Profile {
	p := BalancedProfile()
	p.Name = "aggressive"
	p.MarginalRatio = 1.3
	p.GoodRatio = 2.0
	p.ExcellentRatio = 3.5
	p.ShortDelta = 0.20
	p.MaxContracts = 30
	p.Weights = ScoreWeights{
		POP:        0.25,
		Liquidity:  0.20,
		VRPEdge:    0.30,
		RewardRisk: 0.15,
		Greeks:     0.10,
	}
	return p
}

// BuiltinProfiles returns all named profiles shipped with the scanner
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"balanced":          BalancedProfile(),
		"consistency-heavy": ConsistencyHeavyProfile(),
		"aggressive":        AggressiveProfile(),
	}
}
