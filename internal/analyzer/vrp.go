package analyzer

import (
	"fmt"

	"ivcrush/internal/config"
	"ivcrush/pkg/model"
)

// EvaluateVRP compares the implied move against the recency-weighted
// historical mean and maps the ratio to a discrete edge tier using the
// profile's thresholds. Pure function; the ratio is never fabricated when
// the historical mean is unusable.
func EvaluateVRP(implied *model.ImpliedMoveResult, stats *model.MoveStats, profile config.Profile) (*model.VRPResult, error) {
	if stats == nil || stats.Events < profile.MinHistory {
		return nil, fmt.Errorf("%w: cannot form VRP ratio", ErrInsufficientHistory)
	}
	if stats.WeightedAbsPct <= 0 {
		return nil, fmt.Errorf("%w: historical mean move is zero", ErrInsufficientHistory)
	}

	ratio := implied.ImpliedMovePct / stats.WeightedAbsPct

	edge := (ratio - 1.0) * stats.Consistency
	if edge < 0 {
		edge = 0
	}

	return &model.VRPResult{
		ImpliedMovePct:    implied.ImpliedMovePct,
		HistoricalMeanPct: stats.WeightedAbsPct,
		Ratio:             ratio,
		Tier:              tierFor(ratio, profile),
		EdgeScore:         edge,
		Consistency:       stats.Consistency,
		Events:            stats.Events,
	}, nil
}

func tierFor(ratio float64, profile config.Profile) model.VRPTier {
	switch {
	case ratio >= profile.ExcellentRatio:
		return model.VRPExcellent
	case ratio >= profile.GoodRatio:
		return model.VRPGood
	case ratio >= profile.MarginalRatio:
		return model.VRPMarginal
	default:
		return model.VRPSkip
	}
}
