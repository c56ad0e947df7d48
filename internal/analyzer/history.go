package analyzer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"ivcrush/internal/config"
	"ivcrush/pkg/model"
)

// AggregateMoves computes summary statistics of a ticker's realized earnings
// moves. The input is ordered most recent last; only the most recent
// profile.LookbackEvents events are considered. The recency-weighted mean
// decays each event's weight by profile.DecayFactor per quarter of lag.
func AggregateMoves(moves []model.HistoricalMove, profile config.Profile) (*model.MoveStats, error) {
	if len(moves) > profile.LookbackEvents {
		moves = moves[len(moves)-profile.LookbackEvents:]
	}
	if len(moves) < profile.MinHistory {
		return nil, fmt.Errorf("%w: %d events, need %d", ErrInsufficientHistory, len(moves), profile.MinHistory)
	}

	abs := make([]float64, len(moves))
	weights := make([]float64, len(moves))
	stats := model.MoveStats{Events: len(moves)}

	for i, m := range moves {
		abs[i] = math.Abs(m.MovePct)
		// most recent event (last) has lag 0
		lag := len(moves) - 1 - i
		weights[i] = math.Pow(profile.DecayFactor, float64(lag))

		if abs[i] > stats.LargestMovePct {
			stats.LargestMovePct = abs[i]
		}
		if m.MovePct >= 0 {
			stats.UpCount++
		} else {
			stats.DownCount++
		}
	}

	stats.MeanAbsPct = stat.Mean(abs, nil)
	stats.WeightedAbsPct = stat.Mean(abs, weights)
	stats.StdDevPct = stat.StdDev(abs, nil)
	stats.Consistency = consistency(stats.MeanAbsPct, stats.StdDevPct)

	return &stats, nil
}

// consistency is the inverse coefficient of variation clamped to [0, 1].
// Identical moves every quarter score 1; erratic histories approach 0.
func consistency(mean, stddev float64) float64 {
	if mean <= 0 {
		return 0
	}
	if stddev <= 0 {
		return 1
	}
	inv := mean / stddev
	if inv > 1 {
		return 1
	}
	return inv
}
