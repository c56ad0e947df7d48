// Package liquidity classifies how tradeable a multi-leg structure is from
// per-leg open interest, volume and bid/ask spread. The overall tier is the
// worst tier across all legs; tiers are never averaged.
package liquidity

import (
	"fmt"

	"ivcrush/internal/config"
	"ivcrush/pkg/model"
)

// Classify assesses every leg of a candidate structure against the profile's
// open-interest and spread bands. Two hard filters sit outside the tier
// math: any leg below the absolute open-interest or volume floor rejects the
// whole structure outright, catching near-dead strikes that ratio-based
// banding alone would let through.
func Classify(legs []model.StrategyLeg, profile config.Profile) *model.LiquidityAssessment {
	assessment := &model.LiquidityAssessment{
		Overall: model.LiquidityExcellent,
	}

	for i, leg := range legs {
		q := leg.Quote
		legAssessment := model.LegLiquidity{
			Side:         leg.Side,
			Strike:       leg.Strike,
			OpenInterest: q.OpenInterest,
			Volume:       q.Volume,
			SpreadPct:    q.SpreadPct(),
			OITier:       oiTier(q.OpenInterest, profile.OITarget),
			SpreadTier:   spreadTier(q.SpreadPct(), profile),
		}
		legAssessment.Tier = model.WorseLiquidity(legAssessment.OITier, legAssessment.SpreadTier)

		if i == 0 || q.OpenInterest < assessment.MinOpenInterest {
			assessment.MinOpenInterest = q.OpenInterest
		}
		if i == 0 || q.Volume < assessment.MinVolume {
			assessment.MinVolume = q.Volume
		}
		if legAssessment.SpreadPct > assessment.MaxSpreadPct {
			assessment.MaxSpreadPct = legAssessment.SpreadPct
		}

		// Absolute floors, independent of the banded tiers
		if q.OpenInterest < profile.OIFloor {
			legAssessment.Tier = model.LiquidityReject
			if assessment.Reason == "" {
				assessment.Reason = fmt.Sprintf("%s %.2f open interest %d below floor %d",
					leg.Side, leg.Strike, q.OpenInterest, profile.OIFloor)
			}
		}
		if q.Volume < profile.VolumeFloor {
			legAssessment.Tier = model.LiquidityReject
			if assessment.Reason == "" {
				assessment.Reason = fmt.Sprintf("%s %.2f volume %d below floor %d",
					leg.Side, leg.Strike, q.Volume, profile.VolumeFloor)
			}
		}

		assessment.Legs = append(assessment.Legs, legAssessment)
		assessment.Overall = model.WorseLiquidity(assessment.Overall, legAssessment.Tier)
	}

	if assessment.Reason == "" && assessment.Overall != model.LiquidityExcellent {
		assessment.Reason = worstLegReason(assessment)
	}

	return assessment
}

func oiTier(openInterest, target int) model.LiquidityTier {
	switch {
	case openInterest >= 5*target:
		return model.LiquidityExcellent
	case openInterest >= 2*target:
		return model.LiquidityGood
	case openInterest >= target:
		return model.LiquidityWarning
	default:
		return model.LiquidityReject
	}
}

func spreadTier(spreadPct float64, profile config.Profile) model.LiquidityTier {
	switch {
	case spreadPct <= profile.SpreadExcellent:
		return model.LiquidityExcellent
	case spreadPct <= profile.SpreadGood:
		return model.LiquidityGood
	case spreadPct <= profile.SpreadWarning:
		return model.LiquidityWarning
	default:
		return model.LiquidityReject
	}
}

func worstLegReason(a *model.LiquidityAssessment) string {
	for _, leg := range a.Legs {
		if leg.Tier != a.Overall {
			continue
		}
		if leg.SpreadTier.Severity() >= leg.OITier.Severity() {
			return fmt.Sprintf("%s %.2f spread %.1f%%", leg.Side, leg.Strike, leg.SpreadPct)
		}
		return fmt.Sprintf("%s %.2f open interest %d", leg.Side, leg.Strike, leg.OpenInterest)
	}
	return ""
}
