// Package nexus implements the economic-nexus status engine: threshold
// classification, alert severity merging, and the per-state / per-client
// aggregations behind the monitoring map and client cards. Everything here is
// a pure function over in-memory slices; callers decide when to recompute.
package nexus

import (
	"math"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// DefaultThreshold is the policy default substituted when a record carries no
// statutory threshold. It is a firm policy value, not a law-derived constant.
const DefaultThreshold = 500000

// severityRank orders status tiers from least to most severe.
var severityRank = map[model.StatusTier]int{
	model.StatusCompliant: 0,
	model.StatusTransit:   1,
	model.StatusPending:   2,
	model.StatusWarning:   3,
	model.StatusCritical:  4,
}

// Severity returns the ordering rank of a tier. Unknown tiers rank lowest.
func Severity(tier model.StatusTier) int {
	return severityRank[tier]
}

// MaxStatus returns the more severe of two tiers.
func MaxStatus(a, b model.StatusTier) model.StatusTier {
	if Severity(b) > Severity(a) {
		return b
	}
	return a
}

// Classify maps a revenue amount against a statutory threshold to a status
// tier. thresholdAmount must be positive; callers substitute DefaultThreshold
// when the source value is missing or zero.
func Classify(currentAmount, thresholdAmount float64) model.StatusTier {
	ratio := currentAmount / thresholdAmount
	switch {
	case ratio >= 1.0:
		return model.StatusCritical
	case ratio >= 0.8:
		return model.StatusWarning
	case ratio >= 0.5:
		return model.StatusPending
	case ratio >= 0.2:
		return model.StatusTransit
	default:
		return model.StatusCompliant
	}
}

// EffectiveThreshold applies the policy default for missing or zero thresholds.
func EffectiveThreshold(thresholdAmount float64) float64 {
	if thresholdAmount <= 0 {
		return DefaultThreshold
	}
	return thresholdAmount
}

// ProgressPct computes round(min(100, revenue/threshold*100)), clamped even
// when the underlying ratio exceeds 1.0.
func ProgressPct(revenue, threshold float64) int {
	pct := revenue / threshold * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return int(math.Round(pct))
}
