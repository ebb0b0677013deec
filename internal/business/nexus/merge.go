package nexus

import "github.com/trustmark-cpa/nexus-monitor/pkg/model"

// MergeAlertSeverity folds one alert priority signal into a status. The result
// is max(baseStatus, ruleOutcome) under tier ordering, so a merge can only
// raise or hold severity. With no alerts present the merger is the identity.
func MergeAlertSeverity(baseStatus model.StatusTier, priority model.AlertPriority, thresholdProgressPct int) model.StatusTier {
	outcome := baseStatus
	switch {
	case priority == model.PriorityHigh || thresholdProgressPct >= 95:
		outcome = model.StatusCritical
	case priority == model.PriorityMedium || thresholdProgressPct >= 70:
		outcome = model.StatusWarning
	case priority == model.PriorityLow && thresholdProgressPct < 50 && baseStatus == model.StatusCompliant:
		outcome = model.StatusPending
	}
	return MaxStatus(baseStatus, outcome)
}
