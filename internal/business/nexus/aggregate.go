package nexus

import (
	"strings"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// Representative threshold policy: the first record seen for a state supplies
// the divisor for that state's progress percentage and recomputed status.
// Named here so tests can pin the behavior down rather than inherit it from
// fold order by accident.
const representativeThresholdFirstSeen = true

// AggregateByState groups records by jurisdiction and folds them into one
// rollup per state, then folds matching alerts through the severity merger.
// The returned slice carries first-seen state order for deterministic
// rendering; the map is the associative result.
//
// Records missing a clientId or stateCode cannot be grouped and are skipped.
// Companies gets one entry per record, not per distinct client.
func AggregateByState(records []model.ClientStateRecord, alerts []model.Alert) (map[string]model.StateAggregate, []string) {
	aggregates := make(map[string]model.StateAggregate)
	thresholds := make(map[string]float64)
	var order []string

	for _, rec := range records {
		state := strings.ToUpper(strings.TrimSpace(rec.StateCode))
		if state == "" || strings.TrimSpace(rec.ClientID) == "" {
			continue
		}

		agg, seen := aggregates[state]
		if !seen {
			threshold := EffectiveThreshold(rec.ThresholdAmount)
			thresholds[state] = threshold
			aggregates[state] = model.StateAggregate{
				StateCode:            state,
				Status:               Classify(rec.CurrentAmount, threshold),
				Revenue:              rec.CurrentAmount,
				ClientCount:          1,
				ThresholdProgressPct: ProgressPct(rec.CurrentAmount, threshold),
				Companies:            []string{rec.ClientName},
			}
			order = append(order, state)
			continue
		}

		threshold := thresholds[state]
		agg.Revenue += rec.CurrentAmount
		agg.ClientCount++
		agg.Companies = append(agg.Companies, rec.ClientName)
		agg.ThresholdProgressPct = ProgressPct(agg.Revenue, threshold)
		agg.Status = MaxStatus(agg.Status, Classify(agg.Revenue, threshold))
		aggregates[state] = agg
	}

	for _, alert := range alerts {
		state := strings.ToUpper(strings.TrimSpace(alert.StateCode))
		agg, ok := aggregates[state]
		if !ok {
			continue
		}
		agg.AlertCount++
		agg.Status = MergeAlertSeverity(agg.Status, alert.Priority, agg.ThresholdProgressPct)
		aggregates[state] = agg
	}

	return aggregates, order
}

// AggregateByClient groups records by client and folds them into one rollup
// per client, then folds matching alerts through the severity merger. The
// returned slice carries first-seen client order.
//
// A client's pooled cross-state revenue is divided by the threshold of the
// most recently folded record. When states carry different thresholds this is
// a deliberate simplification carried over from the source system; the
// representative threshold used is surfaced on the aggregate.
func AggregateByClient(records []model.ClientStateRecord, alerts []model.Alert) (map[string]model.ClientAggregate, []string) {
	aggregates := make(map[string]model.ClientAggregate)
	var order []string

	for _, rec := range records {
		clientID := strings.TrimSpace(rec.ClientID)
		state := strings.ToUpper(strings.TrimSpace(rec.StateCode))
		if clientID == "" || state == "" {
			continue
		}

		threshold := EffectiveThreshold(rec.ThresholdAmount)
		agg, seen := aggregates[clientID]
		if !seen {
			agg = model.ClientAggregate{
				ClientID:   clientID,
				ClientName: rec.ClientName,
				Status:     model.StatusCompliant,
			}
			order = append(order, clientID)
		}

		agg.TotalRevenue += rec.CurrentAmount
		if !containsString(agg.States, state) {
			agg.States = append(agg.States, state)
		}
		agg.RepresentativeThreshold = threshold
		agg.ThresholdProgressPct = ProgressPct(agg.TotalRevenue, threshold)
		agg.RiskScore = agg.ThresholdProgressPct
		agg.Status = MaxStatus(agg.Status, Classify(agg.TotalRevenue, threshold))
		aggregates[clientID] = agg
	}

	for _, alert := range alerts {
		agg, ok := aggregates[strings.TrimSpace(alert.ClientID)]
		if !ok {
			continue
		}
		agg.AlertCount++
		agg.Status = MergeAlertSeverity(agg.Status, alert.Priority, agg.ThresholdProgressPct)
		aggregates[agg.ClientID] = agg
	}

	return aggregates, order
}

func containsString(items []string, target string) bool {
	for _, s := range items {
		if s == target {
			return true
		}
	}
	return false
}
