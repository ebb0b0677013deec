package ingest

import (
	"github.com/trustmark-cpa/nexus-monitor/internal/business/nexus"
	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// AggregateSystemStats reduces active records and alerts into the dashboard
// stats singleton. ByStatus counts jurisdictions per tier, which is what the
// map legend renders.
func AggregateSystemStats(records []model.ClientStateRecord, alerts []model.Alert) model.SystemStats {
	var active []model.ClientStateRecord
	for _, rec := range records {
		if rec.Active {
			active = append(active, rec)
		}
	}

	byState := make(map[string]int)
	clients := make(map[string]bool)
	var totalRevenue float64
	flagged := 0

	for _, rec := range active {
		byState[rec.StateCode]++
		clients[rec.ClientID] = true
		totalRevenue += rec.CurrentAmount
		if rec.PIIFlag {
			flagged++
		}
	}

	states, _ := nexus.AggregateByState(active, alerts)
	byStatus := make(map[string]int)
	for _, agg := range states {
		byStatus[string(agg.Status)]++
	}

	openAlerts := 0
	for _, a := range alerts {
		if a.Status == "open" {
			openAlerts++
		}
	}

	return model.SystemStats{
		TotalRecords:      len(active),
		TotalClients:      len(clients),
		TotalStates:       len(states),
		TotalRevenue:      totalRevenue,
		OpenAlerts:        openAlerts,
		ByStatus:          byStatus,
		ByState:           byState,
		RecordsFlaggedPII: flagged,
	}
}
