package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trustmark-cpa/nexus-monitor/internal/business/nexus"
	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// AlertStore is the persistence surface alert derivation needs.
type AlertStore interface {
	Insert(ctx context.Context, alert model.Alert) error
	HasOpenAlertInCooldown(ctx context.Context, clientID, stateCode string, cooldown time.Duration) (bool, error)
}

// AlertForRecord classifies one record and, when it sits at pending or above,
// builds the alert it should raise. The second return is false for records
// that need no alert.
func AlertForRecord(rec model.ClientStateRecord) (model.Alert, bool) {
	threshold := nexus.EffectiveThreshold(rec.ThresholdAmount)
	tier := nexus.Classify(rec.CurrentAmount, threshold)
	progress := nexus.ProgressPct(rec.CurrentAmount, threshold)

	var priority model.AlertPriority
	switch tier {
	case model.StatusCritical:
		priority = model.PriorityHigh
	case model.StatusWarning:
		priority = model.PriorityMedium
	case model.StatusPending:
		priority = model.PriorityLow
	default:
		return model.Alert{}, false
	}

	now := time.Now().UTC()
	return model.Alert{
		ID:         uuid.NewString(),
		ClientID:   rec.ClientID,
		ClientName: rec.ClientName,
		StateCode:  rec.StateCode,
		Priority:   priority,
		Title:      fmt.Sprintf("%s nexus %s in %s", rec.ClientName, nexus.Project(tier).Label, rec.StateCode),
		Description: fmt.Sprintf("%s is at %d%% of the %s economic-nexus threshold ($%.0f of $%.0f).",
			rec.ClientName, progress, rec.StateCode, rec.CurrentAmount, threshold),
		Status:    "open",
		CreatedAt: now,
		UpdatedAt: now,
	}, true
}

// DeriveAlerts walks freshly ingested records and raises alerts for those at
// or past warning territory, suppressing duplicates for a client+state pair
// that already has an open alert inside the cooldown window. Returns the
// number of alerts created.
func DeriveAlerts(ctx context.Context, store AlertStore, records []model.ClientStateRecord, cooldown time.Duration) (int, error) {
	created := 0
	for _, rec := range records {
		alert, ok := AlertForRecord(rec)
		if !ok {
			continue
		}
		exists, err := store.HasOpenAlertInCooldown(ctx, rec.ClientID, rec.StateCode, cooldown)
		if err != nil {
			return created, fmt.Errorf("cooldown check %s/%s: %w", rec.ClientID, rec.StateCode, err)
		}
		if exists {
			continue
		}
		if err := store.Insert(ctx, alert); err != nil {
			return created, fmt.Errorf("insert alert for %s/%s: %w", rec.ClientID, rec.StateCode, err)
		}
		created++
	}
	return created, nil
}
