package nexus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

func TestMergeAlertSeverity(t *testing.T) {
	cases := []struct {
		name     string
		base     model.StatusTier
		priority model.AlertPriority
		progress int
		want     model.StatusTier
	}{
		{"high priority forces critical", model.StatusCompliant, model.PriorityHigh, 10, model.StatusCritical},
		{"progress 95 forces critical", model.StatusTransit, model.PriorityLow, 95, model.StatusCritical},
		{"medium priority raises to warning", model.StatusCompliant, model.PriorityMedium, 10, model.StatusWarning},
		{"progress 70 raises to warning", model.StatusTransit, model.PriorityLow, 70, model.StatusWarning},
		{"low on compliant under 50 becomes pending", model.StatusCompliant, model.PriorityLow, 10, model.StatusPending},
		{"low on transit stays transit", model.StatusTransit, model.PriorityLow, 30, model.StatusTransit},
		{"low at progress 50 leaves compliant alone", model.StatusCompliant, model.PriorityLow, 50, model.StatusCompliant},
		{"medium cannot demote critical", model.StatusCritical, model.PriorityMedium, 10, model.StatusCritical},
		{"low cannot demote critical", model.StatusCritical, model.PriorityLow, 10, model.StatusCritical},
		{"warning held at warning by medium", model.StatusWarning, model.PriorityMedium, 10, model.StatusWarning},
		{"pending raised by medium", model.StatusPending, model.PriorityMedium, 10, model.StatusWarning},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MergeAlertSeverity(tc.base, tc.priority, tc.progress))
		})
	}
}

// The merger must never produce a tier below its input, for any combination.
func TestMergeNeverDowngrades(t *testing.T) {
	tiers := []model.StatusTier{
		model.StatusCompliant, model.StatusTransit, model.StatusPending,
		model.StatusWarning, model.StatusCritical,
	}
	priorities := []model.AlertPriority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}

	for _, base := range tiers {
		for _, p := range priorities {
			for progress := 0; progress <= 100; progress += 5 {
				got := MergeAlertSeverity(base, p, progress)
				assert.GreaterOrEqual(t, Severity(got), Severity(base),
					"merge(%s, %s, %d) downgraded to %s", base, p, progress, got)
			}
		}
	}
}
