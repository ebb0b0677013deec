package ingest

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/trustmark-cpa/nexus-monitor/internal/business/nexus"
	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// MemoStateLine is one jurisdiction's position inside a nexus memo.
type MemoStateLine struct {
	StateCode   string
	Revenue     float64
	Threshold   float64
	ProgressPct int
	Label       string
	Action      string
}

// MemoData feeds the memo template for one client.
type MemoData struct {
	ClientName   string
	ClientID     string
	GeneratedAt  time.Time
	OverallLabel string
	RiskScore    int
	TotalRevenue float64
	States       []MemoStateLine
	OpenAlerts   int
}

var memoTemplate = template.Must(template.New("memo").Parse(`NEXUS STUDY MEMO
Client: {{.ClientName}} ({{.ClientID}})
Prepared: {{.GeneratedAt.Format "January 2, 2006"}}

Overall standing: {{.OverallLabel}} (risk score {{.RiskScore}}/100)
Monitored revenue: {{printf "$%.2f" .TotalRevenue}}
Open alerts: {{.OpenAlerts}}

Jurisdiction detail:
{{range .States}}  {{.StateCode}}: {{printf "$%.2f" .Revenue}} of {{printf "$%.0f" .Threshold}} ({{.ProgressPct}}%) - {{.Label}}. {{.Action}}
{{end}}
This memo reflects data on file as of the preparation date and is not tax
advice. Confirm registration obligations with the engagement partner before
filing.
`))

// memoAction maps a tier to the staff recommendation that appears in memos.
func memoAction(tier model.StatusTier) string {
	switch tier {
	case model.StatusCritical:
		return "Threshold met or exceeded: registration and filing obligations apply now."
	case model.StatusWarning:
		return "Approaching threshold: prepare registration paperwork this quarter."
	case model.StatusPending:
		return "Past the halfway mark: review monthly and confirm sourcing rules."
	case model.StatusTransit:
		return "Activity established: keep the jurisdiction on the monitoring list."
	default:
		return "No action required at current activity levels."
	}
}

// BuildMemoData assembles memo inputs from a client's aggregate, its state
// records, and its alerts.
func BuildMemoData(client model.ClientAggregate, records []model.ClientStateRecord, alerts []model.Alert) MemoData {
	data := MemoData{
		ClientName:   client.ClientName,
		ClientID:     client.ClientID,
		GeneratedAt:  time.Now().UTC(),
		OverallLabel: nexus.Project(client.Status).Label,
		RiskScore:    client.RiskScore,
		TotalRevenue: client.TotalRevenue,
	}
	if data.ClientName == "" {
		data.ClientName = client.ClientID
	}

	for _, rec := range records {
		if rec.ClientID != client.ClientID {
			continue
		}
		threshold := nexus.EffectiveThreshold(rec.ThresholdAmount)
		tier := nexus.Classify(rec.CurrentAmount, threshold)
		data.States = append(data.States, MemoStateLine{
			StateCode:   rec.StateCode,
			Revenue:     rec.CurrentAmount,
			Threshold:   threshold,
			ProgressPct: nexus.ProgressPct(rec.CurrentAmount, threshold),
			Label:       nexus.Project(tier).Label,
			Action:      memoAction(tier),
		})
	}

	for _, a := range alerts {
		if a.ClientID == client.ClientID && a.Status == "open" {
			data.OpenAlerts++
		}
	}
	return data
}

// RenderMemo renders the decision-documentation memo for one client.
func RenderMemo(client model.ClientAggregate, records []model.ClientStateRecord, alerts []model.Alert) (string, error) {
	data := BuildMemoData(client, records, alerts)
	var sb strings.Builder
	if err := memoTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render memo for %s: %w", client.ClientID, err)
	}
	return sb.String(), nil
}
