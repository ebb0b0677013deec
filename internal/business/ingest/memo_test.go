package ingest

import (
	"strings"
	"testing"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

func TestBuildMemoData(t *testing.T) {
	client := model.ClientAggregate{
		ClientID:     "c1",
		ClientName:   "Acme Retail",
		TotalRevenue: 575000,
		Status:       model.StatusCritical,
		RiskScore:    93,
	}
	records := []model.ClientStateRecord{
		{ClientID: "c1", StateCode: "CA", CurrentAmount: 525000, ThresholdAmount: 500000},
		{ClientID: "c1", StateCode: "TX", CurrentAmount: 50000, ThresholdAmount: 500000},
		// Another client's record must not appear in the memo.
		{ClientID: "c2", StateCode: "NY", CurrentAmount: 900000, ThresholdAmount: 500000},
	}
	alerts := []model.Alert{
		{ID: "a1", ClientID: "c1", StateCode: "CA", Status: "open"},
		{ID: "a2", ClientID: "c1", StateCode: "TX", Status: "resolved"},
		{ID: "a3", ClientID: "c2", StateCode: "NY", Status: "open"},
	}

	data := BuildMemoData(client, records, alerts)

	if data.ClientName != "Acme Retail" {
		t.Errorf("clientName = %q", data.ClientName)
	}
	if data.OverallLabel != "Critical" {
		t.Errorf("overallLabel = %q, want Critical", data.OverallLabel)
	}
	if data.RiskScore != 93 {
		t.Errorf("riskScore = %d, want 93", data.RiskScore)
	}
	if len(data.States) != 2 {
		t.Fatalf("states = %d, want 2", len(data.States))
	}
	if data.States[0].StateCode != "CA" || data.States[0].ProgressPct != 100 {
		t.Errorf("CA line = %+v", data.States[0])
	}
	if data.States[1].StateCode != "TX" || data.States[1].ProgressPct != 10 {
		t.Errorf("TX line = %+v", data.States[1])
	}
	if data.OpenAlerts != 1 {
		t.Errorf("openAlerts = %d, want 1", data.OpenAlerts)
	}
}

func TestBuildMemoDataFallsBackToClientID(t *testing.T) {
	data := BuildMemoData(model.ClientAggregate{ClientID: "c9"}, nil, nil)
	if data.ClientName != "c9" {
		t.Errorf("clientName = %q, want the client id", data.ClientName)
	}
}

func TestRenderMemo(t *testing.T) {
	client := model.ClientAggregate{
		ClientID:     "c1",
		ClientName:   "Acme Retail",
		TotalRevenue: 525000,
		Status:       model.StatusCritical,
		RiskScore:    100,
	}
	records := []model.ClientStateRecord{
		{ClientID: "c1", StateCode: "CA", CurrentAmount: 525000, ThresholdAmount: 500000},
	}

	memo, err := RenderMemo(client, records, nil)
	if err != nil {
		t.Fatalf("RenderMemo: %v", err)
	}

	for _, want := range []string{
		"NEXUS STUDY MEMO",
		"Acme Retail (c1)",
		"risk score 100/100",
		"CA: $525000.00 of $500000 (100%) - Critical",
		"registration and filing obligations apply now",
		"not tax",
	} {
		if !strings.Contains(memo, want) {
			t.Errorf("memo missing %q:\n%s", want, memo)
		}
	}
}
