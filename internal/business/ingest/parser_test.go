package ingest

import (
	"os"
	"strings"
	"testing"
)

func TestMapColumns(t *testing.T) {
	mapping, err := MapColumns([]string{"Customer ID", "Company Name", "State", "Gross Sales", "Nexus Threshold"})
	if err != nil {
		t.Fatalf("MapColumns: %v", err)
	}
	if mapping.ClientID != 0 || mapping.ClientName != 1 || mapping.StateCode != 2 ||
		mapping.CurrentAmount != 3 || mapping.ThresholdAmount != 4 {
		t.Errorf("mapping = %+v", mapping)
	}
}

func TestMapColumnsSynonymsAndUnderscore(t *testing.T) {
	mapping, err := MapColumns([]string{"client_id", "business-name", "Jurisdiction", "current_revenue"})
	if err != nil {
		t.Fatalf("MapColumns: %v", err)
	}
	if mapping.ClientID != 0 || mapping.ClientName != 1 || mapping.StateCode != 2 || mapping.CurrentAmount != 3 {
		t.Errorf("mapping = %+v", mapping)
	}
	if mapping.ThresholdAmount != -1 {
		t.Errorf("threshold column should be absent, got %d", mapping.ThresholdAmount)
	}
}

func TestMapColumnsMissingRequired(t *testing.T) {
	_, err := MapColumns([]string{"Company Name", "Notes"})
	if err == nil {
		t.Fatalf("expected error for unmappable header")
	}
	if !strings.Contains(err.Error(), "client id") || !strings.Contains(err.Error(), "revenue") {
		t.Errorf("error should name missing columns: %v", err)
	}
}

func TestParseCSVFixture(t *testing.T) {
	f, err := os.Open("testdata/sample_upload.csv")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()

	records, rowErrs, err := ParseCSV(f, 500000)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if len(rowErrs) != 3 {
		t.Fatalf("rowErrs = %d, want 3 (%+v)", len(rowErrs), rowErrs)
	}

	first := records[0]
	if first.ClientID != "c1" || first.ClientName != "Acme Retail" {
		t.Errorf("first record identity = %q/%q", first.ClientID, first.ClientName)
	}
	if first.StateCode != "CA" {
		t.Errorf("state should be uppercased, got %q", first.StateCode)
	}
	if first.CurrentAmount != 525000 {
		t.Errorf("currency string should normalize, got %v", first.CurrentAmount)
	}
	if first.ThresholdAmount != 500000 {
		t.Errorf("threshold = %v", first.ThresholdAmount)
	}
	if first.RulesetVersion != RulesetVersion {
		t.Errorf("rulesetVersion = %q", first.RulesetVersion)
	}
	if first.DataHash == "" || first.SourceRow == "" {
		t.Errorf("hash and source row must be populated")
	}
	if !first.Active {
		t.Errorf("fresh records start active")
	}

	// Missing threshold column value falls back to the policy default.
	second := records[1]
	if second.ClientID != "c2" || second.ThresholdAmount != 500000 {
		t.Errorf("second record = %+v", second)
	}

	third := records[2]
	if third.ClientID != "c5" || third.CurrentAmount != 1000 || third.StateCode != "WA" {
		t.Errorf("third record = %+v", third)
	}

	// Rejected rows: unknown jurisdiction, bad amount, missing client id.
	reasons := make([]string, 0, len(rowErrs))
	for _, re := range rowErrs {
		reasons = append(reasons, re.Reason)
	}
	joined := strings.Join(reasons, "; ")
	if !strings.Contains(joined, "jurisdiction") {
		t.Errorf("expected a jurisdiction rejection, got %q", joined)
	}
	if !strings.Contains(joined, "revenue") {
		t.Errorf("expected a revenue rejection, got %q", joined)
	}
	if !strings.Contains(joined, "client id") {
		t.Errorf("expected a client id rejection, got %q", joined)
	}
}

func TestParseSourceRowRoundTrip(t *testing.T) {
	mapping, err := MapColumns([]string{"client", "name", "state", "revenue", "threshold"})
	if err != nil {
		t.Fatalf("MapColumns: %v", err)
	}
	rec, err := ParseRow(mapping, []string{"c9", "Wayne Enterprises", "nj", "$450,000", "500000"}, 500000)
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}

	again, err := ParseSourceRow(rec.SourceRow, 500000)
	if err != nil {
		t.Fatalf("ParseSourceRow: %v", err)
	}
	if again.ClientID != rec.ClientID || again.StateCode != rec.StateCode ||
		again.CurrentAmount != rec.CurrentAmount || again.ThresholdAmount != rec.ThresholdAmount {
		t.Errorf("round trip mismatch: %+v vs %+v", again, rec)
	}
	if again.DataHash != rec.DataHash {
		t.Errorf("reparsed hash should match when nothing changed")
	}
}

func TestParseSourceRowRoundTripCommaName(t *testing.T) {
	mapping := ColumnMapping{ClientID: 0, ClientName: 1, StateCode: 2, CurrentAmount: 3, ThresholdAmount: 4}
	rec, err := ParseRow(mapping, []string{"c2", "Smith, Jones & Co", "CA", "250000", "500000"}, 500000)
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}

	again, err := ParseSourceRow(rec.SourceRow, 500000)
	if err != nil {
		t.Fatalf("ParseSourceRow with comma in name: %v", err)
	}
	if again.ClientName != "Smith, Jones & Co" {
		t.Errorf("name = %q, want the comma preserved", again.ClientName)
	}
	if again.StateCode != "CA" || again.CurrentAmount != 250000 || again.ThresholdAmount != 500000 {
		t.Errorf("columns shifted: %+v", again)
	}
	if again.DataHash != rec.DataHash {
		t.Errorf("reparsed hash should match when nothing changed")
	}
}

func TestValidateRecordRejectsBadStateCode(t *testing.T) {
	mapping := ColumnMapping{ClientID: 0, ClientName: 1, StateCode: 2, CurrentAmount: 3, ThresholdAmount: -1}
	rec, err := ParseRow(mapping, []string{"c1", "Acme", "C4", "1000"}, 500000)
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}
	if err := ValidateRecord(rec); err == nil {
		t.Errorf("numeric state code should fail validation")
	}
}
