package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
	"github.com/trustmark-cpa/nexus-monitor/pkg/util"
)

// RulesetVersion identifies the current header-mapping and normalization
// rules. Stored on every record so reprocessing can find outdated ones.
const RulesetVersion = "v1.2"

// headerSynonyms maps normalized header cells to canonical field names.
// Client uploads come from many bookkeeping systems, so the mapper accepts
// the spellings we have actually seen in the wild.
var headerSynonyms = map[string]string{
	"client id":     "clientId",
	"clientid":      "clientId",
	"client":        "clientId",
	"customer id":   "clientId",
	"customer":      "clientId",
	"account id":    "clientId",
	"account":       "clientId",
	"client name":   "clientName",
	"customer name": "clientName",
	"company":       "clientName",
	"company name":  "clientName",
	"business name": "clientName",
	"name":          "clientName",
	"state":              "stateCode",
	"state code":         "stateCode",
	"st":                 "stateCode",
	"jurisdiction":       "stateCode",
	"revenue":            "currentAmount",
	"current amount":     "currentAmount",
	"current revenue":    "currentAmount",
	"sales":              "currentAmount",
	"gross sales":        "currentAmount",
	"total sales":        "currentAmount",
	"amount":             "currentAmount",
	"threshold":          "thresholdAmount",
	"threshold amount":   "thresholdAmount",
	"nexus threshold":    "thresholdAmount",
	"economic threshold": "thresholdAmount",
}

var headerCleanPattern = regexp.MustCompile(`[^a-z0-9 ]`)

// ColumnMapping records which CSV column feeds each record field. A value of
// -1 means the upload does not carry that column.
type ColumnMapping struct {
	ClientID        int
	ClientName      int
	StateCode       int
	CurrentAmount   int
	ThresholdAmount int
}

// RowError reports a single rejected row without aborting the run.
type RowError struct {
	Row    int
	Reason string
}

// MapColumns resolves an upload's header row into a ColumnMapping. ClientID,
// StateCode, and CurrentAmount are required; the rest are optional.
func MapColumns(header []string) (ColumnMapping, error) {
	mapping := ColumnMapping{ClientID: -1, ClientName: -1, StateCode: -1, CurrentAmount: -1, ThresholdAmount: -1}

	for i, cell := range header {
		canonical, ok := headerSynonyms[normalizeHeader(cell)]
		if !ok {
			continue
		}
		switch canonical {
		case "clientId":
			if mapping.ClientID == -1 {
				mapping.ClientID = i
			}
		case "clientName":
			if mapping.ClientName == -1 {
				mapping.ClientName = i
			}
		case "stateCode":
			if mapping.StateCode == -1 {
				mapping.StateCode = i
			}
		case "currentAmount":
			if mapping.CurrentAmount == -1 {
				mapping.CurrentAmount = i
			}
		case "thresholdAmount":
			if mapping.ThresholdAmount == -1 {
				mapping.ThresholdAmount = i
			}
		}
	}

	var missing []string
	if mapping.ClientID == -1 {
		missing = append(missing, "client id")
	}
	if mapping.StateCode == -1 {
		missing = append(missing, "state")
	}
	if mapping.CurrentAmount == -1 {
		missing = append(missing, "revenue")
	}
	if len(missing) > 0 {
		return mapping, fmt.Errorf("unmappable header: missing %s", strings.Join(missing, ", "))
	}
	return mapping, nil
}

func normalizeHeader(cell string) string {
	s := strings.ToLower(strings.TrimSpace(cell))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = headerCleanPattern.ReplaceAllString(s, "")
	return util.CleanField(s)
}

// ParseRow converts one mapped CSV row into a record. The raw row is kept on
// the record (canonical column order) so it can be reprocessed later.
func ParseRow(mapping ColumnMapping, row []string, defaultThreshold float64) (model.ClientStateRecord, error) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return util.CleanField(row[idx])
	}

	clientID := cell(mapping.ClientID)
	if clientID == "" {
		return model.ClientStateRecord{}, fmt.Errorf("missing client id")
	}
	stateCode := strings.ToUpper(cell(mapping.StateCode))
	if stateCode == "" {
		return model.ClientStateRecord{}, fmt.Errorf("missing state code")
	}

	amount, err := util.ParseMoney(cell(mapping.CurrentAmount))
	if err != nil {
		return model.ClientStateRecord{}, fmt.Errorf("revenue: %w", err)
	}
	if amount < 0 {
		return model.ClientStateRecord{}, fmt.Errorf("revenue must be non-negative, got %v", amount)
	}

	threshold := 0.0
	if raw := cell(mapping.ThresholdAmount); raw != "" {
		threshold, err = util.ParseMoney(raw)
		if err != nil {
			return model.ClientStateRecord{}, fmt.Errorf("threshold: %w", err)
		}
	}
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	clientName := cell(mapping.ClientName)
	now := time.Now().UTC()

	rec := model.ClientStateRecord{
		ClientID:        clientID,
		ClientName:      clientName,
		StateCode:       stateCode,
		CurrentAmount:   amount,
		ThresholdAmount: threshold,
		LastUpdated:     now,
		LastParsedAt:    now,
		RulesetVersion:  RulesetVersion,
		Active:          true,
	}
	rec.SourceRow = canonicalSourceRow(rec)
	rec.DataHash = util.HashRecordKey(rec.ClientID, rec.ClientName, rec.StateCode, rec.CurrentAmount, rec.ThresholdAmount)
	return rec, nil
}

// canonicalSourceRow serializes a record back into the canonical column order
// so reprocessing never depends on the original upload's header layout. The
// row is written through csv so names like "Smith, Jones & Co" stay one field.
func canonicalSourceRow(rec model.ClientStateRecord) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{
		rec.ClientID,
		rec.ClientName,
		rec.StateCode,
		fmt.Sprintf("%.2f", rec.CurrentAmount),
		fmt.Sprintf("%.2f", rec.ThresholdAmount),
	})
	w.Flush()
	return strings.TrimRight(sb.String(), "\r\n")
}

// canonicalMapping parses rows stored by canonicalSourceRow.
var canonicalMapping = ColumnMapping{ClientID: 0, ClientName: 1, StateCode: 2, CurrentAmount: 3, ThresholdAmount: 4}

// ParseSourceRow re-parses a stored canonical row during reprocessing.
func ParseSourceRow(sourceRow string, defaultThreshold float64) (model.ClientStateRecord, error) {
	reader := csv.NewReader(strings.NewReader(sourceRow))
	row, err := reader.Read()
	if err != nil {
		return model.ClientStateRecord{}, fmt.Errorf("read source row: %w", err)
	}
	return ParseRow(canonicalMapping, row, defaultThreshold)
}

// ParseCSV reads an entire upload: header mapping, then row-by-row parsing
// and validation. Bad rows are reported and skipped, never fatal; only an
// unreadable stream or unmappable header fails the whole parse.
func ParseCSV(r io.Reader, defaultThreshold float64) ([]model.ClientStateRecord, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	mapping, err := MapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var records []model.ClientStateRecord
	var rowErrs []RowError
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Reason: err.Error()})
			continue
		}
		if isBlankRow(row) {
			continue
		}
		rec, err := ParseRow(mapping, row, defaultThreshold)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Reason: err.Error()})
			continue
		}
		if err := ValidateRecord(rec); err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
