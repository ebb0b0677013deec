package model

import "time"

// StatusTier is the five-level severity classification used for map coloring
// and card rendering. Tiers are ordered; aggregation may only move a status
// toward greater severity, never reduce it.
type StatusTier string

const (
	StatusCompliant StatusTier = "compliant"
	StatusTransit   StatusTier = "transit"
	StatusPending   StatusTier = "pending"
	StatusWarning   StatusTier = "warning"
	StatusCritical  StatusTier = "critical"
)

// AlertPriority is the priority carried on an alert signal.
type AlertPriority string

const (
	PriorityLow    AlertPriority = "low"
	PriorityMedium AlertPriority = "medium"
	PriorityHigh   AlertPriority = "high"
)

// ClientStateRecord is one client's revenue position in one jurisdiction,
// produced by an ingest run. SourceRow keeps the raw CSV line so records can
// be reprocessed when mapping rules change without re-uploading the file.
type ClientStateRecord struct {
	ID              string    `json:"id,omitempty" firestore:"id,omitempty"`
	ClientID        string    `json:"clientId,omitempty" firestore:"clientId,omitempty"`
	ClientName      string    `json:"clientName,omitempty" firestore:"clientName,omitempty"`
	StateCode       string    `json:"stateCode,omitempty" firestore:"stateCode,omitempty"`
	CurrentAmount   float64   `json:"currentAmount,omitempty" firestore:"currentAmount,omitempty"`
	ThresholdAmount float64   `json:"thresholdAmount,omitempty" firestore:"thresholdAmount,omitempty"`
	LastUpdated     time.Time `json:"lastUpdated,omitempty" firestore:"lastUpdated,omitempty"`
	DataHash        string    `json:"dataHash,omitempty" firestore:"dataHash,omitempty"`
	IngestRunID     string    `json:"ingestRunId,omitempty" firestore:"ingestRunId,omitempty"`
	Active          bool      `json:"active,omitempty" firestore:"active,omitempty"`
	PIIFlag         bool      `json:"piiFlag,omitempty" firestore:"piiFlag,omitempty"`
	LastScannedAt   time.Time `json:"lastScannedAt,omitempty" firestore:"lastScannedAt,omitempty"`
	// Fields for reprocessing support
	SourceRow      string    `json:"-" firestore:"sourceRow,omitempty"` // Original CSV row (not exposed to API)
	RulesetVersion string    `json:"rulesetVersion,omitempty" firestore:"rulesetVersion,omitempty"`
	LastParsedAt   time.Time `json:"lastParsedAt,omitempty" firestore:"lastParsedAt,omitempty"`
}

// Key returns the grouping identity of the record.
func (r ClientStateRecord) Key() string {
	return r.ClientID + "|" + r.StateCode
}

// Alert is a compliance alert attached to a client+state pair.
type Alert struct {
	ID          string        `json:"id,omitempty" firestore:"id,omitempty"`
	ClientID    string        `json:"clientId,omitempty" firestore:"clientId,omitempty"`
	ClientName  string        `json:"clientName,omitempty" firestore:"clientName,omitempty"`
	StateCode   string        `json:"stateCode,omitempty" firestore:"stateCode,omitempty"`
	Priority    AlertPriority `json:"priority,omitempty" firestore:"priority,omitempty"`
	Title       string        `json:"title,omitempty" firestore:"title,omitempty"`
	Description string        `json:"description,omitempty" firestore:"description,omitempty"`
	Status      string        `json:"status,omitempty" firestore:"status,omitempty"` // open, acknowledged, resolved
	CreatedAt   time.Time     `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt   time.Time     `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// StateAggregate is the per-jurisdiction rollup consumed by the monitoring map.
type StateAggregate struct {
	StateCode            string     `json:"stateCode"`
	Status               StatusTier `json:"status"`
	Revenue              float64    `json:"revenue"`
	ClientCount          int        `json:"clientCount"`
	AlertCount           int        `json:"alertCount"`
	ThresholdProgressPct int        `json:"thresholdProgressPct"`
	Companies            []string   `json:"companies"`
}

// ClientAggregate is the per-client rollup consumed by the client cards.
// RepresentativeThreshold records the divisor that produced the progress
// percentage (the threshold of the client's most recently folded record).
type ClientAggregate struct {
	ClientID                string     `json:"clientId"`
	ClientName              string     `json:"clientName"`
	Status                  StatusTier `json:"status"`
	TotalRevenue            float64    `json:"totalRevenue"`
	States                  []string   `json:"states"`
	ThresholdProgressPct    int        `json:"thresholdProgressPct"`
	RiskScore               int        `json:"riskScore"`
	AlertCount              int        `json:"alertCount"`
	RepresentativeThreshold float64    `json:"representativeThreshold"`
}

// IngestRunStats stores aggregated counters for an ingest job.
type IngestRunStats struct {
	Found     int `json:"found,omitempty" firestore:"found,omitempty"`
	Validated int `json:"validated,omitempty" firestore:"validated,omitempty"`
	Skipped   int `json:"skipped,omitempty" firestore:"skipped,omitempty"`
	Failed    int `json:"failed,omitempty" firestore:"failed,omitempty"`
}

// IngestRun tracks the lifecycle of an upload-processing execution.
type IngestRun struct {
	RunID       string         `json:"runId,omitempty" firestore:"runId,omitempty"`
	Source      string         `json:"source,omitempty" firestore:"source,omitempty"` // "upload" or "reprocess"
	Status      string         `json:"status,omitempty" firestore:"status,omitempty"`
	Stats       IngestRunStats `json:"stats,omitempty" firestore:"stats,omitempty"`
	StartedAt   time.Time      `json:"startedAt,omitempty" firestore:"startedAt,omitempty"`
	FinishedAt  time.Time      `json:"finishedAt,omitempty" firestore:"finishedAt,omitempty"`
	ErrorSample []ErrorSample  `json:"errorsSample,omitempty" firestore:"errorsSample,omitempty"`
}

// ErrorSample captures a subset of row errors for observability without heavy logging.
type ErrorSample struct {
	Row    int    `json:"row,omitempty" firestore:"row,omitempty"`
	Reason string `json:"reason,omitempty" firestore:"reason,omitempty"`
}

// SystemStats is a singleton document that pre-aggregates dashboard metrics.
type SystemStats struct {
	LastUpdated       time.Time      `json:"lastUpdated,omitempty" firestore:"lastUpdated,omitempty"`
	TotalRecords      int            `json:"totalRecords,omitempty" firestore:"totalRecords,omitempty"`
	TotalClients      int            `json:"totalClients,omitempty" firestore:"totalClients,omitempty"`
	TotalStates       int            `json:"totalStates,omitempty" firestore:"totalStates,omitempty"`
	TotalRevenue      float64        `json:"totalRevenue,omitempty" firestore:"totalRevenue,omitempty"`
	OpenAlerts        int            `json:"openAlerts,omitempty" firestore:"openAlerts,omitempty"`
	ByStatus          map[string]int `json:"byStatus,omitempty" firestore:"byStatus,omitempty"`
	ByState           map[string]int `json:"byState,omitempty" firestore:"byState,omitempty"`
	RecordsFlaggedPII int            `json:"recordsFlaggedPii,omitempty" firestore:"recordsFlaggedPii,omitempty"`
}
