package piiscan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

var (
	// ErrCircuitOpen signals the breaker is open after repeated 402/429 responses.
	ErrCircuitOpen = errors.New("piiscan circuit open due to repeated rate/limit errors")

	// ssnPattern drives the mock scanner so local runs still exercise flagging.
	ssnPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

// HTTPClient matches net/http.Client Do signature for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the PII-detection API with retry and circuit breaker support.
// The ingest orchestrator calls ScanRecord from multiple workers at once, so
// the breaker counter is atomic.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
	mock       bool

	maxRetries       int
	breakerThreshold int64
	consecutiveLimit atomic.Int64
}

// Config defines settings for the PII scan client.
type Config struct {
	APIKey     string
	BaseURL    string
	Mock       bool
	MaxRetries int
	BreakerMax int
}

// New creates a PII scan client.
func New(httpClient HTTPClient, cfg Config) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.piiguard.dev/v1/scan"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	breaker := cfg.BreakerMax
	if breaker <= 0 {
		breaker = 5
	}

	return &Client{
		apiKey:           cfg.APIKey,
		baseURL:          base,
		httpClient:       httpClient,
		mock:             cfg.Mock,
		maxRetries:       maxRetries,
		breakerThreshold: int64(breaker),
	}
}

// ScanRecord sends a record's free-text fields to the detection API (or the
// mock) and sets PIIFlag accordingly.
func (c *Client) ScanRecord(ctx context.Context, record model.ClientStateRecord) (model.ClientStateRecord, error) {
	if c.mock {
		record.PIIFlag = ssnPattern.MatchString(record.ClientName) || ssnPattern.MatchString(record.SourceRow)
		record.LastScannedAt = time.Now().UTC()
		return record, nil
	}

	if c.consecutiveLimit.Load() >= c.breakerThreshold {
		return record, ErrCircuitOpen
	}

	payload, err := json.Marshal(scanRequest{
		Fields: []string{record.ClientName, record.SourceRow},
	})
	if err != nil {
		return record, fmt.Errorf("encode scan request: %w", err)
	}

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return record, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt == c.maxRetries-1 {
				return record, fmt.Errorf("request: %w", err)
			}
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			c.consecutiveLimit.Store(0)
			return decodeScanResponse(record, resp.Body)
		}

		if resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests {
			if c.consecutiveLimit.Add(1) >= c.breakerThreshold {
				return record, ErrCircuitOpen
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		if attempt == c.maxRetries-1 {
			return record, fmt.Errorf("piiscan status %d: %s", resp.StatusCode, string(body))
		}
	}

	return record, fmt.Errorf("piiscan failed after retries")
}

// ScanBatch scans multiple records, short-circuiting when the breaker opens.
func (c *Client) ScanBatch(ctx context.Context, records []model.ClientStateRecord) ([]model.ClientStateRecord, error) {
	out := make([]model.ClientStateRecord, 0, len(records))
	for _, rec := range records {
		scanned, err := c.ScanRecord(ctx, rec)
		if err != nil {
			if errors.Is(err, ErrCircuitOpen) {
				return out, err
			}
			// Failed scans keep the record unflagged; the run records the error.
			out = append(out, rec)
			continue
		}
		out = append(out, scanned)
	}
	return out, nil
}

func decodeScanResponse(record model.ClientStateRecord, body io.Reader) (model.ClientStateRecord, error) {
	buf, err := io.ReadAll(body)
	if err != nil {
		return record, fmt.Errorf("read response: %w", err)
	}
	var result scanResponse
	if err := json.Unmarshal(bytes.TrimSpace(buf), &result); err != nil {
		return record, fmt.Errorf("decode response: %w", err)
	}

	for _, f := range result.Findings {
		if f.Confidence >= 0.5 {
			record.PIIFlag = true
			break
		}
	}
	record.LastScannedAt = time.Now().UTC()
	return record, nil
}

type scanRequest struct {
	Fields []string `json:"fields"`
}

type scanResponse struct {
	Findings []scanFinding `json:"findings"`
}

type scanFinding struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}
