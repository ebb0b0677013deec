package piiscan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

type stubHTTPClient struct {
	mu        sync.Mutex
	responses []stubResponse
	calls     int
}

type stubResponse struct {
	status int
	body   string
	err    error
}

func (s *stubHTTPClient) Do(_ *http.Request) (*http.Response, error) {
	s.mu.Lock()
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	r := s.responses[idx]
	s.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
	}, nil
}

func TestScanRecordMockMode(t *testing.T) {
	client := New(nil, Config{Mock: true})

	rec := model.ClientStateRecord{ClientID: "c1", ClientName: "Acme Retail"}
	scanned, err := client.ScanRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("ScanRecord: %v", err)
	}
	if scanned.PIIFlag {
		t.Errorf("clean record should not be flagged")
	}
	if scanned.LastScannedAt.IsZero() {
		t.Errorf("LastScannedAt should be set")
	}

	rec.SourceRow = "c1,Acme,CA,100,owner ssn 123-45-6789"
	scanned, err = client.ScanRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("ScanRecord: %v", err)
	}
	if !scanned.PIIFlag {
		t.Errorf("row containing an SSN should be flagged")
	}
}

func TestScanRecordFlagsHighConfidenceFinding(t *testing.T) {
	stub := &stubHTTPClient{responses: []stubResponse{
		{status: http.StatusOK, body: `{"findings":[{"type":"ssn","confidence":0.92}]}`},
	}}
	client := New(stub, Config{APIKey: "test"})

	scanned, err := client.ScanRecord(context.Background(), model.ClientStateRecord{ClientID: "c1"})
	if err != nil {
		t.Fatalf("ScanRecord: %v", err)
	}
	if !scanned.PIIFlag {
		t.Errorf("high-confidence finding should flag the record")
	}
}

func TestScanRecordIgnoresLowConfidenceFindings(t *testing.T) {
	stub := &stubHTTPClient{responses: []stubResponse{
		{status: http.StatusOK, body: `{"findings":[{"type":"name","confidence":0.2}]}`},
	}}
	client := New(stub, Config{APIKey: "test"})

	scanned, err := client.ScanRecord(context.Background(), model.ClientStateRecord{ClientID: "c1"})
	if err != nil {
		t.Fatalf("ScanRecord: %v", err)
	}
	if scanned.PIIFlag {
		t.Errorf("low-confidence finding should not flag the record")
	}
}

func TestScanRecordRetriesTransportErrors(t *testing.T) {
	stub := &stubHTTPClient{responses: []stubResponse{
		{err: errors.New("connection reset")},
		{status: http.StatusOK, body: `{"findings":[]}`},
	}}
	client := New(stub, Config{APIKey: "test"})

	_, err := client.ScanRecord(context.Background(), model.ClientStateRecord{ClientID: "c1"})
	if err != nil {
		t.Fatalf("ScanRecord should recover after retry: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("calls = %d, want 2", stub.calls)
	}
}

func TestScanRecordBreakerOpensOnRepeatedRateLimits(t *testing.T) {
	stub := &stubHTTPClient{responses: []stubResponse{
		{status: http.StatusTooManyRequests, body: ""},
	}}
	client := New(stub, Config{APIKey: "test", BreakerMax: 2, MaxRetries: 5})

	_, err := client.ScanRecord(context.Background(), model.ClientStateRecord{ClientID: "c1"})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}

	// Subsequent calls short-circuit without touching the API.
	before := stub.calls
	_, err = client.ScanRecord(context.Background(), model.ClientStateRecord{ClientID: "c2"})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if stub.calls != before {
		t.Errorf("breaker should prevent further API calls")
	}
}

func TestScanRecordConcurrentWorkers(t *testing.T) {
	// The ingest orchestrator fans ScanRecord out across a worker pool, so
	// the breaker must hold up under concurrent calls.
	stub := &stubHTTPClient{responses: []stubResponse{
		{status: http.StatusTooManyRequests, body: ""},
	}}
	client := New(stub, Config{APIKey: "test", BreakerMax: 4, MaxRetries: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				rec := model.ClientStateRecord{ClientID: fmt.Sprintf("c%d-%d", n, j)}
				// Rate-limited calls fail either by retry exhaustion or by
				// the breaker; both leave the record unflagged.
				_, _ = client.ScanRecord(context.Background(), rec)
			}
		}(i)
	}
	wg.Wait()

	// Breaker tripped; later calls short-circuit without reaching the API.
	stub.mu.Lock()
	before := stub.calls
	stub.mu.Unlock()
	if _, err := client.ScanRecord(context.Background(), model.ClientStateRecord{ClientID: "late"}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	stub.mu.Lock()
	after := stub.calls
	stub.mu.Unlock()
	if after != before {
		t.Errorf("open breaker should prevent further API calls")
	}
}

func TestScanBatchStopsWhenBreakerOpens(t *testing.T) {
	stub := &stubHTTPClient{responses: []stubResponse{
		{status: http.StatusTooManyRequests, body: ""},
	}}
	client := New(stub, Config{APIKey: "test", BreakerMax: 1, MaxRetries: 3})

	out, err := client.ScanBatch(context.Background(), []model.ClientStateRecord{
		{ClientID: "c1"}, {ClientID: "c2"}, {ClientID: "c3"},
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if len(out) != 0 {
		t.Errorf("no records should pass once breaker opens immediately, got %d", len(out))
	}
}
