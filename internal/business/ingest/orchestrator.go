package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// RecordStore is the persistence surface the pipeline needs for records.
type RecordStore interface {
	FetchAllMap(ctx context.Context) (map[string]model.ClientStateRecord, error)
	BatchUpsert(ctx context.Context, records []model.ClientStateRecord) error
}

// ScanClient abstracts PII detection for testability.
type ScanClient interface {
	ScanRecord(ctx context.Context, record model.ClientStateRecord) (model.ClientStateRecord, error)
}

// Orchestrator coordinates concurrent PII scanning with cancellation support.
type Orchestrator struct {
	workerCount int
}

func NewOrchestrator(workerCount int) *Orchestrator {
	if workerCount <= 0 {
		workerCount = 5
	}
	return &Orchestrator{workerCount: workerCount}
}

// ScanAll runs the provided records through the scanner with bounded
// concurrency. It stops early when the context is canceled. Scan failures are
// pushed to the error channel and the record passes through unflagged.
func (o *Orchestrator) ScanAll(ctx context.Context, records []model.ClientStateRecord, scanner ScanClient) (<-chan model.ClientStateRecord, <-chan error) {
	out := make(chan model.ClientStateRecord)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		jobs := make(chan model.ClientStateRecord)
		var wg sync.WaitGroup

		worker := func() {
			defer wg.Done()
			for rec := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				scanned, err := scanner.ScanRecord(ctx, rec)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					scanned = rec
				}
				select {
				case out <- scanned:
				case <-ctx.Done():
					return
				}
			}
		}

		for i := 0; i < o.workerCount; i++ {
			wg.Add(1)
			go worker()
		}

		for _, rec := range records {
			select {
			case jobs <- rec:
			case <-ctx.Done():
				close(jobs)
				wg.Wait()
				return
			}
		}
		close(jobs)
		wg.Wait()
	}()

	return out, errCh
}

// DeactivateStale sets active=false for records whose ingestRunId differs from
// the current run, so clients dropped from the latest upload stop counting
// toward aggregates without losing history.
func DeactivateStale(ctx context.Context, store RecordStore, currentRunID string) error {
	all, err := store.FetchAllMap(ctx)
	if err != nil {
		return err
	}
	var toUpdate []model.ClientStateRecord
	for _, rec := range all {
		if rec.IngestRunID != currentRunID && rec.Active {
			rec.Active = false
			toUpdate = append(toUpdate, rec)
		}
	}
	if len(toUpdate) == 0 {
		return nil
	}
	return store.BatchUpsert(ctx, toUpdate)
}

// RunLifecycleRepo persists ingest run metadata.
type RunLifecycleRepo interface {
	CreateRun(ctx context.Context, run model.IngestRun) error
	UpdateRun(ctx context.Context, run model.IngestRun) error
}

// StartRun initializes an IngestRun record.
func StartRun(ctx context.Context, repo RunLifecycleRepo, runID, source string, startedAt time.Time) error {
	return repo.CreateRun(ctx, model.IngestRun{
		RunID:     runID,
		Source:    source,
		Status:    "running",
		StartedAt: startedAt,
	})
}

// FinishRun finalizes an IngestRun record with stats and status.
func FinishRun(ctx context.Context, repo RunLifecycleRepo, runID, source, status string, stats model.IngestRunStats, startedAt time.Time, samples []model.ErrorSample) error {
	return repo.UpdateRun(ctx, model.IngestRun{
		RunID:       runID,
		Source:      source,
		Status:      status,
		Stats:       stats,
		StartedAt:   startedAt,
		FinishedAt:  time.Now().UTC(),
		ErrorSample: samples,
	})
}
