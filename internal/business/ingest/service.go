package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// AlertRepo is the alert surface the service needs: derivation plus the full
// listing used when recomputing stats.
type AlertRepo interface {
	AlertStore
	ListAll(ctx context.Context) ([]model.Alert, error)
}

// StatsStore persists the dashboard stats singleton.
type StatsStore interface {
	SaveSystemStats(ctx context.Context, stats model.SystemStats) error
}

// Service orchestrates end-to-end ingest: parse, validate, scan, persist,
// derive alerts, refresh stats.
type Service struct {
	scanner          ScanClient
	records          RecordStore
	runs             RunLifecycleRepo
	alerts           AlertRepo
	stats            StatsStore
	jobs             *JobManager
	orchestrator     *Orchestrator
	cooldown         time.Duration
	defaultThreshold float64
	logger           zerolog.Logger
}

func NewService(scanner ScanClient, records RecordStore, runs RunLifecycleRepo, alerts AlertRepo, stats StatsStore, workerCnt int, cooldown time.Duration, defaultThreshold float64, logger zerolog.Logger) *Service {
	if defaultThreshold <= 0 {
		defaultThreshold = 500000
	}
	return &Service{
		scanner:          scanner,
		records:          records,
		runs:             runs,
		alerts:           alerts,
		stats:            stats,
		jobs:             NewJobManager(),
		orchestrator:     NewOrchestrator(workerCnt),
		cooldown:         cooldown,
		defaultThreshold: defaultThreshold,
		logger:           logger,
	}
}

// StartUpload kicks off an upload-processing run asynchronously and returns
// its run ID.
func (s *Service) StartUpload(ctx context.Context, csvData string) (string, error) {
	if strings.TrimSpace(csvData) == "" {
		return "", fmt.Errorf("no upload data provided")
	}
	startedAt := time.Now().UTC()
	runID := newRunID()
	if err := StartRun(ctx, s.runs, runID, "upload", startedAt); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.jobs.Register(runID, cancel)
	go s.executeUpload(runCtx, runID, csvData, startedAt)
	return runID, nil
}

func (s *Service) executeUpload(ctx context.Context, runID, csvData string, startedAt time.Time) {
	defer s.jobs.Unregister(runID)
	log := s.logger.With().Str("runId", runID).Logger()

	records, rowErrs, err := ParseCSV(strings.NewReader(csvData), s.defaultThreshold)
	if err != nil {
		log.Error().Err(err).Msg("upload parse failed")
		_ = FinishRun(ctx, s.runs, runID, "upload", "failed", model.IngestRunStats{},
			startedAt, []model.ErrorSample{{Row: 1, Reason: err.Error()}})
		return
	}

	stats := model.IngestRunStats{
		Found:     len(records) + len(rowErrs),
		Validated: len(records),
		Skipped:   len(rowErrs),
	}
	samples := errorSamples(rowErrs, 10)
	status := "success"

	for i := range records {
		records[i].IngestRunID = runID
	}

	scanned := make([]model.ClientStateRecord, 0, len(records))
	out, errCh := s.orchestrator.ScanAll(ctx, records, s.scanner)
	for rec := range out {
		scanned = append(scanned, rec)
		if len(scanned)%25 == 0 {
			_ = s.runs.UpdateRun(ctx, model.IngestRun{
				RunID:     runID,
				Source:    "upload",
				Status:    "running",
				Stats:     stats,
				StartedAt: startedAt,
			})
		}
	}
	if scanErr := <-errCh; scanErr != nil {
		stats.Failed++
		log.Warn().Err(scanErr).Msg("pii scan errors during run")
	}

	if ctx.Err() != nil {
		_ = FinishRun(context.Background(), s.runs, runID, "upload", "canceled", stats, startedAt, samples)
		return
	}

	if err := s.records.BatchUpsert(ctx, scanned); err != nil {
		log.Error().Err(err).Msg("record upsert failed")
		status = "failed"
	}

	if status == "success" {
		if err := DeactivateStale(ctx, s.records, runID); err != nil {
			log.Warn().Err(err).Msg("stale deactivation incomplete")
			status = "partial_halt"
		}

		created, err := DeriveAlerts(ctx, s.alerts, scanned, s.cooldown)
		if err != nil {
			log.Warn().Err(err).Msg("alert derivation incomplete")
			status = "partial_halt"
		}
		log.Info().Int("alerts", created).Int("records", len(scanned)).Msg("run processed")

		if _, err := s.RefreshStats(ctx); err != nil {
			log.Warn().Err(err).Msg("stats refresh failed")
		}
	}

	_ = FinishRun(ctx, s.runs, runID, "upload", status, stats, startedAt, samples)
}

// Reprocess re-parses stored records under the current ruleset asynchronously.
func (s *Service) Reprocess(ctx context.Context, opts ReprocessOptions) (string, error) {
	startedAt := time.Now().UTC()
	runID := newRunID()
	if opts.DefaultThreshold <= 0 {
		opts.DefaultThreshold = s.defaultThreshold
	}
	if err := StartRun(ctx, s.runs, runID, "reprocess", startedAt); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.jobs.Register(runID, cancel)

	go func() {
		defer s.jobs.Unregister(runID)
		log := s.logger.With().Str("runId", runID).Logger()

		progress := func(rp ReprocessStats) {
			_ = s.runs.UpdateRun(runCtx, model.IngestRun{
				RunID:     runID,
				Source:    "reprocess",
				Status:    "running",
				Stats:     reprocessRunStats(rp),
				StartedAt: startedAt,
			})
		}

		rp, err := ReprocessFromDB(runCtx, s.records, s.scanner, opts, log, progress)
		status := "success"
		if err != nil {
			status = "failed"
			if runCtx.Err() != nil {
				status = "canceled"
			}
			log.Error().Err(err).Msg("reprocess run ended early")
		} else if _, err := s.RefreshStats(runCtx); err != nil {
			log.Warn().Err(err).Msg("stats refresh failed")
		}

		_ = FinishRun(context.Background(), s.runs, runID, "reprocess", status, reprocessRunStats(rp), startedAt, nil)
	}()

	return runID, nil
}

// Cancel stops an in-flight run. Returns false when the run is not running.
func (s *Service) Cancel(runID string) bool {
	return s.jobs.Cancel(runID)
}

// SortedRecords flattens a fetched record map into a slice ordered by record
// key. Aggregation folds are order-sensitive (the first record seen for a
// state supplies its representative threshold), so every computation that
// starts from a map must sort first or its output flaps between calls.
func SortedRecords(all map[string]model.ClientStateRecord) []model.ClientStateRecord {
	records := make([]model.ClientStateRecord, 0, len(all))
	for _, rec := range all {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key() < records[j].Key()
	})
	return records
}

// RefreshStats recomputes and persists the dashboard stats singleton.
func (s *Service) RefreshStats(ctx context.Context) (model.SystemStats, error) {
	all, err := s.records.FetchAllMap(ctx)
	if err != nil {
		return model.SystemStats{}, fmt.Errorf("fetch records: %w", err)
	}
	records := SortedRecords(all)

	alerts, err := s.alerts.ListAll(ctx)
	if err != nil {
		return model.SystemStats{}, fmt.Errorf("fetch alerts: %w", err)
	}

	sysStats := AggregateSystemStats(records, alerts)
	if err := s.stats.SaveSystemStats(ctx, sysStats); err != nil {
		return model.SystemStats{}, fmt.Errorf("save stats: %w", err)
	}
	return sysStats, nil
}

func newRunID() string {
	return "RUN_" + uuid.NewString()
}

func reprocessRunStats(rp ReprocessStats) model.IngestRunStats {
	return model.IngestRunStats{
		Found:     rp.Total,
		Validated: rp.Processed,
		Skipped:   rp.Skipped,
		Failed:    rp.Failed,
	}
}

func errorSamples(rowErrs []RowError, max int) []model.ErrorSample {
	if len(rowErrs) == 0 {
		return nil
	}
	if len(rowErrs) > max {
		rowErrs = rowErrs[:max]
	}
	samples := make([]model.ErrorSample, 0, len(rowErrs))
	for _, re := range rowErrs {
		samples = append(samples, model.ErrorSample{Row: re.Row, Reason: re.Reason})
	}
	return samples
}
