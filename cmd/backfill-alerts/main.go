package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/trustmark-cpa/nexus-monitor/internal/business/ingest"
	"github.com/trustmark-cpa/nexus-monitor/internal/business/nexus"
	"github.com/trustmark-cpa/nexus-monitor/internal/platform/config"
	firestoreclient "github.com/trustmark-cpa/nexus-monitor/internal/platform/firestore"
	"github.com/trustmark-cpa/nexus-monitor/internal/repository"
	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// Backfills alerts for stored records that sit at pending or above but never
// had one raised (records imported before alert derivation existed), then
// refreshes the stats singleton.
func main() {
	dryRun := flag.Bool("dry-run", false, "Preview alerts without writing to Firestore")
	cooldownMin := flag.Int("cooldown", 60, "Suppress duplicates for pairs with an open alert created in the last N minutes")
	flag.Parse()

	ctx := context.Background()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer client.Close()

	log.Printf("Connected to Firestore project %s using %s credentials", cfg.FirebaseProjectID, credsSource)

	mode := "LIVE"
	if *dryRun {
		mode = "DRY-RUN"
	}

	fmt.Printf("\n=== Alert Backfill [%s] ===\n", mode)
	fmt.Println("==========================================")

	recordRepo := repository.NewRecordRepository(client)
	alertRepo := repository.NewAlertRepository(client)
	statsRepo := repository.NewStatsRepository(client)

	all, err := recordRepo.FetchAllMap(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch records: %v", err)
	}

	records := ingest.SortedRecords(all)

	var active []model.ClientStateRecord
	tiers := make(map[model.StatusTier]int)
	for _, rec := range records {
		if !rec.Active {
			continue
		}
		active = append(active, rec)
		tiers[nexus.Classify(rec.CurrentAmount, nexus.EffectiveThreshold(rec.ThresholdAmount))]++
	}

	fmt.Printf("Active records: %d\n", len(active))
	for _, tier := range []model.StatusTier{model.StatusCritical, model.StatusWarning, model.StatusPending, model.StatusTransit, model.StatusCompliant} {
		fmt.Printf("  %-10s %d\n", tier, tiers[tier])
	}

	if *dryRun {
		shown := 0
		for _, rec := range active {
			alert, ok := ingest.AlertForRecord(rec)
			if !ok {
				continue
			}
			shown++
			if shown <= 10 {
				fmt.Printf("\n--- Would create [%s] %s\n", alert.Priority, alert.Title)
			}
		}
		fmt.Printf("\nWould derive up to %d alerts (before cooldown suppression)\n", shown)
		fmt.Println("==========================================")
		fmt.Println("Dry run complete, nothing written")
		return
	}

	cooldown := time.Duration(*cooldownMin) * time.Minute
	created, err := ingest.DeriveAlerts(ctx, alertRepo, active, cooldown)
	if err != nil {
		log.Fatalf("Alert derivation failed after %d alerts: %v", created, err)
	}
	fmt.Printf("\nCreated %d alerts\n", created)

	alerts, err := alertRepo.ListAll(ctx)
	if err != nil {
		log.Fatalf("Failed to list alerts: %v", err)
	}
	stats := ingest.AggregateSystemStats(records, alerts)
	if err := statsRepo.SaveSystemStats(ctx, stats); err != nil {
		log.Fatalf("Failed to save stats: %v", err)
	}

	fmt.Println("==========================================")
	fmt.Printf("Backfill completed! Open alerts now: %d\n", stats.OpenAlerts)
}
