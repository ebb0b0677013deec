package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/trustmark-cpa/nexus-monitor/internal/business/ingest"
	"github.com/trustmark-cpa/nexus-monitor/internal/platform/config"
	firestoreclient "github.com/trustmark-cpa/nexus-monitor/internal/platform/firestore"
	"github.com/trustmark-cpa/nexus-monitor/internal/platform/piiscan"
	"github.com/trustmark-cpa/nexus-monitor/internal/repository"
	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

// Bulk-imports a local revenue CSV without going through the API. Intended
// for initial loads and local testing against the emulator.
func main() {
	filePath := flag.String("file", "", "Path to the revenue CSV to import (required)")
	dryRun := flag.Bool("dry-run", false, "Parse and report without writing to Firestore")
	deriveAlerts := flag.Bool("alerts", true, "Derive alerts for imported records")
	flag.Parse()

	if *filePath == "" {
		log.Fatal("-file is required")
	}

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *filePath, err)
	}
	defer f.Close()

	records, rowErrs, err := ingest.ParseCSV(f, cfg.DefaultThreshold)
	if err != nil {
		log.Fatalf("Parse failed: %v", err)
	}

	fmt.Printf("Parsed %d records, %d rows rejected\n", len(records), len(rowErrs))
	for i, re := range rowErrs {
		if i >= 10 {
			fmt.Printf("  ... and %d more\n", len(rowErrs)-10)
			break
		}
		fmt.Printf("  row %d: %s\n", re.Row, re.Reason)
	}

	if *dryRun {
		fmt.Println("Dry run complete, nothing written")
		return
	}
	if len(records) == 0 {
		fmt.Println("Nothing to import")
		return
	}

	ctx := context.Background()
	client, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer client.Close()
	log.Printf("Connected to Firestore project %s using %s credentials", cfg.FirebaseProjectID, credsSource)

	runID := fmt.Sprintf("RUN_import_%d", time.Now().Unix())
	for i := range records {
		records[i].IngestRunID = runID
	}

	scanner := piiscan.New(nil, piiscan.Config{
		APIKey: cfg.PIIScanAPIKey,
		Mock:   cfg.PIIScanMock,
	})
	scanned := make([]model.ClientStateRecord, 0, len(records))
	flagged := 0
	for _, rec := range records {
		out, err := scanner.ScanRecord(ctx, rec)
		if err != nil {
			log.Printf("Warning: scan failed for %s/%s: %v", rec.ClientID, rec.StateCode, err)
			out = rec
		}
		if out.PIIFlag {
			flagged++
		}
		scanned = append(scanned, out)
	}
	fmt.Printf("Scanned %d records, %d flagged for PII\n", len(scanned), flagged)

	recordRepo := repository.NewRecordRepository(client)
	if err := recordRepo.BatchUpsert(ctx, scanned); err != nil {
		log.Fatalf("Upsert failed: %v", err)
	}
	fmt.Printf("Imported %d records under %s\n", len(scanned), runID)

	if *deriveAlerts {
		alertRepo := repository.NewAlertRepository(client)
		created, err := ingest.DeriveAlerts(ctx, alertRepo, scanned, cfg.AlertCooldown)
		if err != nil {
			log.Fatalf("Alert derivation failed after %d alerts: %v", created, err)
		}
		fmt.Printf("Derived %d alerts\n", created)
	}
}
