package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/trustmark-cpa/nexus-monitor/internal/platform/config"
)

// New creates the Firestore client backing the nexus collections, using
// credentials from env (base64 blob or file path). The returned string names
// the credential source so startup logs show which one won.
func New(ctx context.Context, cfg config.Config) (*firestore.Client, string, error) {
	creds, source, err := cfg.FirebaseCredentialsJSON()
	if err != nil {
		return nil, "", err
	}

	client, err := firestore.NewClient(ctx, cfg.FirebaseProjectID, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, "", fmt.Errorf("init firestore client for %s: %w", cfg.FirebaseProjectID, err)
	}
	return client, source, nil
}

// Ping verifies connectivity and read permission before the server starts
// accepting uploads, by probing the records collection. An empty collection
// is a healthy result (fresh project, nothing ingested yet).
func Ping(ctx context.Context, client *firestore.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	iter := client.Collection("client_state_records").Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("probe client_state_records: %w", err)
	}
	return nil
}
