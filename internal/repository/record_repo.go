package repository

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
	"github.com/trustmark-cpa/nexus-monitor/pkg/util"
)

const recordsCollection = "client_state_records"

// RecordRepository handles Firestore read/write for client-state records.
type RecordRepository struct {
	client *firestore.Client
}

func NewRecordRepository(client *firestore.Client) *RecordRepository {
	return &RecordRepository{client: client}
}

// RecordQuery filters and pages the record listing.
type RecordQuery struct {
	StateCode string
	ClientID  string
	Active    *bool
	Page      int
	PageSize  int
}

// FetchAllMap loads all records into a memory map keyed by clientId|stateCode.
func (r *RecordRepository) FetchAllMap(ctx context.Context) (map[string]model.ClientStateRecord, error) {
	iter := r.client.Collection(recordsCollection).Documents(ctx)
	result := make(map[string]model.ClientStateRecord)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate records: %w", err)
		}
		var rec model.ClientStateRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", doc.Ref.ID, err)
		}
		if rec.ID == "" {
			rec.ID = doc.Ref.ID
		}
		key := rec.Key()
		if key == "|" {
			key = doc.Ref.ID
		}
		result[key] = rec
	}
	return result, nil
}

// List returns a filtered page of records plus the total match count.
func (r *RecordRepository) List(ctx context.Context, q RecordQuery) ([]model.ClientStateRecord, int, error) {
	query := r.client.Collection(recordsCollection).Query
	if q.StateCode != "" {
		query = query.Where("stateCode", "==", strings.ToUpper(strings.TrimSpace(q.StateCode)))
	}
	if q.ClientID != "" {
		query = query.Where("clientId", "==", q.ClientID)
	}
	if q.Active != nil {
		query = query.Where("active", "==", *q.Active)
	}

	var matched []model.ClientStateRecord
	iter := query.Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("list records: %w", err)
		}
		var rec model.ClientStateRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, 0, fmt.Errorf("decode record %s: %w", doc.Ref.ID, err)
		}
		if rec.ID == "" {
			rec.ID = doc.Ref.ID
		}
		matched = append(matched, rec)
	}

	total := len(matched)
	page := q.Page
	if page <= 0 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []model.ClientStateRecord{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// StreamAll invokes fn for every record, optionally restricted to active ones.
func (r *RecordRepository) StreamAll(ctx context.Context, activeOnly bool, fn func(model.ClientStateRecord) error) error {
	query := r.client.Collection(recordsCollection).Query
	if activeOnly {
		query = query.Where("active", "==", true)
	}
	iter := query.Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream records: %w", err)
		}
		var rec model.ClientStateRecord
		if err := doc.DataTo(&rec); err != nil {
			return fmt.Errorf("decode record %s: %w", doc.Ref.ID, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// BatchUpsert writes records in batches to reduce round trips.
func (r *RecordRepository) BatchUpsert(ctx context.Context, records []model.ClientStateRecord) error {
	if len(records) == 0 {
		return nil
	}
	const batchSize = 400

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := r.client.Batch()
		for _, rec := range records[start:end] {
			docID := documentID(rec)
			ref := r.client.Collection(recordsCollection).Doc(docID)
			if rec.ID == "" {
				rec.ID = docID
			}
			batch.Set(ref, rec)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("commit batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func documentID(rec model.ClientStateRecord) string {
	if rec.ID != "" {
		return rec.ID
	}
	return util.HashString(rec.Key())
}
