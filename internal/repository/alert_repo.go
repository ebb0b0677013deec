package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/trustmark-cpa/nexus-monitor/pkg/model"
)

const alertsCollection = "alerts"

// ErrAlertNotFound is returned when an alert ID does not exist.
var ErrAlertNotFound = errors.New("alert not found")

// AlertRepository manages compliance alerts.
type AlertRepository struct {
	client *firestore.Client
}

func NewAlertRepository(client *firestore.Client) *AlertRepository {
	return &AlertRepository{client: client}
}

func (r *AlertRepository) Insert(ctx context.Context, alert model.Alert) error {
	if alert.ID == "" {
		return fmt.Errorf("alert id is required")
	}
	ref := r.client.Collection(alertsCollection).Doc(alert.ID)
	if _, err := ref.Set(ctx, alert); err != nil {
		return fmt.Errorf("insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// List returns alerts, optionally filtered by status, newest first.
func (r *AlertRepository) List(ctx context.Context, statusFilter string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.client.Collection(alertsCollection).Query
	if statusFilter != "" {
		query = query.Where("status", "==", statusFilter)
	}
	query = query.OrderBy("createdAt", firestore.Desc).Limit(limit)

	var alerts []model.Alert
	iter := query.Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list alerts: %w", err)
		}
		var a model.Alert
		if err := doc.DataTo(&a); err != nil {
			return nil, fmt.Errorf("decode alert %s: %w", doc.Ref.ID, err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// ListAll returns every alert regardless of status. Used when recomputing
// aggregates, which need open and acknowledged alerts alike.
func (r *AlertRepository) ListAll(ctx context.Context) ([]model.Alert, error) {
	var alerts []model.Alert
	iter := r.client.Collection(alertsCollection).Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list all alerts: %w", err)
		}
		var a model.Alert
		if err := doc.DataTo(&a); err != nil {
			return nil, fmt.Errorf("decode alert %s: %w", doc.Ref.ID, err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// UpdateStatus transitions an alert to the given status.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id, newStatus string) error {
	ref := r.client.Collection(alertsCollection).Doc(id)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: newStatus},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return ErrAlertNotFound
	}
	if err != nil {
		return fmt.Errorf("update alert %s: %w", id, err)
	}
	return nil
}

// HasOpenAlertInCooldown reports whether an open alert already exists for the
// client+state pair created within the cooldown window.
func (r *AlertRepository) HasOpenAlertInCooldown(ctx context.Context, clientID, stateCode string, cooldown time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-cooldown)
	query := r.client.Collection(alertsCollection).
		Where("clientId", "==", clientID).
		Where("stateCode", "==", stateCode).
		Where("status", "==", "open").
		Limit(25)

	iter := query.Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("cooldown check %s/%s: %w", clientID, stateCode, err)
		}
		var a model.Alert
		if err := doc.DataTo(&a); err != nil {
			return false, fmt.Errorf("decode alert %s: %w", doc.Ref.ID, err)
		}
		if a.CreatedAt.After(cutoff) {
			return true, nil
		}
	}
}
