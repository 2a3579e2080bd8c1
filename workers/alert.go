package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"immodex/models"
)

// ReportStore persists ingestion error reports.
type ReportStore interface {
	CreateErrorReport(ctx context.Context, r *models.ErrorReport) error
}

// Alerter records the listings an ingestion batch could not process, so a
// broken catalog feed is noticed instead of silently shrinking.
type Alerter struct {
	store ReportStore
}

func NewAlerter(store ReportStore) *Alerter {
	return &Alerter{store: store}
}

func (a *Alerter) Report(ctx context.Context, payload models.ErrorReportPayload) error {
	items, err := json.Marshal(payload.Records)
	if err != nil {
		return fmt.Errorf("marshal error report items: %w", err)
	}

	report := &models.ErrorReport{
		Catalog:   payload.Catalog,
		Items:     items,
		Messages:  payload.Errors,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateErrorReport(ctx, report); err != nil {
		return err
	}

	log.Printf("Recorded error report %d for catalog %s (%d records)",
		report.ID, payload.Catalog, len(payload.Records))
	return nil
}
