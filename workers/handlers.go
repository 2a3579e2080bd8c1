package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"immodex/ingest"
	"immodex/models"
	"immodex/queue"
)

// RunStore persists ingestion run outcomes.
type RunStore interface {
	CreateIngestRun(ctx context.Context, run *models.IngestRun) error
}

// JobDeps bundles everything the background job handlers need.
type JobDeps struct {
	Queue      *queue.Queue
	Runs       RunStore
	Pipeline   *ingest.Pipeline
	Reconciler *Reconciler
	Sweeper    *Sweeper
	Alerter    *Alerter
}

// RegisterHandlers wires every job kind to its executor.
func RegisterHandlers(d *queue.Dispatcher, deps JobDeps) {
	d.Handle(models.JobIndexListings, deps.indexListings)
	d.Handle(models.JobCleanupUser, deps.cleanupUser)
	d.Handle(models.JobSweepZone, deps.sweepZone)
	d.Handle(models.JobReportErrors, deps.reportErrors)
}

func (deps JobDeps) indexListings(ctx context.Context, payload json.RawMessage) error {
	var p models.IndexPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode index payload: %w", err)
	}

	started := time.Now().UTC()
	result := deps.Pipeline.Run(ctx, p.Records, p.Catalog, p.Zone)

	run := &models.IngestRun{
		Zone:       p.Zone,
		Catalog:    p.Catalog,
		Created:    result.Created,
		Updated:    result.Updated,
		Errors:     result.Errors,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if err := deps.Runs.CreateIngestRun(ctx, run); err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}

	if len(result.Failed) > 0 {
		_, err := deps.Queue.Enqueue(ctx, models.JobReportErrors, models.LaneDefault, models.ErrorReportPayload{
			Records: result.Failed,
			Catalog: p.Catalog,
			Errors:  result.Messages,
		})
		if err != nil {
			return fmt.Errorf("enqueue error report: %w", err)
		}
	}
	return nil
}

func (deps JobDeps) cleanupUser(ctx context.Context, payload json.RawMessage) error {
	var p models.CleanupUserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode cleanup payload: %w", err)
	}

	_, err := deps.Reconciler.CleanupUser(ctx, p.Zone, p.UserID)
	return err
}

func (deps JobDeps) sweepZone(ctx context.Context, payload json.RawMessage) error {
	var p models.SweepZonePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode sweep payload: %w", err)
	}

	_, err := deps.Sweeper.SweepZone(ctx, p.Zone, p.MaxDays)
	return err
}

func (deps JobDeps) reportErrors(ctx context.Context, payload json.RawMessage) error {
	var p models.ErrorReportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode report payload: %w", err)
	}
	return deps.Alerter.Report(ctx, p)
}
