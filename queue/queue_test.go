package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"immodex/models"
)

// memStore is an in-memory Store honoring the lane/age claim order.
type memStore struct {
	mu   sync.Mutex
	jobs []*models.Job
}

func (m *memStore) EnqueueJob(ctx context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *j
	m.jobs = append(m.jobs, &copied)
	return nil
}

func (m *memStore) ClaimNextJob(ctx context.Context) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []*models.Job
	for _, j := range m.jobs {
		if j.Status == models.JobStatusPending {
			pending = append(pending, j)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	sort.SliceStable(pending, func(i, k int) bool {
		if pending[i].Lane != pending[k].Lane {
			return pending[i].Lane < pending[k].Lane
		}
		return pending[i].CreatedAt.Before(pending[k].CreatedAt)
	})

	job := pending[0]
	job.Status = models.JobStatusRunning
	job.Attempts++
	return job, nil
}

func (m *memStore) CompleteJob(ctx context.Context, id uuid.UUID, jobErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == id {
			if jobErr != nil {
				j.Status = models.JobStatusFailed
				j.Error = jobErr.Error()
			} else {
				j.Status = models.JobStatusDone
			}
			return nil
		}
	}
	return errors.New("job not found")
}

func (m *memStore) byID(id uuid.UUID) *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func TestEnqueueReturnsJobId(t *testing.T) {
	store := &memStore{}
	q := New(store)

	id, err := q.Enqueue(context.Background(), models.JobCleanupUser, models.LaneLow, models.CleanupUserPayload{
		Zone:   "z1",
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected a job id")
	}

	job := store.byID(id)
	if job == nil || job.Status != models.JobStatusPending {
		t.Fatalf("stored job = %+v", job)
	}

	var payload models.CleanupUserPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Zone != "z1" || payload.UserID != "u1" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestDispatcherHonorsLanePriority(t *testing.T) {
	store := &memStore{}
	q := New(store)
	ctx := context.Background()

	// enqueue low first so creation order disagrees with lane order
	q.Enqueue(ctx, models.JobSweepZone, models.LaneLow, models.SweepZonePayload{Zone: "z1"})
	q.Enqueue(ctx, models.JobReportErrors, models.LaneDefault, nil)
	q.Enqueue(ctx, models.JobIndexListings, models.LaneHigh, nil)

	var order []models.JobKind
	d := NewDispatcher(store, time.Minute)
	record := func(kind models.JobKind) Handler {
		return func(ctx context.Context, payload json.RawMessage) error {
			order = append(order, kind)
			return nil
		}
	}
	d.Handle(models.JobIndexListings, record(models.JobIndexListings))
	d.Handle(models.JobReportErrors, record(models.JobReportErrors))
	d.Handle(models.JobSweepZone, record(models.JobSweepZone))

	d.drain(ctx)

	want := []models.JobKind{models.JobIndexListings, models.JobReportErrors, models.JobSweepZone}
	for i, kind := range want {
		if order[i] != kind {
			t.Fatalf("run order = %v, want %v", order, want)
		}
	}
}

func TestDispatcherRecordsFailures(t *testing.T) {
	store := &memStore{}
	q := New(store)
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, models.JobSweepZone, models.LaneLow, nil)

	d := NewDispatcher(store, time.Minute)
	d.Handle(models.JobSweepZone, func(ctx context.Context, payload json.RawMessage) error {
		return errors.New("index unreachable")
	})
	d.drain(ctx)

	job := store.byID(id)
	if job.Status != models.JobStatusFailed || job.Error != "index unreachable" {
		t.Fatalf("job = %+v, want failed with message", job)
	}
}

func TestDispatcherFailsUnknownKinds(t *testing.T) {
	store := &memStore{}
	q := New(store)
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, models.JobKind("mystery"), models.LaneDefault, nil)

	d := NewDispatcher(store, time.Minute)
	d.drain(ctx)

	job := store.byID(id)
	if job.Status != models.JobStatusFailed {
		t.Fatalf("job = %+v, want failed on unknown kind", job)
	}
}

func TestDispatcherRecoversFromPanics(t *testing.T) {
	store := &memStore{}
	q := New(store)
	ctx := context.Background()

	id, _ := q.Enqueue(ctx, models.JobSweepZone, models.LaneLow, nil)

	d := NewDispatcher(store, time.Minute)
	d.Handle(models.JobSweepZone, func(ctx context.Context, payload json.RawMessage) error {
		panic("boom")
	})
	d.drain(ctx)

	job := store.byID(id)
	if job.Status != models.JobStatusFailed {
		t.Fatalf("job = %+v, want failed after panic", job)
	}
}
