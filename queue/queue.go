package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"immodex/models"
)

// Store is the persistence layer of the queue.
type Store interface {
	EnqueueJob(ctx context.Context, j *models.Job) error
	ClaimNextJob(ctx context.Context) (*models.Job, error)
	CompleteJob(ctx context.Context, id uuid.UUID, jobErr error) error
}

// Queue enqueues background jobs into priority lanes. Callers get an
// opaque job id back immediately and never block on completion.
type Queue struct {
	store Store
}

func New(store Store) *Queue {
	return &Queue{store: store}
}

// Enqueue persists a job and returns its id. The payload is the task's
// arguments, marshaled as JSON.
func (q *Queue) Enqueue(ctx context.Context, kind models.JobKind, lane models.Lane, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload for %s: %w", kind, err)
	}

	job := &models.Job{
		ID:        uuid.New(),
		Kind:      kind,
		Lane:      lane,
		Payload:   data,
		Status:    models.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.store.EnqueueJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return job.ID, nil
}
