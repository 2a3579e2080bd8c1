package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"immodex/models"
)

// Handler runs one job kind. The payload is the JSON the job was enqueued
// with.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Dispatcher polls the queue and runs registered handlers. Several
// dispatchers may run against the same store; the claim query guarantees
// each job runs exactly once.
type Dispatcher struct {
	store    Store
	handlers map[models.JobKind]Handler
	interval time.Duration
}

func NewDispatcher(store Store, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		store:    store,
		handlers: make(map[models.JobKind]Handler),
		interval: interval,
	}
}

// Handle registers the handler for a job kind. Not safe to call once Run
// has started.
func (d *Dispatcher) Handle(kind models.JobKind, h Handler) {
	d.handlers[kind] = h
}

// Run drains the queue, then polls at the configured interval until the
// context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("Dispatcher started, polling every %v", d.interval)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("Dispatcher stopped")
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

// drain claims and runs jobs until the queue is empty. Lane priority is
// enforced by the claim ordering, so a long low-lane backlog never starves
// a fresh high-lane job beyond the one currently running.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := d.store.ClaimNextJob(ctx)
		if err != nil {
			log.Printf("Failed to claim job: %v", err)
			return
		}
		if job == nil {
			return
		}

		jobErr := d.runJob(ctx, job)
		if jobErr != nil {
			log.Printf("Job %s (%s) failed: %v", job.ID, job.Kind, jobErr)
		}
		if err := d.store.CompleteJob(ctx, job.ID, jobErr); err != nil {
			log.Printf("Failed to record outcome of job %s: %v", job.ID, err)
		}
	}
}

func (d *Dispatcher) runJob(ctx context.Context, job *models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	handler, ok := d.handlers[job.Kind]
	if !ok {
		return fmt.Errorf("no handler for job kind %q", job.Kind)
	}
	return handler(ctx, job.Payload)
}
