package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"immodex/config"
	"immodex/models"
	"immodex/prefstore"
	"immodex/queue"
)

// Scheduler enqueues the nightly maintenance jobs: one sweep per zone to
// drop obsolete listings, then one reconciliation per user and zone to
// repair the references the sweep orphaned. Both run on the low lane so a
// live ingest always goes first.
type Scheduler struct {
	cfg    *config.Config
	queue  *queue.Queue
	users  *prefstore.Users
	cron   *cron.Cron
	stopCh chan struct{}
}

func New(cfg *config.Config, q *queue.Queue, users *prefstore.Users) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		queue:  q,
		users:  users,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Cleanup.Cron == "" {
		log.Println("No cleanup schedule configured, daemon will only run queued jobs")
		return nil
	}

	log.Printf("Starting scheduler with cron: %s", s.cfg.Cleanup.Cron)
	_, err := s.cron.AddFunc(s.cfg.Cleanup.Cron, func() {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
		if err := s.EnqueueMaintenance(ctx); err != nil {
			log.Printf("Scheduled maintenance error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stopCh)
}

// EnqueueMaintenance queues the sweep and reconciliation jobs for every
// configured zone. Also callable directly via the -sweep flag.
func (s *Scheduler) EnqueueMaintenance(ctx context.Context) error {
	if err := s.enqueueSweeps(ctx); err != nil {
		return err
	}
	return s.enqueueReconciliations(ctx)
}

func (s *Scheduler) enqueueSweeps(ctx context.Context) error {
	for zone := range s.cfg.Zones {
		id, err := s.queue.Enqueue(ctx, models.JobSweepZone, models.LaneLow, models.SweepZonePayload{
			Zone:    zone,
			MaxDays: s.cfg.MaxDaysFor(zone),
		})
		if err != nil {
			return fmt.Errorf("enqueue sweep for %s: %w", zone, err)
		}
		log.Printf("Queued sweep %s for zone %s", id, zone)
	}
	return nil
}

func (s *Scheduler) enqueueReconciliations(ctx context.Context) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	queued := 0
	for _, user := range users {
		if user.ID == "" {
			continue
		}
		for zone := range s.cfg.Zones {
			_, err := s.queue.Enqueue(ctx, models.JobCleanupUser, models.LaneLow, models.CleanupUserPayload{
				Zone:   zone,
				UserID: user.ID,
			})
			if err != nil {
				return fmt.Errorf("enqueue cleanup for %s/%s: %w", zone, user.ID, err)
			}
			queued++
		}
	}
	if queued > 0 {
		log.Printf("Queued %d user cleanups", queued)
	}
	return nil
}
