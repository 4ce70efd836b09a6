package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/tmuhq/tmusync/internal/jobs"
	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
)

// Enqueuer is the slice of the job queue the scheduler needs.
type Enqueuer interface {
	EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error)
}

// Scheduler runs the nightly metadata refresh: titles whose rows have gone
// stale are re-queued for a full sync, a batch per family per run.
type Scheduler struct {
	titles     *repository.TitleRepository
	queue      Enqueuer
	cronSpec   string
	cron       *cron.Cron
	staleAfter time.Duration
	batchSize  int
}

func New(titles *repository.TitleRepository, queue Enqueuer, cronSpec string) *Scheduler {
	return &Scheduler{
		titles:     titles,
		queue:      queue,
		cronSpec:   cronSpec,
		cron:       cron.New(),
		staleAfter: 7 * 24 * time.Hour,
		batchSize:  500,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cronSpec, s.refresh); err != nil {
		return fmt.Errorf("bad refresh cron %q: %w", s.cronSpec, err)
	}
	s.cron.Start()
	log.Printf("Scheduler: refresh registered (%s)", s.cronSpec)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler: stopped")
}

func (s *Scheduler) refresh() {
	before := time.Now().Add(-s.staleAfter)
	for _, kind := range models.TitleKinds() {
		targets, err := s.titles.ListStale(kind, before, s.batchSize)
		if err != nil {
			log.Printf("Scheduler: listing stale %s rows: %v", kind, err)
			continue
		}
		if len(targets) == 0 {
			continue
		}
		log.Printf("Scheduler: queueing %d stale %s rows", len(targets), kind)
		for _, t := range targets {
			payload := jobs.TitleSyncPayload{
				Kind:    kind.String(),
				LocalID: t.ID,
				TMDBID:  t.TMDBID,
			}
			uniqueID := fmt.Sprintf("refresh:%s:%d", kind, t.ID)
			if _, err := s.queue.EnqueueUnique(jobs.TaskTitleSync, payload, uniqueID,
				asynq.Queue(jobs.QueueBulk)); err != nil {
				log.Printf("Scheduler: enqueue %s %d: %v", kind, t.ID, err)
			}
		}
	}
}
