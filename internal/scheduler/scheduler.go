package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/curatorr/curatorr/internal/jobs"
)

// Scheduler enqueues the periodic full rescan on a cron pattern.
type Scheduler struct {
	cron  *cron.Cron
	queue *jobs.Queue
}

func New(queue *jobs.Queue) *Scheduler {
	return &Scheduler{
		cron:  cron.New(),
		queue: queue,
	}
}

// Schedule registers the rescan job under the given cron pattern
// (standard five-field syntax).
func (s *Scheduler) Schedule(pattern string) error {
	_, err := s.cron.AddFunc(pattern, func() {
		if _, err := s.queue.EnqueueUnique(jobs.TaskRescanAll,
			jobs.RescanAllPayload{Reason: "scheduled"}, "rescan:all",
			asynq.Queue("low"), asynq.Timeout(1*time.Hour), asynq.Retention(1*time.Hour)); err != nil {
			log.Printf("Scheduler: failed to enqueue rescan: %v", err)
			return
		}
		log.Println("Scheduler: enqueued periodic rescan")
	})
	if err != nil {
		return fmt.Errorf("invalid cron pattern %q: %w", pattern, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
