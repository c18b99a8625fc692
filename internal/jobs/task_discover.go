package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/curatorr/curatorr/internal/assets"
	"github.com/curatorr/curatorr/internal/models"
	"github.com/curatorr/curatorr/internal/repository"
)

type DiscoverHandler struct {
	svc      *assets.Service
	runRepo  *repository.DiscoveryRepository
	notifier EventNotifier
}

func NewDiscoverHandler(svc *assets.Service, runRepo *repository.DiscoveryRepository,
	notifier EventNotifier) *DiscoverHandler {
	return &DiscoverHandler{svc: svc, runRepo: runRepo, notifier: notifier}
}

func (h *DiscoverHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p DiscoverPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	entityID, err := uuid.Parse(p.EntityID)
	if err != nil {
		return fmt.Errorf("parse entity id: %w", err)
	}
	entityType := models.EntityType(p.EntityType)

	log.Printf("Job: discovering assets for %s %s in %s", entityType, p.EntityID, p.Directory)

	// Discover broadcasts its own start/complete events; the handler only has
	// to report failures, which end the scan without a complete event.
	result, err := h.svc.Discover(ctx, entityType, entityID, p.Directory, p.VideoFile)
	if err != nil {
		if h.notifier != nil {
			h.notifier.Broadcast("discovery:failed", map[string]interface{}{
				"entity_type": entityType, "entity_id": entityID, "error": err.Error(),
			})
		}
		return fmt.Errorf("discover: %w", err)
	}

	if h.runRepo != nil {
		run := &models.DiscoveryRun{
			EntityType: entityType,
			EntityID:   entityID,
			Directory:  p.Directory,
			VideoFile:  p.VideoFile,
			Images:     result.Images,
			Trailers:   result.Trailers,
			Subtitles:  result.Subtitles,
		}
		if err := h.runRepo.RecordRun(run); err != nil {
			log.Printf("Job: failed to record discovery run for %s: %v", p.EntityID, err)
		}
	}

	log.Printf("Job: discovery complete for %s - %d images, %d trailers, %d subtitles, %d skipped",
		p.EntityID, result.Images, result.Trailers, result.Subtitles, len(result.Skipped))
	return nil
}

// ──────── Periodic rescan ────────

// RescanAllHandler replays the recorded discovery run of every entity as
// individual discover jobs, deduplicated per entity by task ID.
type RescanAllHandler struct {
	queue   *Queue
	runRepo *repository.DiscoveryRepository
}

func NewRescanAllHandler(q *Queue, runRepo *repository.DiscoveryRepository) *RescanAllHandler {
	return &RescanAllHandler{queue: q, runRepo: runRepo}
}

func (h *RescanAllHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	runs, err := h.runRepo.ListAll()
	if err != nil {
		return fmt.Errorf("list discovery runs: %w", err)
	}

	enqueued := 0
	for _, run := range runs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload := DiscoverPayload{
			EntityType: string(run.EntityType),
			EntityID:   run.EntityID.String(),
			Directory:  run.Directory,
			VideoFile:  run.VideoFile,
		}
		uniqueID := "discover:" + run.EntityID.String()
		if _, err := h.queue.EnqueueUnique(TaskDiscoverAssets, payload, uniqueID,
			asynq.Queue("low"), asynq.Timeout(1*time.Hour), asynq.Retention(1*time.Hour)); err != nil {
			log.Printf("Job: failed to enqueue rescan for %s: %v", run.EntityID, err)
			continue
		}
		enqueued++
	}

	log.Printf("Job: rescan enqueued %d of %d recorded entities", enqueued, len(runs))
	return nil
}
