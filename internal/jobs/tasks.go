package jobs

import (
	"github.com/curatorr/curatorr/internal/assets"
	"github.com/curatorr/curatorr/internal/repository"
)

// ──────── Payloads ────────

type DiscoverPayload struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Directory  string `json:"directory"`
	VideoFile  string `json:"video_file"`
}

type RescanAllPayload struct {
	Reason string `json:"reason,omitempty"`
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, svc *assets.Service, runRepo *repository.DiscoveryRepository,
	notifier EventNotifier) {

	q.RegisterHandler(TaskDiscoverAssets, NewDiscoverHandler(svc, runRepo, notifier))
	q.RegisterHandler(TaskRescanAll, NewRescanAllHandler(q, runRepo))
}
