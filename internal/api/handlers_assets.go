package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/curatorr/curatorr/internal/assets"
	"github.com/curatorr/curatorr/internal/httputil"
	"github.com/curatorr/curatorr/internal/jobs"
	"github.com/curatorr/curatorr/internal/models"
	"github.com/curatorr/curatorr/internal/repository"
)

// entityParams parses the {type}/{id} path segments shared by asset routes.
func entityParams(r *http.Request) (models.EntityType, uuid.UUID, error) {
	entityType := models.EntityType(r.PathValue("type"))
	switch entityType {
	case models.EntityMovie, models.EntityCollection:
	default:
		return "", uuid.Nil, errors.New("unknown entity type")
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return "", uuid.Nil, errors.New("invalid entity id")
	}
	return entityType, id, nil
}

func assetTypeParam(r *http.Request) (models.AssetType, bool) {
	assetType := models.AssetType(r.PathValue("assetType"))
	if models.KindForAssetType(assetType) == models.KindImages && assets.SpecFor(assetType) == nil {
		return "", false
	}
	return assetType, true
}

// ──────────────────── Discovery ────────────────────

type discoverRequest struct {
	Directory string `json:"directory"`
	VideoFile string `json:"video_file"`
	Async     bool   `json:"async,omitempty"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, err := entityParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, err.Error())
		return
	}

	var req discoverRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "invalid JSON body")
		return
	}
	if req.Directory == "" {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "directory is required")
		return
	}

	if req.Async && s.jobQueue != nil {
		payload := jobs.DiscoverPayload{
			EntityType: string(entityType),
			EntityID:   entityID.String(),
			Directory:  req.Directory,
			VideoFile:  req.VideoFile,
		}
		uniqueID := "discover:" + entityID.String()
		taskID, err := s.jobQueue.EnqueueUnique(jobs.TaskDiscoverAssets, payload, uniqueID,
			asynq.Timeout(1*time.Hour), asynq.Retention(1*time.Hour))
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, "enqueue_failed", err.Error())
			return
		}
		s.respondJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
		return
	}

	result, err := s.service.Discover(r.Context(), entityType, entityID, req.Directory, req.VideoFile)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "discovery_failed", err.Error())
		return
	}

	if err := s.discoveryRepo.RecordRun(&models.DiscoveryRun{
		EntityType: entityType,
		EntityID:   entityID,
		Directory:  req.Directory,
		VideoFile:  req.VideoFile,
		Images:     result.Images,
		Trailers:   result.Trailers,
		Subtitles:  result.Subtitles,
	}); err != nil {
		s.respondError(w, http.StatusInternalServerError, "discovery_failed", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

// ──────────────────── Candidates and selection ────────────────────

// nearDuplicateThreshold is the perceptual-hash similarity above which two
// candidates are surfaced as probable copies of the same artwork.
const nearDuplicateThreshold = 0.92

type assetListResponse struct {
	Candidates     []*models.AssetCandidate `json:"candidates"`
	Selected       []*models.AssetCandidate `json:"selected"`
	Locked         bool                     `json:"locked"`
	URLs           map[string]string        `json:"urls,omitempty"`
	NearDuplicates []assets.DuplicatePair   `json:"near_duplicates,omitempty"`
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, err := entityParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, err.Error())
		return
	}
	assetType, ok := assetTypeParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "unknown asset type")
		return
	}

	candidates, err := s.service.Candidates(entityType, entityID, assetType)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	selected, err := s.service.Selected(entityType, entityID, assetType)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	locked, err := s.service.IsLocked(entityType, entityID, assetType)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	// Map content hashes to served cache URLs so clients never touch library paths.
	urls := make(map[string]string)
	for _, c := range candidates {
		if c.ContentHash == nil {
			continue
		}
		if _, ok := urls[*c.ContentHash]; ok {
			continue
		}
		if entry, err := s.entryRepo.GetByHash(*c.ContentHash); err == nil && entry != nil {
			urls[*c.ContentHash] = s.store.PublicURL(entry)
		}
	}

	s.respondJSON(w, http.StatusOK, assetListResponse{
		Candidates:     candidates,
		Selected:       selected,
		Locked:         locked,
		URLs:           urls,
		NearDuplicates: assets.NearDuplicates(candidates, nearDuplicateThreshold),
	})
}

type replaceRequest struct {
	Assets []models.AssetRef `json:"assets"`
}

func (s *Server) handleReplaceAssets(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, err := entityParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, err.Error())
		return
	}
	assetType, ok := assetTypeParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "unknown asset type")
		return
	}

	var req replaceRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "invalid JSON body")
		return
	}

	result, err := s.service.Replace(r.Context(), entityType, entityID, assetType, req.Assets)
	switch {
	case errors.Is(err, assets.ErrLocked):
		s.respondError(w, http.StatusLocked, httputil.CodeLocked, "asset type is locked for this entity")
		return
	case errors.Is(err, assets.ErrLimitExceeded):
		s.respondError(w, http.StatusUnprocessableEntity, httputil.CodeLimitExceeded, err.Error())
		return
	case errors.Is(err, assets.ErrNothingResolved):
		// Result carries the per-item failure reasons; nothing was committed.
		s.respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, "replace_failed", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleResetAssets(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, err := entityParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, err.Error())
		return
	}
	assetType, ok := assetTypeParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "unknown asset type")
		return
	}

	deleted, err := s.service.ResetSelection(entityType, entityID, assetType)
	if errors.Is(err, assets.ErrLocked) {
		s.respondError(w, http.StatusLocked, httputil.CodeLocked, "asset type is locked for this entity")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "reset_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// ──────────────────── Locks ────────────────────

type lockRequest struct {
	Locked bool `json:"locked"`
}

func (s *Server) handleGetLock(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, err := entityParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, err.Error())
		return
	}
	assetType, ok := assetTypeParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "unknown asset type")
		return
	}

	locked, err := s.service.IsLocked(entityType, entityID, assetType)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "lock_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"locked": locked})
}

func (s *Server) handleSetLock(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, err := entityParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, err.Error())
		return
	}
	assetType, ok := assetTypeParam(r)
	if !ok {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "unknown asset type")
		return
	}

	var req lockRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "invalid JSON body")
		return
	}

	if err := s.service.SetLock(entityType, entityID, assetType, req.Locked); err != nil {
		s.respondError(w, http.StatusInternalServerError, "lock_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"locked": req.Locked})
}

// ──────────────────── Candidate state ────────────────────

type stateRequest struct {
	Version int `json:"version"`
}

func (s *Server) handleBlockCandidate(w http.ResponseWriter, r *http.Request) {
	s.handleCandidateState(w, r, s.service.Block)
}

func (s *Server) handleUnblockCandidate(w http.ResponseWriter, r *http.Request) {
	s.handleCandidateState(w, r, s.service.Unblock)
}

func (s *Server) handleCandidateState(w http.ResponseWriter, r *http.Request,
	action func(uuid.UUID, int) (int, error)) {

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "invalid candidate id")
		return
	}
	var req stateRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "invalid JSON body")
		return
	}

	newVersion, err := action(id, req.Version)
	if errors.Is(err, repository.ErrVersionConflict) {
		s.respondError(w, http.StatusConflict, httputil.CodeVersionConflict,
			"candidate was modified concurrently; reload and retry")
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "state_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"version": newVersion})
}

// ──────────────────── Uploads ────────────────────

// handleUpload caches a user-supplied file; the returned hash is used as
// upload_ref in a subsequent replace call.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "missing file field")
		return
	}
	defer file.Close()

	kind := models.CacheKind(r.FormValue("kind"))
	switch kind {
	case models.KindImages, models.KindVideo, models.KindText, models.KindAudio, models.KindActors:
	case "":
		kind = models.KindImages
	default:
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "unknown cache kind")
		return
	}

	entry, err := s.service.Upload(kind, file, filepath.Ext(header.Filename))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "upload_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{
		"upload_ref": entry.Hash,
		"url":        s.store.PublicURL(entry),
	})
}

// ──────────────────── Cache and specs ────────────────────

// handleCacheEntry verifies that cached content is still present on disk and
// returns its serving URL; clients use it to re-check stale links before
// rendering.
func (s *Server) handleCacheEntry(w http.ResponseWriter, r *http.Request) {
	kind := models.CacheKind(r.PathValue("kind"))
	switch kind {
	case models.KindImages, models.KindVideo, models.KindText, models.KindAudio, models.KindActors:
	default:
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "unknown cache kind")
		return
	}

	entry, err := s.store.Stat(kind, r.PathValue("hash"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, httputil.CodeNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"hash":       entry.Hash,
		"kind":       entry.Kind,
		"format":     entry.Format,
		"size_bytes": entry.SizeBytes,
		"url":        s.store.PublicURL(entry),
	})
}

// handleListSpecs exposes the artwork rule table so clients can validate
// dimensions before uploading.
func (s *Server) handleListSpecs(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, assets.AllSpecs())
}

// ──────────────────── Rescans ────────────────────

func (s *Server) handleRescanAll(w http.ResponseWriter, r *http.Request) {
	if s.jobQueue == nil {
		s.respondError(w, http.StatusServiceUnavailable, "queue_unavailable", "job queue not running")
		return
	}
	taskID, err := s.jobQueue.EnqueueUnique(jobs.TaskRescanAll,
		jobs.RescanAllPayload{Reason: "manual"}, "rescan:all",
		asynq.Queue("low"), asynq.Timeout(1*time.Hour), asynq.Retention(1*time.Hour))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "enqueue_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) handleListDiscoveryRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.discoveryRepo.ListAll()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, runs)
}
