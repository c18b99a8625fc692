package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/curatorr/curatorr/internal/cache"
	"github.com/curatorr/curatorr/internal/models"
)

var (
	// ErrLocked rejects a replace call for a locked asset-type group.
	ErrLocked = errors.New("asset type is locked")
	// ErrLimitExceeded rejects a replace list longer than the type's limit.
	ErrLimitExceeded = errors.New("selection limit exceeded")
	// ErrNothingResolved rejects a non-empty replace list in which no item
	// could be materialized; committing it would silently clear the selection.
	ErrNothingResolved = errors.New("no replace item could be resolved")
)

// CandidateStore is the persistence seam for asset candidates.
type CandidateStore interface {
	Upsert(c *models.AssetCandidate) (bool, error)
	GetByID(id uuid.UUID) (*models.AssetCandidate, error)
	GetByHash(entityType models.EntityType, entityID uuid.UUID, assetType models.AssetType, hash string) (*models.AssetCandidate, error)
	ListByEntity(entityType models.EntityType, entityID uuid.UUID, assetType models.AssetType) ([]*models.AssetCandidate, error)
	ListSelected(entityType models.EntityType, entityID uuid.UUID, assetType models.AssetType) ([]*models.AssetCandidate, error)
	CountSelected(entityType models.EntityType, entityID uuid.UUID, assetType models.AssetType) (int, error)
	ReplaceSelection(entityType models.EntityType, entityID uuid.UUID, assetType models.AssetType, keep []uuid.UUID) error
	SetState(id uuid.UUID, version int, state models.SelectionState) (int, error)
	DeleteByEntityType(entityType models.EntityType, entityID uuid.UUID, assetType models.AssetType) (int64, error)
}

// EntryStore records cache entries for lookup by cache ID.
type EntryStore interface {
	Upsert(e *models.CacheEntry) error
	GetByHash(hash string) (*models.CacheEntry, error)
}

// LockStore answers whether an (entity, assetType) group is locked.
type LockStore interface {
	IsLocked(entityType models.EntityType, entityID uuid.UUID, assetType models.AssetType) (bool, error)
	SetLocked(entityType models.EntityType, entityID uuid.UUID, assetType models.AssetType, locked bool) error
}

// Limits resolves the configured per-type selection limit.
type Limits interface {
	AssetLimit(assetType models.AssetType, fallback int) int
}

// Notifier broadcasts asset events to connected clients.
type Notifier interface {
	Broadcast(event string, data interface{})
}

// Service runs the discovery and selection/replacement protocols on top of
// the content-addressed store and the candidate repository.
type Service struct {
	store      *cache.Store
	candidates CandidateStore
	entries    EntryStore
	locks      LockStore
	limits     Limits
	notifier   Notifier
	client     *http.Client
	workers    int

	// Per-(entityID, assetType) serialization of replace calls.
	keysMu sync.Mutex
	keys   map[string]*sync.Mutex
}

func NewService(store *cache.Store, candidates CandidateStore, entries EntryStore,
	locks LockStore, limits Limits, notifier Notifier, workers int) *Service {
	if workers < 1 {
		workers = 2
	}
	return &Service{
		store:      store,
		candidates: candidates,
		entries:    entries,
		locks:      locks,
		limits:     limits,
		notifier:   notifier,
		client:     &http.Client{Timeout: 30 * time.Second},
		workers:    workers,
		keys:       make(map[string]*sync.Mutex),
	}
}

func (s *Service) replaceLock(entityID uuid.UUID, assetType models.AssetType) *sync.Mutex {
	key := entityID.String() + ":" + string(assetType)
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	mu, ok := s.keys[key]
	if !ok {
		mu = &sync.Mutex{}
		s.keys[key] = mu
	}
	return mu
}

func (s *Service) broadcast(event string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(event, data)
	}
}

// ──────────────────── Discovery ────────────────────

// acceptedImage is a validated local image candidate awaiting caching.
type acceptedImage struct {
	raw    RawCandidate
	width  int
	height int
	format string
}

// Discover scans an entity's directory, validates and caches what it finds,
// and records candidates. Per-file problems are logged and skipped; only
// infrastructure failures (unreadable directory, database down) return an
// error. Rerunning over an unchanged directory is idempotent.
func (s *Service) Discover(ctx context.Context, entityType models.EntityType, entityID uuid.UUID,
	dir, primaryVideoFile string) (*models.DiscoveryResult, error) {

	out, err := ScanDirectory(dir, primaryVideoFile)
	if err != nil {
		return nil, err
	}

	result := &models.DiscoveryResult{Skipped: out.Skipped}
	s.broadcast("discovery:start", map[string]interface{}{
		"entity_type": entityType, "entity_id": entityID, "directory": dir,
	})

	// Validate image candidates against each matched spec before any I/O
	// heavier than a header read.
	accepted := make(map[models.AssetType][]acceptedImage)
	for assetType, raws := range out.Images {
		for _, raw := range raws {
			w, h, format, err := ProbeImage(raw.Path)
			if err != nil {
				log.Printf("Discovery: skipping %s: %v", raw.Path, err)
				result.Skipped = append(result.Skipped, models.SkippedFile{
					Path: raw.Path, AssetType: assetType, Reason: err.Error(),
				})
				continue
			}
			if v := Validate(w, h, raw.Spec); !v.Valid {
				result.Skipped = append(result.Skipped, models.SkippedFile{
					Path: raw.Path, AssetType: assetType, Reason: v.Reason,
				})
				continue
			}
			accepted[assetType] = append(accepted[assetType], acceptedImage{
				raw: raw, width: w, height: h, format: format,
			})
		}
	}

	created, err := s.cacheImages(ctx, entityType, entityID, accepted)
	if err != nil {
		return nil, err
	}
	result.Images = created

	result.Trailers, err = s.cacheSidecars(entityType, entityID, models.AssetTrailer, out.Trailers, nil)
	if err != nil {
		return nil, err
	}
	subtitlePaths := make([]string, len(out.Subtitles))
	languages := make([]string, len(out.Subtitles))
	for i, sub := range out.Subtitles {
		subtitlePaths[i] = sub.Path
		languages[i] = sub.Language
	}
	result.Subtitles, err = s.cacheSidecars(entityType, entityID, models.AssetSubtitle, subtitlePaths, languages)
	if err != nil {
		return nil, err
	}
	result.Themes, err = s.cacheSidecars(entityType, entityID, models.AssetTheme, out.Themes, nil)
	if err != nil {
		return nil, err
	}

	// Promote a best pick wherever the user has made no choice yet.
	for assetType := range accepted {
		if err := s.autoSelectIfEmpty(entityType, entityID, assetType); err != nil {
			return nil, err
		}
	}
	for _, assetType := range []models.AssetType{models.AssetTrailer, models.AssetSubtitle, models.AssetTheme} {
		if err := s.selectAllIfEmpty(entityType, entityID, assetType); err != nil {
			return nil, err
		}
	}

	s.broadcast("discovery:complete", map[string]interface{}{
		"entity_type": entityType, "entity_id": entityID,
		"images": result.Images, "trailers": result.Trailers, "subtitles": result.Subtitles,
	})
	return result, nil
}

// cacheImages hashes and stores accepted images with a bounded worker pool;
// hashing multiple files of one directory runs concurrently. Returns how
// many candidates were newly created.
func (s *Service) cacheImages(ctx context.Context, entityType models.EntityType, entityID uuid.UUID,
	accepted map[models.AssetType][]acceptedImage) (int, error) {

	var mu sync.Mutex
	createdCount := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for assetType, images := range accepted {
		for _, img := range images {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				entry, err := s.store.PutFile(models.KindForAssetType(assetType), img.raw.Path)
				if err != nil {
					// Cache write failure drops this candidate, not the scan.
					log.Printf("Discovery: cache write failed for %s: %v", img.raw.Path, err)
					return nil
				}
				if err := s.entries.Upsert(entry); err != nil {
					return err
				}

				var phash *string
				if ph, err := ComputePerceptualHash(img.raw.Path); err == nil {
					phash = &ph
				}

				path := img.raw.Path
				candidate := &models.AssetCandidate{
					EntityType:     entityType,
					EntityID:       entityID,
					AssetType:      assetType,
					FilePath:       &path,
					ContentHash:    &entry.Hash,
					Width:          img.width,
					Height:         img.height,
					Format:         img.format,
					Origin:         models.OriginLocal,
					State:          models.StateCandidate,
					LockOwner:      models.LockNone,
					PerceptualHash: phash,
				}
				candidate.Score = ScoreCandidate(candidate, img.raw.Spec)

				created, err := s.candidates.Upsert(candidate)
				if err != nil {
					return err
				}
				if created {
					mu.Lock()
					createdCount++
					mu.Unlock()
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return createdCount, nil
}

// cacheSidecars stores trailer/subtitle/theme files. languages, when given,
// is parallel to paths.
func (s *Service) cacheSidecars(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, paths []string, languages []string) (int, error) {

	created := 0
	for i, path := range paths {
		entry, err := s.store.PutFile(models.KindForAssetType(assetType), path)
		if err != nil {
			log.Printf("Discovery: cache write failed for %s: %v", path, err)
			continue
		}
		if err := s.entries.Upsert(entry); err != nil {
			return created, err
		}

		p := path
		candidate := &models.AssetCandidate{
			EntityType:  entityType,
			EntityID:    entityID,
			AssetType:   assetType,
			FilePath:    &p,
			ContentHash: &entry.Hash,
			Format:      entry.Format,
			Origin:      models.OriginLocal,
			State:       models.StateCandidate,
			LockOwner:   models.LockNone,
		}
		if languages != nil && languages[i] != "" {
			lang := languages[i]
			candidate.Language = &lang
		}

		isNew, err := s.candidates.Upsert(candidate)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

// ──────────────────── Automatic best-pick ────────────────────

// autoSelectIfEmpty promotes the best local candidate when no explicit
// choice exists yet for the entity+type.
func (s *Service) autoSelectIfEmpty(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) error {

	n, err := s.candidates.CountSelected(entityType, entityID, assetType)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	winner, err := s.BestPick(entityType, entityID, assetType)
	if err != nil || winner == nil {
		return err
	}
	return s.candidates.ReplaceSelection(entityType, entityID, assetType, []uuid.UUID{winner.ID})
}

// BestPick applies the automatic selection policy: a candidate with the
// exact Kodi-standard filename wins; otherwise the highest pixel count;
// ties broken alphabetically by filename. Blocked candidates never win.
func (s *Service) BestPick(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) (*models.AssetCandidate, error) {

	list, err := s.candidates.ListByEntity(entityType, entityID, assetType)
	if err != nil {
		return nil, err
	}

	spec := SpecFor(assetType)
	var eligible []*models.AssetCandidate
	for _, c := range list {
		if c.State != models.StateBlocked {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	if spec != nil {
		var exact []*models.AssetCandidate
		for _, c := range eligible {
			if spec.ExactName(c.FileName()) {
				exact = append(exact, c)
			}
		}
		if len(exact) > 0 {
			sort.SliceStable(exact, func(i, j int) bool {
				return exact[i].FileName() < exact[j].FileName()
			})
			return exact[0], nil
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].PixelCount() != eligible[j].PixelCount() {
			return eligible[i].PixelCount() > eligible[j].PixelCount()
		}
		return eligible[i].FileName() < eligible[j].FileName()
	})
	return eligible[0], nil
}

// selectAllIfEmpty selects every discovered sidecar candidate up to the
// type's limit when nothing is selected yet.
func (s *Service) selectAllIfEmpty(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) error {

	n, err := s.candidates.CountSelected(entityType, entityID, assetType)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	list, err := s.candidates.ListByEntity(entityType, entityID, assetType)
	if err != nil {
		return err
	}
	limit := s.limits.AssetLimit(assetType, defaultLimit(assetType))

	var keep []uuid.UUID
	for _, c := range list {
		if c.State == models.StateBlocked {
			continue
		}
		keep = append(keep, c.ID)
		if len(keep) >= limit {
			break
		}
	}
	if len(keep) == 0 {
		return nil
	}
	return s.candidates.ReplaceSelection(entityType, entityID, assetType, keep)
}

func defaultLimit(assetType models.AssetType) int {
	if n, ok := DefaultLimits()[assetType]; ok {
		return n
	}
	return 1
}

// ──────────────────── Candidate state actions ────────────────────

// Block excludes a candidate from selection until explicitly unblocked.
// Guarded by the candidate's version for concurrent UI tabs.
func (s *Service) Block(id uuid.UUID, version int) (int, error) {
	return s.setCandidateState(id, version, models.StateBlocked, "candidate:blocked")
}

// Unblock returns a blocked candidate to the ordinary candidate pool. It
// does not re-select it; that requires an explicit replace or best-pick.
func (s *Service) Unblock(id uuid.UUID, version int) (int, error) {
	return s.setCandidateState(id, version, models.StateCandidate, "candidate:unblocked")
}

func (s *Service) setCandidateState(id uuid.UUID, version int, state models.SelectionState,
	event string) (int, error) {

	c, err := s.candidates.GetByID(id)
	if err != nil {
		return 0, err
	}
	newVersion, err := s.candidates.SetState(id, version, state)
	if err != nil {
		return 0, err
	}
	s.broadcast(event, map[string]interface{}{
		"entity_type": c.EntityType, "entity_id": c.EntityID,
		"asset_type": c.AssetType, "candidate_id": id,
	})
	return newVersion, nil
}

// ResetSelection deletes all candidates of an entity+type. The underlying
// cache entries persist; other entities may reference the same content.
func (s *Service) ResetSelection(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) (int64, error) {

	locked, err := s.locks.IsLocked(entityType, entityID, assetType)
	if err != nil {
		return 0, err
	}
	if locked {
		return 0, ErrLocked
	}

	deleted, err := s.candidates.DeleteByEntityType(entityType, entityID, assetType)
	if err != nil {
		return 0, err
	}
	s.broadcast("assets:reset", map[string]interface{}{
		"entity_type": entityType, "entity_id": entityID, "asset_type": assetType,
	})
	return deleted, nil
}

// SetLock toggles the per-(entity, assetType) lock consulted by Replace.
func (s *Service) SetLock(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, locked bool) error {
	return s.locks.SetLocked(entityType, entityID, assetType, locked)
}

// IsLocked reports the lock state for an entity+type.
func (s *Service) IsLocked(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) (bool, error) {
	return s.locks.IsLocked(entityType, entityID, assetType)
}

// Candidates lists all candidates of an entity+type, best score first.
func (s *Service) Candidates(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) ([]*models.AssetCandidate, error) {
	return s.candidates.ListByEntity(entityType, entityID, assetType)
}

// Selected lists the active selection of an entity+type.
func (s *Service) Selected(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) ([]*models.AssetCandidate, error) {
	return s.candidates.ListSelected(entityType, entityID, assetType)
}

// Upload pushes user-supplied bytes through the cache store and records the
// entry; the returned hash is the upload ref for a later replace call.
func (s *Service) Upload(kind models.CacheKind, r io.Reader, ext string) (*models.CacheEntry, error) {
	entry, err := s.store.Put(kind, r, ext)
	if err != nil {
		return nil, fmt.Errorf("cache upload: %w", err)
	}
	if err := s.entries.Upsert(entry); err != nil {
		return nil, err
	}
	return entry, nil
}
