package assets

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/curatorr/curatorr/internal/models"
)

// Replace atomically swaps the active selected set for an entity+type with
// an ordered list of asset references. Protocol-level problems (locked
// group, list longer than the type's limit, nothing resolvable) reject the
// whole call with no state change. Per-item problems become warnings or
// errors in the result; the remaining items are still committed.
func (s *Service) Replace(ctx context.Context, entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, refs []models.AssetRef) (*models.ReplaceResult, error) {

	locked, err := s.locks.IsLocked(entityType, entityID, assetType)
	if err != nil {
		return nil, fmt.Errorf("check lock: %w", err)
	}
	if locked {
		return nil, ErrLocked
	}

	limit := s.limits.AssetLimit(assetType, defaultLimit(assetType))
	if len(refs) > limit {
		return nil, fmt.Errorf("%w: %d refs, limit %d for %s", ErrLimitExceeded, len(refs), limit, assetType)
	}

	// Serialize concurrent replace calls for the same (entityID, assetType):
	// two interleaved clear-old/set-new sequences would corrupt the swap.
	mu := s.replaceLock(entityID, assetType)
	mu.Lock()
	defer mu.Unlock()

	result := &models.ReplaceResult{
		Applied:  []models.ReplaceOutcome{},
		Warnings: []models.ReplaceOutcome{},
		Errors:   []models.ReplaceOutcome{},
	}
	var keep []uuid.UUID

	for _, ref := range refs {
		candidate, outcome := s.materialize(ctx, entityType, entityID, assetType, ref)
		switch outcome.kind {
		case outcomeApplied:
			keep = append(keep, candidate.ID)
			result.Applied = append(result.Applied, models.ReplaceOutcome{
				Ref: ref, CandidateID: &candidate.ID, CacheID: deref(candidate.ContentHash),
			})
		case outcomeWarning:
			result.Warnings = append(result.Warnings, models.ReplaceOutcome{
				Ref: ref, Message: outcome.message,
			})
		case outcomeError:
			result.Errors = append(result.Errors, models.ReplaceOutcome{
				Ref: ref, Message: outcome.message,
			})
		}
	}

	if len(refs) > 0 && len(keep) == 0 {
		return result, ErrNothingResolved
	}

	if err := s.candidates.ReplaceSelection(entityType, entityID, assetType, keep); err != nil {
		return nil, fmt.Errorf("swap selection: %w", err)
	}

	s.broadcast("assets:replaced", map[string]interface{}{
		"entity_type": entityType, "entity_id": entityID, "asset_type": assetType,
		"selected": len(keep),
	})
	return result, nil
}

type outcomeKind int

const (
	outcomeApplied outcomeKind = iota
	outcomeWarning
	outcomeError
)

type materializeOutcome struct {
	kind    outcomeKind
	message string
}

func applied() materializeOutcome { return materializeOutcome{kind: outcomeApplied} }

func warning(msg string) materializeOutcome {
	return materializeOutcome{kind: outcomeWarning, message: msg}
}

func itemError(msg string) materializeOutcome {
	return materializeOutcome{kind: outcomeError, message: msg}
}

// materialize turns one asset reference into a candidate row, pushing new
// content through the cache store and the validator on the way.
func (s *Service) materialize(ctx context.Context, entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, ref models.AssetRef) (*models.AssetCandidate, materializeOutcome) {

	switch {
	case ref.CacheID != "":
		return s.materializeCached(entityType, entityID, assetType, ref, ref.CacheID)
	case ref.UploadRef != "":
		return s.materializeCached(entityType, entityID, assetType, ref, ref.UploadRef)
	case ref.URL != "":
		return s.materializeURL(ctx, entityType, entityID, assetType, ref)
	default:
		return nil, itemError("reference has no cache_id, url, or upload_ref")
	}
}

// materializeCached re-points the entity at an existing cache entry.
func (s *Service) materializeCached(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, ref models.AssetRef, hash string) (*models.AssetCandidate, materializeOutcome) {

	entry, err := s.entries.GetByHash(hash)
	if err != nil {
		return nil, itemError(fmt.Sprintf("resolve cache entry: %v", err))
	}
	if entry == nil {
		return nil, itemError(fmt.Sprintf("unknown cache entry %s", hash))
	}

	existing, err := s.candidates.GetByHash(entityType, entityID, assetType, hash)
	if err != nil {
		return nil, itemError(fmt.Sprintf("lookup candidate: %v", err))
	}
	if existing != nil {
		if existing.State == models.StateBlocked {
			return nil, warning("candidate is blocked; unblock it first")
		}
		return existing, applied()
	}

	width, height := ref.Width, ref.Height
	if models.KindForAssetType(assetType) == models.KindImages {
		w, h, _, err := ProbeImage(entry.FilePath)
		if err != nil {
			return nil, warning(fmt.Sprintf("unreadable cached image: %v", err))
		}
		width, height = w, h
		if spec := SpecFor(assetType); spec != nil {
			if v := Validate(width, height, spec); !v.Valid {
				return nil, warning(v.Reason)
			}
		}
	}

	candidate := s.newProviderCandidate(entityType, entityID, assetType, ref, entry, width, height)
	candidate.FilePath = &entry.FilePath
	if _, err := s.candidates.Upsert(candidate); err != nil {
		return nil, itemError(fmt.Sprintf("record candidate: %v", err))
	}
	return candidate, applied()
}

// materializeURL fetches a provider asset, caches it, validates it, and
// records a provider-origin candidate.
func (s *Service) materializeURL(ctx context.Context, entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, ref models.AssetRef) (*models.AssetCandidate, materializeOutcome) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, itemError(fmt.Sprintf("bad url: %v", err))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, itemError(fmt.Sprintf("fetch: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, itemError(fmt.Sprintf("fetch: provider returned %d", resp.StatusCode))
	}

	kind := models.KindForAssetType(assetType)
	entry, err := s.store.Put(kind, resp.Body, extFromURL(ref.URL))
	if err != nil {
		return nil, itemError(fmt.Sprintf("cache: %v", err))
	}
	if err := s.entries.Upsert(entry); err != nil {
		return nil, itemError(fmt.Sprintf("record cache entry: %v", err))
	}

	width, height := ref.Width, ref.Height
	if kind == models.KindImages {
		w, h, _, err := ProbeImage(entry.FilePath)
		if err != nil {
			return nil, warning(fmt.Sprintf("undecodable image: %v", err))
		}
		width, height = w, h
		if spec := SpecFor(assetType); spec != nil {
			if v := Validate(width, height, spec); !v.Valid {
				return nil, warning(v.Reason)
			}
		}
	}

	// Same-hash dedup: another entity or a previous fetch may already have
	// produced a candidate for this content.
	existing, err := s.candidates.GetByHash(entityType, entityID, assetType, entry.Hash)
	if err != nil {
		return nil, itemError(fmt.Sprintf("lookup candidate: %v", err))
	}
	if existing != nil {
		if existing.State == models.StateBlocked {
			return nil, warning("candidate is blocked; unblock it first")
		}
		return existing, applied()
	}

	candidate := s.newProviderCandidate(entityType, entityID, assetType, ref, entry, width, height)
	candidate.SourceURL = &ref.URL
	if candidate.PerceptualHash == nil && kind == models.KindImages {
		if ph, err := ComputePerceptualHash(entry.FilePath); err == nil {
			candidate.PerceptualHash = &ph
		}
	}
	if _, err := s.candidates.Upsert(candidate); err != nil {
		return nil, itemError(fmt.Sprintf("record candidate: %v", err))
	}
	return candidate, applied()
}

func (s *Service) newProviderCandidate(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, ref models.AssetRef, entry *models.CacheEntry,
	width, height int) *models.AssetCandidate {

	candidate := &models.AssetCandidate{
		EntityType:  entityType,
		EntityID:    entityID,
		AssetType:   assetType,
		ContentHash: &entry.Hash,
		Width:       width,
		Height:      height,
		Format:      entry.Format,
		Origin:      models.OriginProvider,
		State:       models.StateCandidate,
		LockOwner:   models.LockNone,
	}
	if ref.Provider != "" {
		candidate.Provider = &ref.Provider
	}
	if ref.PerceptualHash != "" {
		candidate.PerceptualHash = &ref.PerceptualHash
	}
	if spec := SpecFor(assetType); spec != nil {
		candidate.Score = ScoreCandidate(candidate, spec)
	}
	return candidate
}

func extFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	if strings.ContainsAny(ext, "?&") {
		return ""
	}
	return ext
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
