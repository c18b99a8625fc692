package models

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type EntityType string

const (
	EntityMovie      EntityType = "movie"
	EntityCollection EntityType = "collection"
)

// AssetType is a named artwork/media category with its own physical rules.
type AssetType string

const (
	AssetPoster    AssetType = "poster"
	AssetFanart    AssetType = "fanart"
	AssetBanner    AssetType = "banner"
	AssetClearlogo AssetType = "clearlogo"
	AssetClearart  AssetType = "clearart"
	AssetDiscart   AssetType = "discart"
	AssetKeyart    AssetType = "keyart"
	AssetLandscape AssetType = "landscape"
	AssetTrailer   AssetType = "trailer"
	AssetSubtitle  AssetType = "subtitle"
	AssetTheme     AssetType = "theme"
)

type AssetOrigin string

const (
	OriginLocal    AssetOrigin = "local"
	OriginProvider AssetOrigin = "provider"
)

type SelectionState string

const (
	StateCandidate SelectionState = "candidate"
	StateSelected  SelectionState = "selected"
	StateBlocked   SelectionState = "blocked"
)

type LockOwner string

const (
	LockNone LockOwner = "none"
	LockUser LockOwner = "user"
)

// CacheKind is the top-level subdirectory of the content-addressed store.
type CacheKind string

const (
	KindImages CacheKind = "images"
	KindVideo  CacheKind = "video"
	KindText   CacheKind = "text"
	KindAudio  CacheKind = "audio"
	KindActors CacheKind = "actors"
)

// KindForAssetType maps an asset type to its cache subdirectory.
func KindForAssetType(t AssetType) CacheKind {
	switch t {
	case AssetTrailer:
		return KindVideo
	case AssetSubtitle:
		return KindText
	case AssetTheme:
		return KindAudio
	default:
		return KindImages
	}
}

// ──────────────────── Cache Entry ────────────────────

// CacheEntry maps a content hash to the single stored file for that content.
// The hash doubles as the cache ID referenced by replace requests.
type CacheEntry struct {
	Hash      string    `json:"hash" db:"hash"`
	Kind      CacheKind `json:"kind" db:"kind"`
	FilePath  string    `json:"file_path" db:"file_path"`
	Format    string    `json:"format" db:"format"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Asset Candidate ────────────────────

// AssetCandidate is one physically distinct discovered or provider-fetched
// file instance, scoped to (entityType, entityID, assetType).
type AssetCandidate struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	EntityType     EntityType     `json:"entity_type" db:"entity_type"`
	EntityID       uuid.UUID      `json:"entity_id" db:"entity_id"`
	AssetType      AssetType      `json:"asset_type" db:"asset_type"`
	FilePath       *string        `json:"file_path,omitempty" db:"file_path"`
	SourceURL      *string        `json:"source_url,omitempty" db:"source_url"`
	Provider       *string        `json:"provider,omitempty" db:"provider"`
	ContentHash    *string        `json:"content_hash,omitempty" db:"content_hash"`
	Width          int            `json:"width" db:"width"`
	Height         int            `json:"height" db:"height"`
	Format         string         `json:"format" db:"format"`
	Language       *string        `json:"language,omitempty" db:"language"`
	Origin         AssetOrigin    `json:"origin" db:"origin"`
	Score          int            `json:"score" db:"score"`
	State          SelectionState `json:"state" db:"state"`
	LockOwner      LockOwner      `json:"lock_owner" db:"lock_owner"`
	PerceptualHash *string        `json:"perceptual_hash,omitempty" db:"perceptual_hash"`
	Version        int            `json:"version" db:"version"`
	DiscoveredAt   time.Time      `json:"discovered_at" db:"discovered_at"`
	SelectedAt     *time.Time     `json:"selected_at,omitempty" db:"selected_at"`
	BlockedAt      *time.Time     `json:"blocked_at,omitempty" db:"blocked_at"`
}

// FileName returns the base name of the local path, or "" for remote candidates.
func (c *AssetCandidate) FileName() string {
	if c.FilePath == nil {
		return ""
	}
	return filepath.Base(*c.FilePath)
}

// PixelCount is width*height; 0 when dimensions are unknown.
func (c *AssetCandidate) PixelCount() int {
	return c.Width * c.Height
}

// ──────────────────── Replace Protocol ────────────────────

// AssetRef is one entry of an ordered replace list. Exactly one of CacheID,
// URL, or UploadRef must be set. UploadRef is the cache ID returned by a
// prior upload call.
type AssetRef struct {
	CacheID        string `json:"cache_id,omitempty"`
	URL            string `json:"url,omitempty"`
	UploadRef      string `json:"upload_ref,omitempty"`
	Provider       string `json:"provider,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	PerceptualHash string `json:"perceptual_hash,omitempty"`
}

// ReplaceOutcome reports what happened to a single replace-list item.
type ReplaceOutcome struct {
	Ref         AssetRef   `json:"ref"`
	CandidateID *uuid.UUID `json:"candidate_id,omitempty"`
	CacheID     string     `json:"cache_id,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// ReplaceResult is the per-item outcome report of a replace call.
type ReplaceResult struct {
	Applied  []ReplaceOutcome `json:"applied"`
	Warnings []ReplaceOutcome `json:"warnings"`
	Errors   []ReplaceOutcome `json:"errors"`
}

// ──────────────────── Discovery ────────────────────

// SkippedFile records a per-file discovery problem. Skips are not errors.
type SkippedFile struct {
	Path      string    `json:"path"`
	AssetType AssetType `json:"asset_type,omitempty"`
	Reason    string    `json:"reason"`
}

// DiscoveryResult holds counts for the scan of one entity directory.
type DiscoveryResult struct {
	Images    int           `json:"images"`
	Trailers  int           `json:"trailers"`
	Subtitles int           `json:"subtitles"`
	Themes    int           `json:"themes"`
	Skipped   []SkippedFile `json:"skipped,omitempty"`
}

// DiscoveryRun is the persisted record of the last discovery trigger for an
// entity, replayed by the scheduler for periodic rescans.
type DiscoveryRun struct {
	EntityType EntityType `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id" db:"entity_id"`
	Directory  string     `json:"directory" db:"directory"`
	VideoFile  string     `json:"video_file" db:"video_file"`
	Images     int        `json:"images" db:"images"`
	Trailers   int        `json:"trailers" db:"trailers"`
	Subtitles  int        `json:"subtitles" db:"subtitles"`
	LastRunAt  time.Time  `json:"last_run_at" db:"last_run_at"`
}

// ──────────────────── User ────────────────────

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
