package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/curatorr/curatorr/internal/models"
)

type CandidateRepository struct {
	db *sql.DB
}

func NewCandidateRepository(db *sql.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// candidateColumns is the standard SELECT list for asset_candidates
const candidateColumns = `id, entity_type, entity_id, asset_type, file_path, source_url,
	provider, content_hash, width, height, format, language, origin, score, state, lock_owner,
	perceptual_hash, version, discovered_at, selected_at, blocked_at`

func scanCandidate(row interface{ Scan(dest ...interface{}) error }) (*models.AssetCandidate, error) {
	c := &models.AssetCandidate{}
	err := row.Scan(
		&c.ID, &c.EntityType, &c.EntityID, &c.AssetType, &c.FilePath, &c.SourceURL,
		&c.Provider, &c.ContentHash, &c.Width, &c.Height, &c.Format, &c.Language, &c.Origin,
		&c.Score, &c.State, &c.LockOwner,
		&c.PerceptualHash, &c.Version, &c.DiscoveredAt, &c.SelectedAt, &c.BlockedAt,
	)
	return c, err
}

// Upsert inserts a candidate or, when the same file path / source URL is
// already known for the entity+type, refreshes its physical metadata in
// place. Rescans over an unchanged directory therefore never duplicate rows.
// Returns true when a new row was created.
func (r *CandidateRepository) Upsert(c *models.AssetCandidate) (bool, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	var conflictTarget string
	switch {
	case c.FilePath != nil:
		conflictTarget = `(entity_type, entity_id, asset_type, file_path) WHERE file_path IS NOT NULL`
	case c.SourceURL != nil:
		conflictTarget = `(entity_type, entity_id, asset_type, source_url) WHERE source_url IS NOT NULL`
	default:
		return false, fmt.Errorf("candidate needs a file path or source URL")
	}

	query := `
		INSERT INTO asset_candidates (
			id, entity_type, entity_id, asset_type, file_path, source_url, provider,
			content_hash, width, height, format, language, origin, score, state, lock_owner,
			perceptual_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT ` + conflictTarget + ` DO UPDATE SET
			content_hash = EXCLUDED.content_hash,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			format = EXCLUDED.format,
			score = EXCLUDED.score,
			perceptual_hash = COALESCE(EXCLUDED.perceptual_hash, asset_candidates.perceptual_hash)
		RETURNING id, state, version, discovered_at, (xmax = 0) AS inserted`

	var inserted bool
	err := r.db.QueryRow(query,
		c.ID, c.EntityType, c.EntityID, c.AssetType, c.FilePath, c.SourceURL, c.Provider,
		c.ContentHash, c.Width, c.Height, c.Format, c.Language, c.Origin, c.Score, c.State, c.LockOwner,
		c.PerceptualHash,
	).Scan(&c.ID, &c.State, &c.Version, &c.DiscoveredAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert candidate: %w", err)
	}
	return inserted, nil
}

func (r *CandidateRepository) GetByID(id uuid.UUID) (*models.AssetCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM asset_candidates WHERE id = $1`
	c, err := scanCandidate(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("candidate not found")
	}
	return c, err
}

// GetByHash returns any candidate of the entity+type already pointing at the
// given content hash, or nil.
func (r *CandidateRepository) GetByHash(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, hash string) (*models.AssetCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM asset_candidates
		WHERE entity_type = $1 AND entity_id = $2 AND asset_type = $3 AND content_hash = $4
		ORDER BY discovered_at LIMIT 1`
	c, err := scanCandidate(r.db.QueryRow(query, entityType, entityID, assetType, hash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListByEntity returns candidates of one entity+type, best score first;
// ties by discovery time then file name for a stable order.
func (r *CandidateRepository) ListByEntity(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) ([]*models.AssetCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM asset_candidates
		WHERE entity_type = $1 AND entity_id = $2 AND asset_type = $3
		ORDER BY score DESC, discovered_at, file_path NULLS LAST`
	return r.list(query, entityType, entityID, assetType)
}

// ListSelected returns the active selection for one entity+type, selection
// time order.
func (r *CandidateRepository) ListSelected(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) ([]*models.AssetCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM asset_candidates
		WHERE entity_type = $1 AND entity_id = $2 AND asset_type = $3 AND state = 'selected'
		ORDER BY selected_at, discovered_at`
	return r.list(query, entityType, entityID, assetType)
}

func (r *CandidateRepository) CountSelected(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM asset_candidates
		WHERE entity_type = $1 AND entity_id = $2 AND asset_type = $3 AND state = 'selected'`,
		entityType, entityID, assetType).Scan(&n)
	return n, err
}

// ReplaceSelection atomically swaps the active selected set for an
// entity+type. Old selections not in keep drop back to candidate; rows in
// keep become selected unless blocked. Runs in one transaction so concurrent
// readers never observe a half-swapped state.
func (r *CandidateRepository) ReplaceSelection(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, keep []uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE asset_candidates
		SET state = 'candidate', selected_at = NULL, version = version + 1
		WHERE entity_type = $1 AND entity_id = $2 AND asset_type = $3
		  AND state = 'selected' AND NOT (id = ANY($4))`,
		entityType, entityID, assetType, pq.Array(keep))
	if err != nil {
		return fmt.Errorf("clear old selection: %w", err)
	}

	res, err := tx.Exec(`UPDATE asset_candidates
		SET state = 'selected', selected_at = CURRENT_TIMESTAMP, version = version + 1
		WHERE id = ANY($1) AND state <> 'blocked'`,
		pq.Array(keep))
	if err != nil {
		return fmt.Errorf("set new selection: %w", err)
	}
	if n, _ := res.RowsAffected(); int(n) < len(keep) {
		return fmt.Errorf("selection includes blocked or missing candidates")
	}

	return tx.Commit()
}

// SetState performs a compare-and-swap state transition guarded by the row
// version, for select/block/reset actions arriving from concurrent UI tabs.
// Returns the new version or ErrVersionConflict.
func (r *CandidateRepository) SetState(id uuid.UUID, version int, state models.SelectionState) (int, error) {
	var stamp string
	switch state {
	case models.StateSelected:
		stamp = `selected_at = CURRENT_TIMESTAMP,`
	case models.StateBlocked:
		stamp = `blocked_at = CURRENT_TIMESTAMP, selected_at = NULL,`
	default:
		stamp = `selected_at = NULL,`
	}

	query := `UPDATE asset_candidates SET state = $3, ` + stamp + ` version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`
	var newVersion int
	err := r.db.QueryRow(query, id, version, state).Scan(&newVersion)
	if err == sql.ErrNoRows {
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, fmt.Errorf("set state: %w", err)
	}
	return newVersion, nil
}

// DeleteByEntityType removes all candidates of one entity+type (the
// reset-selection operation). Cache entries persist; they may be referenced
// by other entities and are garbage-collected separately.
func (r *CandidateRepository) DeleteByEntityType(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM asset_candidates
		WHERE entity_type = $1 AND entity_id = $2 AND asset_type = $3`,
		entityType, entityID, assetType)
	if err != nil {
		return 0, fmt.Errorf("delete candidates: %w", err)
	}
	return res.RowsAffected()
}

func (r *CandidateRepository) list(query string, args ...interface{}) ([]*models.AssetCandidate, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AssetCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
