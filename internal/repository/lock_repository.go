package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/curatorr/curatorr/internal/models"
)

// LockRepository persists the per-(entity, assetType) boolean that prevents
// automatic or bulk overwrite of the current selection.
type LockRepository struct {
	db *sql.DB
}

func NewLockRepository(db *sql.DB) *LockRepository {
	return &LockRepository{db: db}
}

// IsLocked returns false for unknown keys.
func (r *LockRepository) IsLocked(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType) (bool, error) {
	var locked bool
	err := r.db.QueryRow(`SELECT locked FROM asset_locks
		WHERE entity_type = $1 AND entity_id = $2 AND asset_type = $3`,
		entityType, entityID, assetType).Scan(&locked)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return locked, err
}

func (r *LockRepository) SetLocked(entityType models.EntityType, entityID uuid.UUID,
	assetType models.AssetType, locked bool) error {
	_, err := r.db.Exec(`INSERT INTO asset_locks (entity_type, entity_id, asset_type, locked, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (entity_type, entity_id, asset_type)
		DO UPDATE SET locked = $4, updated_at = CURRENT_TIMESTAMP`,
		entityType, entityID, assetType, locked)
	return err
}
