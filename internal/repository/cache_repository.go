package repository

import (
	"database/sql"
	"fmt"

	"github.com/curatorr/curatorr/internal/models"
)

// CacheEntryRepository records content-addressed entries so replace calls can
// resolve a cache ID without touching the filesystem.
type CacheEntryRepository struct {
	db *sql.DB
}

func NewCacheEntryRepository(db *sql.DB) *CacheEntryRepository {
	return &CacheEntryRepository{db: db}
}

// Upsert records an entry. Identical hashes are a no-op: the stored file for
// a hash never changes.
func (r *CacheEntryRepository) Upsert(e *models.CacheEntry) error {
	query := `INSERT INTO cache_entries (hash, kind, file_path, format, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash) DO NOTHING`
	_, err := r.db.Exec(query, e.Hash, e.Kind, e.FilePath, e.Format, e.SizeBytes)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (r *CacheEntryRepository) GetByHash(hash string) (*models.CacheEntry, error) {
	e := &models.CacheEntry{}
	err := r.db.QueryRow(`SELECT hash, kind, file_path, format, size_bytes, created_at
		FROM cache_entries WHERE hash = $1`, hash).
		Scan(&e.Hash, &e.Kind, &e.FilePath, &e.Format, &e.SizeBytes, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *CacheEntryRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&n)
	return n, err
}
