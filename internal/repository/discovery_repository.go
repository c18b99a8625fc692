package repository

import (
	"database/sql"
	"fmt"

	"github.com/curatorr/curatorr/internal/models"
)

// DiscoveryRepository tracks the last discovery trigger per entity so the
// scheduler can replay scans without the external orchestrator.
type DiscoveryRepository struct {
	db *sql.DB
}

func NewDiscoveryRepository(db *sql.DB) *DiscoveryRepository {
	return &DiscoveryRepository{db: db}
}

func (r *DiscoveryRepository) RecordRun(run *models.DiscoveryRun) error {
	query := `INSERT INTO discovery_runs (entity_type, entity_id, directory, video_file,
			images, trailers, subtitles, last_run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			directory = $3, video_file = $4,
			images = $5, trailers = $6, subtitles = $7,
			last_run_at = CURRENT_TIMESTAMP`
	_, err := r.db.Exec(query, run.EntityType, run.EntityID, run.Directory, run.VideoFile,
		run.Images, run.Trailers, run.Subtitles)
	if err != nil {
		return fmt.Errorf("record discovery run: %w", err)
	}
	return nil
}

func (r *DiscoveryRepository) ListAll() ([]*models.DiscoveryRun, error) {
	rows, err := r.db.Query(`SELECT entity_type, entity_id, directory, video_file,
			images, trailers, subtitles, last_run_at
		FROM discovery_runs ORDER BY last_run_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.DiscoveryRun
	for rows.Next() {
		run := &models.DiscoveryRun{}
		if err := rows.Scan(&run.EntityType, &run.EntityID, &run.Directory, &run.VideoFile,
			&run.Images, &run.Trailers, &run.Subtitles, &run.LastRunAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
