package repository

import (
	"database/sql"

	"github.com/tmuhq/tmusync/internal/models"
)

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Upsert creates a video row keyed on (owner, source); re-importing the same
// remote video is a no-op that returns the existing row id.
func (r *VideoRepository) Upsert(v *models.Video) error {
	query := `
		INSERT INTO tmu_videos (owner_kind, owner_id, source, content_type, thumbnail_path)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_kind, owner_id, source) DO UPDATE SET
			content_type = EXCLUDED.content_type,
			thumbnail_path = COALESCE(tmu_videos.thumbnail_path, EXCLUDED.thumbnail_path)
		RETURNING id, created_at`
	return r.db.QueryRow(query,
		v.OwnerKind.String(), v.OwnerID, v.Source, v.ContentType, v.ThumbnailPath,
	).Scan(&v.ID, &v.CreatedAt)
}

func (r *VideoRepository) ListByOwner(kind models.EntityKind, ownerID int64) ([]*models.Video, error) {
	rows, err := r.db.Query(`
		SELECT id, owner_kind, owner_id, source, content_type, thumbnail_path, created_at
		FROM tmu_videos WHERE owner_kind = $1 AND owner_id = $2 ORDER BY id`,
		kind.String(), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v := &models.Video{}
		var ownerKind string
		if err := rows.Scan(&v.ID, &ownerKind, &v.OwnerID, &v.Source,
			&v.ContentType, &v.ThumbnailPath, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.OwnerKind = models.EntityKind(ownerKind)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *VideoRepository) SetThumbnail(id int64, path string) error {
	_, err := r.db.Exec(`UPDATE tmu_videos SET thumbnail_path = $1 WHERE id = $2`, path, id)
	return err
}

func (r *VideoRepository) DeleteByOwner(kind models.EntityKind, ownerID int64) error {
	_, err := r.db.Exec(`DELETE FROM tmu_videos WHERE owner_kind = $1 AND owner_id = $2`,
		kind.String(), ownerID)
	return err
}
