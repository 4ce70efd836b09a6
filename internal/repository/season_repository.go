package repository

import (
	"database/sql"

	"github.com/tmuhq/tmusync/internal/models"
)

type SeasonRepository struct {
	db *sql.DB
}

func NewSeasonRepository(db *sql.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

const seasonColumns = `id, series_id, season_number, tmdb_id, name, air_date,
	episode_count, avg_rating, poster_path, published_at, created_at, updated_at`

func scanSeason(row interface{ Scan(...interface{}) error }) (*models.Season, error) {
	s := &models.Season{}
	err := row.Scan(
		&s.ID, &s.SeriesID, &s.SeasonNumber, &s.TMDBID, &s.Name, &s.AirDate,
		&s.EpisodeCount, &s.AvgRating, &s.PosterPath, &s.PublishedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SeasonRepository) Find(seriesID int64, seasonNumber int) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM tmu_tv_series_seasons
		WHERE series_id = $1 AND season_number = $2`
	s, err := scanSeason(r.db.QueryRow(query, seriesID, seasonNumber))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// Upsert writes a season row keyed on (series, season number) in one
// statement; the lazy find-or-create of the cascader goes through here.
func (r *SeasonRepository) Upsert(s *models.Season) error {
	query := `
		INSERT INTO tmu_tv_series_seasons
			(series_id, season_number, tmdb_id, name, air_date, episode_count,
			 avg_rating, poster_path, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (series_id, season_number) DO UPDATE SET
			tmdb_id = COALESCE(EXCLUDED.tmdb_id, tmu_tv_series_seasons.tmdb_id),
			name = EXCLUDED.name,
			air_date = COALESCE(EXCLUDED.air_date, tmu_tv_series_seasons.air_date),
			episode_count = EXCLUDED.episode_count,
			avg_rating = EXCLUDED.avg_rating,
			poster_path = COALESCE(tmu_tv_series_seasons.poster_path, EXCLUDED.poster_path),
			published_at = COALESCE(tmu_tv_series_seasons.published_at, EXCLUDED.published_at),
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(query,
		s.SeriesID, s.SeasonNumber, s.TMDBID, s.Name, s.AirDate, s.EpisodeCount,
		s.AvgRating, s.PosterPath, s.PublishedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// SetRollup writes the episode-count/average-rating rollup for a season.
func (r *SeasonRepository) SetRollup(id int64, episodeCount int, avgRating *float64) error {
	_, err := r.db.Exec(`
		UPDATE tmu_tv_series_seasons
		SET episode_count = $1, avg_rating = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`, episodeCount, avgRating, id)
	return err
}

func (r *SeasonRepository) SetPosterPath(id int64, path string) error {
	_, err := r.db.Exec(`
		UPDATE tmu_tv_series_seasons
		SET poster_path = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, path, id)
	return err
}

func (r *SeasonRepository) ListBySeries(seriesID int64) ([]*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM tmu_tv_series_seasons
		WHERE series_id = $1 ORDER BY season_number`
	rows, err := r.db.Query(query, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seasons []*models.Season
	for rows.Next() {
		s, err := scanSeason(rows)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

func (r *SeasonRepository) DeleteBySeries(seriesID int64) error {
	_, err := r.db.Exec(`DELETE FROM tmu_tv_series_seasons WHERE series_id = $1`, seriesID)
	return err
}
