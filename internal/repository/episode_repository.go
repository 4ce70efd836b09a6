package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tmuhq/tmusync/internal/models"
)

// EpisodeRepository serves tmu_tv_series_episodes and tmu_dramas_episodes.
// Series episodes are keyed (series, season, episode); drama episodes are
// flattened to (drama, episode).
type EpisodeRepository struct {
	db *sql.DB
}

func NewEpisodeRepository(db *sql.DB) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

const episodeColumns = `id, parent_id, season_number, episode_number, title, air_date,
	air_timestamp, episode_type, runtime, overview, credits, vote_average,
	vote_count, still_path, created_at, updated_at`

func scanEpisode(kind models.EntityKind, row interface{ Scan(...interface{}) error }) (*models.Episode, error) {
	e := &models.Episode{ParentKind: kind}
	var credits []byte
	err := row.Scan(
		&e.ID, &e.ParentID, &e.SeasonNumber, &e.EpisodeNumber, &e.Title, &e.AirDate,
		&e.AirTimestamp, &e.EpisodeType, &e.Runtime, &e.Overview, &credits,
		&e.VoteAverage, &e.VoteCount, &e.StillPath, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(credits) > 0 {
		e.Credits = &models.EpisodeCredits{}
		if err := json.Unmarshal(credits, e.Credits); err != nil {
			e.Credits = nil
		}
	}
	return e, nil
}

// Find looks up an episode by its identity key. For dramas the season number
// is not part of the key and is ignored.
func (r *EpisodeRepository) Find(kind models.EntityKind, parentID int64, season, episode int) (*models.Episode, error) {
	var row *sql.Row
	if kind == models.KindDrama {
		query := fmt.Sprintf(`SELECT %s FROM %s WHERE parent_id = $1 AND episode_number = $2`,
			episodeColumns, kind.EpisodesTable())
		row = r.db.QueryRow(query, parentID, episode)
	} else {
		query := fmt.Sprintf(`SELECT %s FROM %s WHERE parent_id = $1 AND season_number = $2 AND episode_number = $3`,
			episodeColumns, kind.EpisodesTable())
		row = r.db.QueryRow(query, parentID, season, episode)
	}
	e, err := scanEpisode(kind, row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// Upsert writes an episode row atomically on its identity key.
func (r *EpisodeRepository) Upsert(e *models.Episode) error {
	credits, err := marshalEpisodeCredits(e.Credits)
	if err != nil {
		return err
	}
	conflict := "(parent_id, season_number, episode_number)"
	if e.ParentKind == models.KindDrama {
		conflict = "(parent_id, episode_number)"
	}
	table := e.ParentKind.EpisodesTable()
	query := fmt.Sprintf(`
		INSERT INTO %s (parent_id, season_number, episode_number, title, air_date,
		                air_timestamp, episode_type, runtime, overview, credits,
		                vote_average, vote_count, still_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT %s DO UPDATE SET
			title = EXCLUDED.title,
			air_date = COALESCE(EXCLUDED.air_date, %s.air_date),
			air_timestamp = COALESCE(EXCLUDED.air_timestamp, %s.air_timestamp),
			episode_type = COALESCE(EXCLUDED.episode_type, %s.episode_type),
			runtime = COALESCE(EXCLUDED.runtime, %s.runtime),
			overview = COALESCE(EXCLUDED.overview, %s.overview),
			credits = COALESCE(EXCLUDED.credits, %s.credits),
			vote_average = EXCLUDED.vote_average,
			vote_count = EXCLUDED.vote_count,
			still_path = COALESCE(%s.still_path, EXCLUDED.still_path),
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`,
		table, conflict, table, table, table, table, table, table, table)
	return r.db.QueryRow(query,
		e.ParentID, e.SeasonNumber, e.EpisodeNumber, e.Title, e.AirDate,
		e.AirTimestamp, e.EpisodeType, e.Runtime, e.Overview, credits,
		e.VoteAverage, e.VoteCount, e.StillPath,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// DeleteByTitleExcept purges stale rows sharing an exact generated title but
// a different identity — duplicate cleanup before recreating an episode.
func (r *EpisodeRepository) DeleteByTitleExcept(kind models.EntityKind, parentID int64, title string, season, episode int) (int64, error) {
	var res sql.Result
	var err error
	if kind == models.KindDrama {
		res, err = r.db.Exec(fmt.Sprintf(
			`DELETE FROM %s WHERE parent_id = $1 AND title = $2 AND episode_number <> $3`,
			kind.EpisodesTable()), parentID, title, episode)
	} else {
		res, err = r.db.Exec(fmt.Sprintf(
			`DELETE FROM %s WHERE parent_id = $1 AND title = $2
			 AND NOT (season_number = $3 AND episode_number = $4)`,
			kind.EpisodesTable()), parentID, title, season, episode)
	}
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *EpisodeRepository) ListBySeason(seriesID int64, season int) ([]*models.Episode, error) {
	query := fmt.Sprintf(`SELECT %s FROM tmu_tv_series_episodes
		WHERE parent_id = $1 AND season_number = $2 ORDER BY episode_number`, episodeColumns)
	return r.list(models.KindTVSeries, query, seriesID, season)
}

func (r *EpisodeRepository) ListByParent(kind models.EntityKind, parentID int64) ([]*models.Episode, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE parent_id = $1 ORDER BY season_number, episode_number`,
		episodeColumns, kind.EpisodesTable())
	return r.list(kind, query, parentID)
}

func (r *EpisodeRepository) list(kind models.EntityKind, query string, args ...interface{}) ([]*models.Episode, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []*models.Episode
	for rows.Next() {
		e, err := scanEpisode(kind, rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

func (r *EpisodeRepository) SetStillPath(kind models.EntityKind, id int64, path string) error {
	_, err := r.db.Exec(fmt.Sprintf(
		`UPDATE %s SET still_path = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		kind.EpisodesTable()), path, id)
	return err
}

func (r *EpisodeRepository) DeleteByParent(kind models.EntityKind, parentID int64) error {
	_, err := r.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE parent_id = $1`, kind.EpisodesTable()), parentID)
	return err
}

func marshalEpisodeCredits(c *models.EpisodeCredits) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}
