package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tmuhq/tmusync/internal/models"
)

// TitleRepository serves the three title families (tmu_movies, tmu_tv_series,
// tmu_dramas). Table names come from the closed EntityKind map, never from
// caller strings.
type TitleRepository struct {
	db *sql.DB
}

func NewTitleRepository(db *sql.DB) *TitleRepository {
	return &TitleRepository{db: db}
}

const titleColumns = `id, tmdb_id, title, original_title, release_date, release_timestamp,
	runtime, tagline, certification, popularity, vote_average, vote_count,
	revenue, budget, production_house, star_cast, credits, pending_credits,
	finished, last_season, last_episode, published_at, created_at, updated_at`

func scanTitle(kind models.EntityKind, row interface{ Scan(...interface{}) error }) (*models.Title, error) {
	t := &models.Title{Kind: kind}
	var starCast, credits, pending []byte
	err := row.Scan(
		&t.ID, &t.TMDBID, &t.Title, &t.OriginalTitle, &t.ReleaseDate, &t.ReleaseTimestamp,
		&t.Runtime, &t.Tagline, &t.Certification, &t.Popularity, &t.VoteAverage, &t.VoteCount,
		&t.Revenue, &t.Budget, &t.ProductionHouse, &starCast, &credits, &pending,
		&t.Finished, &t.LastSeason, &t.LastEpisode, &t.PublishedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(starCast) > 0 {
		t.StarCast = &models.StarCastSnapshot{}
		if err := json.Unmarshal(starCast, t.StarCast); err != nil {
			t.StarCast = nil
		}
	}
	if len(credits) > 0 {
		t.Credits = &models.CreditsSnapshot{}
		if err := json.Unmarshal(credits, t.Credits); err != nil {
			t.Credits = nil
		}
	}
	if len(pending) > 0 {
		t.PendingCredits = &models.CreditsSnapshot{}
		if err := json.Unmarshal(pending, t.PendingCredits); err != nil {
			t.PendingCredits = nil
		}
	}
	return t, nil
}

func marshalOrNil(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case *models.StarCastSnapshot:
		if x == nil {
			return nil, nil
		}
	case *models.CreditsSnapshot:
		if x == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func (r *TitleRepository) GetByID(kind models.EntityKind, id int64) (*models.Title, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, titleColumns, kind.Table())
	t, err := scanTitle(kind, r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TitleRepository) GetByTMDBID(kind models.EntityKind, tmdbID int64) (*models.Title, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE tmdb_id = $1`, titleColumns, kind.Table())
	t, err := scanTitle(kind, r.db.QueryRow(query, tmdbID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// TMDBIDOwner returns the id of the row currently holding tmdb_id, or 0.
// Used by the reconciler to surface provider-id conflicts before writing.
func (r *TitleRepository) TMDBIDOwner(kind models.EntityKind, tmdbID int64) (int64, error) {
	var id int64
	query := fmt.Sprintf(`SELECT id FROM %s WHERE tmdb_id = $1`, kind.Table())
	err := r.db.QueryRow(query, tmdbID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

func (r *TitleRepository) Create(t *models.Title) error {
	starCast, err := marshalOrNil(t.StarCast)
	if err != nil {
		return err
	}
	credits, err := marshalOrNil(t.Credits)
	if err != nil {
		return err
	}
	pending, err := marshalOrNil(t.PendingCredits)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (tmdb_id, title, original_title, release_date, release_timestamp,
		                runtime, tagline, certification, popularity, vote_average, vote_count,
		                revenue, budget, production_house, star_cast, credits, pending_credits,
		                finished, last_season, last_episode, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at, updated_at`, kindTableChecked(t.Kind))
	return r.db.QueryRow(query,
		t.TMDBID, t.Title, t.OriginalTitle, t.ReleaseDate, t.ReleaseTimestamp,
		t.Runtime, t.Tagline, t.Certification, t.Popularity, t.VoteAverage, t.VoteCount,
		t.Revenue, t.Budget, t.ProductionHouse, starCast, credits, pending,
		t.Finished, t.LastSeason, t.LastEpisode, t.PublishedAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TitleRepository) Update(t *models.Title) error {
	starCast, err := marshalOrNil(t.StarCast)
	if err != nil {
		return err
	}
	credits, err := marshalOrNil(t.Credits)
	if err != nil {
		return err
	}
	pending, err := marshalOrNil(t.PendingCredits)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET tmdb_id = $1, title = $2, original_title = $3, release_date = $4,
			release_timestamp = $5, runtime = $6, tagline = $7, certification = $8,
			popularity = $9, vote_average = $10, vote_count = $11, revenue = $12, budget = $13,
			production_house = $14, star_cast = $15, credits = $16, pending_credits = $17,
			finished = $18, last_season = $19, last_episode = $20, published_at = $21,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $22`, kindTableChecked(t.Kind))
	res, err := r.db.Exec(query,
		t.TMDBID, t.Title, t.OriginalTitle, t.ReleaseDate, t.ReleaseTimestamp,
		t.Runtime, t.Tagline, t.Certification, t.Popularity, t.VoteAverage, t.VoteCount,
		t.Revenue, t.Budget, t.ProductionHouse, starCast, credits, pending,
		t.Finished, t.LastSeason, t.LastEpisode, t.PublishedAt, t.ID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %d not found", t.Kind, t.ID)
	}
	return nil
}

func (r *TitleRepository) Delete(kind models.EntityKind, id int64) error {
	res, err := r.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, kind.Table()), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %d not found", kind, id)
	}
	return nil
}

// SetStarCast writes only the star-cast snapshot column.
func (r *TitleRepository) SetStarCast(kind models.EntityKind, id int64, snap *models.StarCastSnapshot) error {
	data, err := marshalOrNil(snap)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(fmt.Sprintf(
		`UPDATE %s SET star_cast = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, kind.Table()),
		data, id)
	return err
}

// SetLastPointers updates the finished flag and last-season/last-episode
// pointers rolled up by the cascader.
func (r *TitleRepository) SetLastPointers(kind models.EntityKind, id int64, finished bool, lastSeason, lastEpisode *int) error {
	_, err := r.db.Exec(fmt.Sprintf(
		`UPDATE %s SET finished = $1, last_season = $2, last_episode = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $4`,
		kind.Table()),
		finished, lastSeason, lastEpisode, id)
	return err
}

// ListPublished returns (id, updated_at) pages for the sitemap view.
func (r *TitleRepository) ListPublished(kind models.EntityKind, limit, offset int) ([]SitemapEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, updated_at FROM %s
		WHERE published_at IS NOT NULL AND published_at <= CURRENT_TIMESTAMP
		ORDER BY id LIMIT $1 OFFSET $2`, kind.Table())
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []SitemapEntry
	for rows.Next() {
		var e SitemapEntry
		if err := rows.Scan(&e.ID, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *TitleRepository) CountPublished(kind models.EntityKind) (int, error) {
	var n int
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE published_at IS NOT NULL AND published_at <= CURRENT_TIMESTAMP`, kind.Table())
	err := r.db.QueryRow(query).Scan(&n)
	return n, err
}

type SitemapEntry struct {
	ID        int64
	UpdatedAt time.Time
}

// SyncTarget pairs a row id with its provider id for queue fan-out.
type SyncTarget struct {
	ID     int64
	TMDBID int64
}

// ListSyncTargets returns every row holding a provider id, oldest first.
func (r *TitleRepository) ListSyncTargets(kind models.EntityKind) ([]SyncTarget, error) {
	query := fmt.Sprintf(`
		SELECT id, tmdb_id FROM %s
		WHERE tmdb_id IS NOT NULL
		ORDER BY updated_at ASC`, kind.Table())
	return r.scanTargets(r.db.Query(query))
}

// ListStale returns rows holding a provider id that have not been touched
// since before, oldest first. The nightly refresh drains these in batches.
func (r *TitleRepository) ListStale(kind models.EntityKind, before time.Time, limit int) ([]SyncTarget, error) {
	query := fmt.Sprintf(`
		SELECT id, tmdb_id FROM %s
		WHERE tmdb_id IS NOT NULL AND updated_at < $1
		ORDER BY updated_at ASC LIMIT $2`, kind.Table())
	return r.scanTargets(r.db.Query(query, before, limit))
}

func (r *TitleRepository) scanTargets(rows *sql.Rows, err error) ([]SyncTarget, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []SyncTarget
	for rows.Next() {
		var t SyncTarget
		if err := rows.Scan(&t.ID, &t.TMDBID); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

func kindTableChecked(kind models.EntityKind) string {
	if !kind.IsTitle() {
		panic(fmt.Sprintf("repository: %q is not a title kind", kind))
	}
	return kind.Table()
}
