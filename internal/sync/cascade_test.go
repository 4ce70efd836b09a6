package sync

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/tmdb"
)

func newTestCascader(t *testing.T, fetch Fetcher) (*Cascader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	people := repository.NewPersonRepository(db)
	credits := repository.NewCreditRepository(db)
	merger := NewCreditMerger(credits, NewResolver(people, fetch, noopMedia{}))
	c := NewCascader(repository.NewSeasonRepository(db), repository.NewEpisodeRepository(db),
		merger, fetch, noopMedia{}, 1)
	c.now = func() time.Time { return fixedNow }
	return c, mock
}

func pilotEpisode() tmdb.EpisodeDetails {
	return tmdb.EpisodeDetails{
		ID:            62085,
		SeasonNumber:  1,
		EpisodeNumber: 1,
		Name:          "Pilot",
		AirDate:       "2008-01-20",
		Runtime:       58,
		Overview:      "A high school chemistry teacher learns he has cancer.",
		VoteAverage:   8.2,
		VoteCount:     4100,
	}
}

func TestSyncSeasonsSkipsSpecials(t *testing.T) {
	fetch := &fakeFetcher{seasons: map[int]*tmdb.SeasonDetails{
		1: {SeasonNumber: 1, Episodes: []tmdb.EpisodeDetails{pilotEpisode()}},
	}}
	c, mock := newTestCascader(t, fetch)

	series := &models.Title{ID: 7, Kind: models.KindTVSeries, Title: "Breaking Bad"}
	remote := []tmdb.SeasonSummary{
		{ID: 3572, SeasonNumber: 0, Name: "Specials"},
		{ID: 3577, SeasonNumber: 1, Name: "Season 1", AirDate: "2008-01-20", EpisodeCount: 1},
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_tv_series_seasons")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(55), fixedNow, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, season_number, episode_number")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tmu_tv_series_episodes")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_tv_series_episodes")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(9), fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tmu_tv_series_seasons")).
		WithArgs(1, 8.2, int64(55)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, c.SyncSeasons(context.Background(), series, 1396, remote, 0))
	require.NoError(t, mock.ExpectationsWereMet())

	// season 0 was never even fetched
	assert.Equal(t, []int{1}, fetch.seasonFetches)
}

func TestSyncSeasonsOnlySeasonFilter(t *testing.T) {
	fetch := &fakeFetcher{seasons: map[int]*tmdb.SeasonDetails{
		2: {SeasonNumber: 2},
	}}
	c, mock := newTestCascader(t, fetch)

	series := &models.Title{ID: 7, Kind: models.KindTVSeries, Title: "Breaking Bad"}
	remote := []tmdb.SeasonSummary{
		{ID: 3577, SeasonNumber: 1, Name: "Season 1"},
		{ID: 3578, SeasonNumber: 2, Name: "Season 2"},
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_tv_series_seasons")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(56), fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tmu_tv_series_seasons")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, c.SyncSeasons(context.Background(), series, 1396, remote, 2))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []int{2}, fetch.seasonFetches)
}

func TestSyncEpisodesIdentityStable(t *testing.T) {
	c, mock := newTestCascader(t, &fakeFetcher{})

	series := &models.Title{ID: 7, Kind: models.KindTVSeries, Title: "Breaking Bad"}
	eps := []tmdb.EpisodeDetails{pilotEpisode()}

	// first pass: no row yet, purge stale same-title rows, insert fresh
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, season_number, episode_number")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tmu_tv_series_episodes")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_tv_series_episodes")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(9), fixedNow, fixedNow))

	count, avg, err := c.syncEpisodes(context.Background(), series, "Season 1", 1, eps)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NotNil(t, avg)
	assert.InDelta(t, 8.2, *avg, 0.001)

	// second pass with identical fixtures: same key found, no purge, the
	// upsert lands on the same row
	existing := sqlmock.NewRows([]string{
		"id", "parent_id", "season_number", "episode_number", "title", "air_date",
		"air_timestamp", "episode_type", "runtime", "overview", "credits",
		"vote_average", "vote_count", "still_path", "created_at", "updated_at",
	}).AddRow(int64(9), int64(7), 1, 1, "Breaking Bad Season 1 Episode 1", "2008-01-20",
		dateToUnix("2008-01-20"), nil, 58, "A high school chemistry teacher learns he has cancer.",
		nil, 8.2, 4100, nil, fixedNow, fixedNow)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, season_number, episode_number")).
		WillReturnRows(existing)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_tv_series_episodes")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(9), fixedNow, fixedNow))

	count, _, err = c.syncEpisodes(context.Background(), series, "Season 1", 1, eps)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncDramaEpisodesFlattened(t *testing.T) {
	fetch := &fakeFetcher{seasons: map[int]*tmdb.SeasonDetails{
		1: {SeasonNumber: 1, Episodes: []tmdb.EpisodeDetails{pilotEpisode()}},
	}}
	c, mock := newTestCascader(t, fetch)

	drama := &models.Title{ID: 3, Kind: models.KindDrama, Title: "Crash Landing on You"}

	// drama episode identity ignores the season dimension
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, season_number, episode_number")).
		WithArgs(int64(3), 1).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tmu_dramas_episodes")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_dramas_episodes")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(21), fixedNow, fixedNow))

	require.NoError(t, c.SyncDramaEpisodes(context.Background(), drama, 94796, 0))
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []int{1}, fetch.seasonFetches)
}

func TestEpisodeTitle(t *testing.T) {
	assert.Equal(t, "Breaking Bad Season 1 Episode 1", episodeTitle("Breaking Bad", "Season 1", 1))
	assert.Equal(t, "Crash Landing on You Episode 3", episodeTitle("Crash Landing on You", "", 3))
}
