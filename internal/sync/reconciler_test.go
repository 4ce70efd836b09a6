package sync

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/tmdb"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, fetch Fetcher) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewService(db, fetch, noopMedia{}, 1)
	s.now = func() time.Time { return fixedNow }
	s.cascader.now = s.now
	return s, mock
}

func fightClubDetails() *tmdb.MovieDetails {
	d := &tmdb.MovieDetails{
		ID:            550,
		Title:         "Fight Club",
		OriginalTitle: "Fight Club",
		Tagline:       "Mischief. Mayhem. Soap.",
		ReleaseDate:   "1999-10-15",
		Runtime:       139,
		Popularity:    61.4,
		VoteAverage:   8.4,
		VoteCount:     26280,
		Revenue:       100853753,
		Budget:        63000000,
		ProductionCompanies: []tmdb.ProductionCompany{
			{ID: 508, Name: "Regency Enterprises"},
		},
	}
	d.ReleaseDates.Results = []tmdb.ReleaseDateCountry{{
		ISO31661: "US",
		ReleaseDates: []tmdb.ReleaseDateEntry{{
			Certification: "R",
			ReleaseDate:   "1999-10-15T00:00:00.000Z",
			Type:          tmdb.ReleaseTypeTheatrical,
		}},
	}}
	return d
}

func TestSyncMovieCreatesRow(t *testing.T) {
	s, mock := newTestService(t, &fakeFetcher{movie: fightClubDetails()})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM tmu_movies WHERE tmdb_id")).
		WithArgs(int64(550)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_movies")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(12), fixedNow, fixedNow))

	title, err := s.Sync(context.Background(), &SyncRequest{Kind: models.KindMovie, TMDBID: 550})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(12), title.ID)
	assert.Equal(t, "Fight Club", title.Title)
	require.NotNil(t, title.OriginalTitle)
	assert.Equal(t, "Fight Club", *title.OriginalTitle)
	require.NotNil(t, title.ReleaseTimestamp)
	assert.Equal(t, dateToUnix("1999-10-15"), *title.ReleaseTimestamp)
	require.NotNil(t, title.Certification)
	assert.Equal(t, "R", *title.Certification)
	require.NotNil(t, title.PublishedAt)
	assert.True(t, title.PublishedAt.Before(fixedNow))
}

func TestSyncMovieProviderIDConflict(t *testing.T) {
	s, mock := newTestService(t, &fakeFetcher{movie: fightClubDetails()})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM tmu_movies WHERE tmdb_id")).
		WithArgs(int64(603)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := s.Sync(context.Background(), &SyncRequest{Kind: models.KindMovie, TMDBID: 603})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIDConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(1), conflict.ExistingID)
	assert.Equal(t, int64(603), conflict.TMDBID)

	// no write of any kind happened
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovieDetailsFetchAborts(t *testing.T) {
	s, mock := newTestService(t, &fakeFetcher{})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM tmu_movies WHERE tmdb_id")).
		WithArgs(int64(550)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Sync(context.Background(), &SyncRequest{Kind: models.KindMovie, TMDBID: 550})
	assert.ErrorIs(t, err, ErrDetailsUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileMovieFieldsNeverClobbers(t *testing.T) {
	s := &Service{now: func() time.Time { return fixedNow }}

	storedTagline := "Hand-written tagline"
	title := &models.Title{
		Kind:    models.KindMovie,
		Title:   "Custom Display Title",
		Tagline: &storedTagline,
	}
	req := &SyncRequest{Kind: models.KindMovie, TMDBID: 550, Certification: "PG-13"}

	dirty := s.reconcileMovieFields(req, title, fightClubDetails())
	assert.True(t, dirty)

	// stored values survive the remote fetch
	assert.Equal(t, "Custom Display Title", title.Title)
	assert.Equal(t, "Hand-written tagline", *title.Tagline)
	// the submitted value beats the remote one
	assert.Equal(t, "PG-13", *title.Certification)
	// empty fields fill from remote
	assert.Equal(t, 139, *title.Runtime)
	assert.Equal(t, int64(63000000), *title.Budget)
	assert.Equal(t, "Regency Enterprises", *title.ProductionHouse)
}

func TestReconcileMovieFieldsCleanSecondPass(t *testing.T) {
	s := &Service{now: func() time.Time { return fixedNow }}

	title := &models.Title{Kind: models.KindMovie}
	req := &SyncRequest{Kind: models.KindMovie, TMDBID: 550}
	require.True(t, s.reconcileMovieFields(req, title, fightClubDetails()))

	// identical remote data marks nothing dirty the second time
	assert.False(t, s.reconcileMovieFields(req, title, fightClubDetails()))
}

func TestFinishedLatchNeverFlipsBack(t *testing.T) {
	s := &Service{now: func() time.Time { return fixedNow }}

	title := &models.Title{Kind: models.KindTVSeries, Title: "Dark"}
	req := &SyncRequest{Kind: models.KindTVSeries, TMDBID: 70523}

	ended := &tmdb.TVDetails{Name: "Dark", Status: "Ended", FirstAirDate: "2017-12-01"}
	s.reconcileSeriesFields(req, title, ended, nil)
	assert.True(t, title.Finished)

	// a later "Returning Series" status must not unlatch it
	returning := &tmdb.TVDetails{Name: "Dark", Status: "Returning Series", FirstAirDate: "2017-12-01"}
	s.reconcileSeriesFields(req, title, returning, nil)
	assert.True(t, title.Finished)
}

func TestApplySubmittedCreditsSkipsUnchanged(t *testing.T) {
	s := &Service{}
	req := &SyncRequest{
		Kind:       models.KindMovie,
		CustomCast: []SubmittedCredit{{PersonID: 3, Name: "Guest Star", Role: "Cameo"}},
	}
	title := &models.Title{ID: 5, Kind: models.KindMovie, PendingCredits: submittedSnapshot(req)}

	changed, err := s.applySubmittedCredits(context.Background(), req, title)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSyncUnknownKind(t *testing.T) {
	s := &Service{}
	_, err := s.Sync(context.Background(), &SyncRequest{Kind: models.KindPerson, TMDBID: 1})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrIDConflict))
}
