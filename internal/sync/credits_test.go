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

func newTestMerger(t *testing.T, fetch Fetcher) (*CreditMerger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	people := repository.NewPersonRepository(db)
	credits := repository.NewCreditRepository(db)
	return NewCreditMerger(credits, NewResolver(people, fetch, noopMedia{})), mock
}

func personRow(id, tmdbID int64, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "tmdb_id", "name", "gender", "birthday", "deathday", "birthplace",
		"profession", "popularity", "social", "known_for", "profile_path",
		"created_at", "updated_at",
	}).AddRow(id, tmdbID, name, "Male", nil, nil, nil, nil, nil, nil, nil, nil, now, now)
}

func TestMergeCreditsAppendsNewRole(t *testing.T) {
	m, mock := newTestMerger(t, &fakeFetcher{})

	doc := &tmdb.Credits{Cast: []tmdb.CastMember{
		{ID: 819, Name: "Edward Norton", Character: "The Narrator", Order: 0},
	}}

	// person already known locally
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id, name")).
		WithArgs(int64(819)).
		WillReturnRows(personRow(41, 819, "Edward Norton"))
	// existing credit row carries a different label
	castRows := sqlmock.NewRows([]string{
		"id", "parent_id", "person_id", "role", "release_year", "episode_count", "sort_order",
	}).AddRow(int64(77), int64(12), int64(41), "Jack", 1999, nil, 0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, person_id, role")).
		WithArgs(int64(12), int64(41)).
		WillReturnRows(castRows)
	// the upsert writes the merged "new, old" label
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_movies_cast")).
		WithArgs(int64(12), int64(41), "The Narrator, Jack", 1999, nil, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	res, err := m.MergeCredits(context.Background(), models.KindMovie, 12, doc, 1999)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, res.Snapshot.Cast, 1)
	assert.Equal(t, int64(41), res.Snapshot.Cast[0].PersonID)
	require.Len(t, res.Stars, 1)
	assert.Equal(t, "Edward Norton", res.Stars[0].Name)
}

func TestMergeCreditsLeavesKnownRoleAlone(t *testing.T) {
	m, mock := newTestMerger(t, &fakeFetcher{})

	doc := &tmdb.Credits{Cast: []tmdb.CastMember{
		{ID: 819, Name: "Edward Norton", Character: "The Narrator", Order: 0},
	}}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id, name")).
		WithArgs(int64(819)).
		WillReturnRows(personRow(41, 819, "Edward Norton"))
	castRows := sqlmock.NewRows([]string{
		"id", "parent_id", "person_id", "role", "release_year", "episode_count", "sort_order",
	}).AddRow(int64(77), int64(12), int64(41), "The Narrator, Jack", 1999, nil, 0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, person_id, role")).
		WithArgs(int64(12), int64(41)).
		WillReturnRows(castRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_movies_cast")).
		WithArgs(int64(12), int64(41), "The Narrator, Jack", 1999, nil, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	_, err := m.MergeCredits(context.Background(), models.KindMovie, 12, doc, 1999)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeAggregateCreditsJoinsRoles(t *testing.T) {
	m, mock := newTestMerger(t, &fakeFetcher{})

	doc := &tmdb.AggregateCredits{}
	member := tmdb.AggregateCastMember{ID: 14405, Name: "David Schwimmer", Order: 1, TotalEpisodeCount: 236}
	member.Roles = []struct {
		Character    string `json:"character"`
		EpisodeCount int    `json:"episode_count"`
	}{
		{Character: "Ross Geller", EpisodeCount: 230},
		{Character: "Russ", EpisodeCount: 1},
	}
	doc.Cast = []tmdb.AggregateCastMember{member}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id, name")).
		WithArgs(int64(14405)).
		WillReturnRows(personRow(8, 14405, "David Schwimmer"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, parent_id, person_id, role")).
		WithArgs(int64(30), int64(8)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_tv_series_cast")).
		WithArgs(int64(30), int64(8), "Ross Geller | Russ", 1994, 236, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(90)))

	res, err := m.MergeAggregateCredits(context.Background(), models.KindTVSeries, 30, doc, 1994)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "Ross Geller | Russ", res.Snapshot.Cast[0].Job)
}

func TestReplaceCreditsIsFullResync(t *testing.T) {
	m, mock := newTestMerger(t, &fakeFetcher{})

	doc := &tmdb.Credits{
		Cast: []tmdb.CastMember{{ID: 819, Name: "Edward Norton", Character: "The Narrator", Order: 0}},
		Crew: []tmdb.CrewMember{{ID: 7467, Name: "David Fincher", Job: "Director", Department: "Directing"}},
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id, name")).
		WithArgs(int64(819)).
		WillReturnRows(personRow(41, 819, "Edward Norton"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id, name")).
		WithArgs(int64(7467)).
		WillReturnRows(personRow(42, 7467, "David Fincher"))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tmu_movies_cast")).
		WithArgs(int64(12)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tmu_movies_crew")).
		WithArgs(int64(12)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tmu_movies_cast")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tmu_movies_crew")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := m.ReplaceCredits(context.Background(), models.KindMovie, 12, doc, 1999)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Len(t, res.Snapshot.Cast, 1)
	assert.Len(t, res.Snapshot.Crew, 1)
}

func TestEpisodeCreditsEmpty(t *testing.T) {
	m, _ := newTestMerger(t, &fakeFetcher{})
	ep := pilotEpisode()
	assert.Nil(t, m.EpisodeCredits(context.Background(), &ep))
}
