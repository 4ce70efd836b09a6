package sitemap

import (
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
)

func newTestBuilder(t *testing.T) (*Builder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBuilder(repository.NewTitleRepository(db), repository.NewSettingsRepository(db),
		"https://example.com/"), mock
}

func expectSetting(mock sqlmock.Sqlmock, key, value string) {
	q := mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM settings")).WithArgs(key)
	if value == "" {
		q.WillReturnRows(sqlmock.NewRows([]string{"value"}))
	} else {
		q.WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(value))
	}
}

func TestIndexPaginatesPerFamily(t *testing.T) {
	b, mock := newTestBuilder(t)

	// movies: 2.5 pages; tv disabled; dramas: none published
	expectSetting(mock, "sitemap_movie_enabled", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tmu_movies")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25000))
	expectSetting(mock, "sitemap_tv_enabled", "false")
	expectSetting(mock, "sitemap_drama_enabled", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tmu_dramas")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	out, err := b.Index()
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	s := string(out)
	assert.Contains(t, s, "https://example.com/sitemaps/sitemap-movie-1.xml")
	assert.Contains(t, s, "https://example.com/sitemaps/sitemap-movie-3.xml")
	assert.NotContains(t, s, "sitemap-movie-4.xml")
	assert.NotContains(t, s, "sitemap-tv")
	assert.NotContains(t, s, "sitemap-drama")
}

func TestPageRendersPublishedTitles(t *testing.T) {
	b, mock := newTestBuilder(t)

	expectSetting(mock, "sitemap_movie_enabled", "")
	updated := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, updated_at FROM tmu_movies")).
		WithArgs(PageSize, PageSize). // page 2 → offset of one full page
		WillReturnRows(sqlmock.NewRows([]string{"id", "updated_at"}).
			AddRow(int64(12), updated).
			AddRow(int64(13), updated))

	out, err := b.Page(models.KindMovie, 2)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	s := string(out)
	assert.Contains(t, s, "<loc>https://example.com/movie/12</loc>")
	assert.Contains(t, s, "<lastmod>2024-03-15</lastmod>")
}

func TestPageRejectsDisabledFamily(t *testing.T) {
	b, mock := newTestBuilder(t)
	expectSetting(mock, "sitemap_drama_enabled", "false")

	_, err := b.Page(models.KindDrama, 1)
	assert.Error(t, err)
}

func TestRobotsDisallowsDisabledFamilies(t *testing.T) {
	b, mock := newTestBuilder(t)

	expectSetting(mock, "sitemap_movie_enabled", "")
	expectSetting(mock, "sitemap_tv_enabled", "false")
	expectSetting(mock, "sitemap_drama_enabled", "")

	s := string(b.Robots())
	assert.Contains(t, s, "Disallow: /tv/")
	assert.NotContains(t, s, "Disallow: /movie/")
	assert.Contains(t, s, "Sitemap: https://example.com/sitemap.xml")
}

func TestParsePageFile(t *testing.T) {
	kind, page, err := ParsePageFile("sitemap-movie-3.xml")
	require.NoError(t, err)
	assert.Equal(t, models.KindMovie, kind)
	assert.Equal(t, 3, page)

	_, _, err = ParsePageFile("sitemap-movie.xml")
	assert.Error(t, err)
	_, _, err = ParsePageFile("sitemap-widget-1.xml")
	assert.Error(t, err)
}
