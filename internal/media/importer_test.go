package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 180))
	for x := 0; x < 320; x++ {
		for y := 0; y < 180; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.Greater(t, buf.Len(), minThumbnailBytes)
	return buf.Bytes()
}

func newTestImporter(t *testing.T) (*Importer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewImporter(t.TempDir(), repository.NewVideoRepository(db)), mock
}

func expectVideoUpsert(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tmu_videos")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
			AddRow(id, time.Now()))
}

func TestThumbnailFallbackLadder(t *testing.T) {
	var requested []string
	jpg := testJPEG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, filepath.Base(r.URL.Path))
		switch filepath.Base(r.URL.Path) {
		case "hqdefault.jpg":
			w.Write(jpg)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m, mock := newTestImporter(t)
	m.ThumbBase = srv.URL

	expectVideoUpsert(mock, 5)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tmu_videos SET thumbnail_path")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := m.ImportYouTubeVideo(context.Background(), models.KindMovie, 12, "dQw4w9WgXcQ", "Trailer")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"maxresdefault.jpg", "sddefault.jpg", "hqdefault.jpg"}, requested)
	_, statErr := os.Stat(filepath.Join(m.dataDir, "thumbs", "dQw4w9WgXcQ.webp"))
	assert.NoError(t, statErr)
}

func TestThumbnailUndersizedSkipsAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a stub body well under the 1KB floor
		w.Write([]byte("tiny"))
	}))
	defer srv.Close()

	m, mock := newTestImporter(t)
	m.ThumbBase = srv.URL

	expectVideoUpsert(mock, 6)
	// no thumbnail update expected

	err := m.ImportYouTubeVideo(context.Background(), models.KindTVSeries, 30, "abc123", "Teaser")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	_, statErr := os.Stat(filepath.Join(m.dataDir, "thumbs", "abc123.webp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAttachPosterIsIdempotent(t *testing.T) {
	hits := 0
	jpg := testJPEG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(jpg)
	}))
	defer srv.Close()

	m, _ := newTestImporter(t)
	m.ImageBase = srv.URL

	ctx := context.Background()
	require.NoError(t, m.AttachPoster(ctx, models.KindMovie, 12, "/poster.jpg"))
	require.NoError(t, m.AttachPoster(ctx, models.KindMovie, 12, "/poster.jpg"))
	assert.Equal(t, 1, hits, "second attach must not re-download")
}

func TestAttachGallerySkipsWhenPresent(t *testing.T) {
	hits := 0
	jpg := testJPEG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(jpg)
	}))
	defer srv.Close()

	m, _ := newTestImporter(t)
	m.ImageBase = srv.URL

	ctx := context.Background()
	paths := []string{"/a.jpg", "/b.jpg"}
	require.NoError(t, m.AttachGallery(ctx, models.KindMovie, 12, paths))
	assert.Equal(t, 2, hits)

	require.NoError(t, m.AttachGallery(ctx, models.KindMovie, 12, paths))
	assert.Equal(t, 2, hits, "existing gallery must not be topped up")
}

func TestAttachPosterEmptyPathIsNoop(t *testing.T) {
	m, _ := newTestImporter(t)
	require.NoError(t, m.AttachPoster(context.Background(), models.KindMovie, 12, ""))
}
