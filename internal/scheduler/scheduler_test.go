package scheduler

import (
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuhq/tmusync/internal/jobs"
	"github.com/tmuhq/tmusync/internal/repository"
)

type fakeEnqueuer struct {
	taskTypes []string
	uniqueIDs []string
	payloads  []interface{}
}

func (f *fakeEnqueuer) EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error) {
	f.taskTypes = append(f.taskTypes, taskType)
	f.uniqueIDs = append(f.uniqueIDs, uniqueID)
	f.payloads = append(f.payloads, payload)
	return uniqueID, nil
}

func TestRefreshQueuesStaleTitles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	queue := &fakeEnqueuer{}
	s := New(repository.NewTitleRepository(db), queue, "0 3 * * *")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id FROM tmu_movies")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tmdb_id"}).
			AddRow(int64(12), int64(550)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id FROM tmu_tv_series")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tmdb_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id FROM tmu_dramas")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tmdb_id"}).
			AddRow(int64(3), int64(94796)))

	s.refresh()
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, queue.uniqueIDs, 2)
	assert.Equal(t, []string{jobs.TaskTitleSync, jobs.TaskTitleSync}, queue.taskTypes)
	assert.Equal(t, []string{"refresh:movie:12", "refresh:drama:3"}, queue.uniqueIDs)

	payload, ok := queue.payloads[0].(jobs.TitleSyncPayload)
	require.True(t, ok)
	assert.Equal(t, int64(550), payload.TMDBID)
}

func TestStartRejectsBadCron(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(repository.NewTitleRepository(db), &fakeEnqueuer{}, "not a cron line")
	assert.Error(t, s.Start())
}

func TestStaleCutoffIsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(repository.NewTitleRepository(db), &fakeEnqueuer{}, "0 3 * * *")
	s.staleAfter = time.Hour

	for _, table := range []string{"tmu_movies", "tmu_tv_series", "tmu_dramas"} {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tmdb_id FROM "+table)).
			WithArgs(sqlmock.AnyArg(), 500).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tmdb_id"}))
	}

	s.refresh()
	require.NoError(t, mock.ExpectationsWereMet())
}
