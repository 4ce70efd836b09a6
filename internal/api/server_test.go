package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuhq/tmusync/internal/auth"
	"github.com/tmuhq/tmusync/internal/config"
	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/sync"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		JWTSecret:   "test-secret",
		SiteBaseURL: "https://example.com",
		DataDir:     t.TempDir(),
	}
	svc := sync.NewService(db, nil, nil, 1)
	s, err := NewServer(cfg, db, svc, nil)
	require.NoError(t, err)
	return s, mock
}

func tokenFor(t *testing.T, s *Server, role models.UserRole) string {
	t.Helper()
	token, err := s.auth.GenerateToken(&models.User{ID: 1, Username: "tester", Role: role})
	require.NoError(t, err)
	return token
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/titles/movie/12", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsEditorOnAdminRoute(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, s, models.RoleEditor))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginIssuesToken(t *testing.T) {
	s, mock := newTestServer(t)

	hash, err := auth.HashPassword("correct-Horse1")
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, role, created_at")).
		WithArgs("editor1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "created_at"}).
			AddRow(int64(3), "editor1", hash, "editor", time.Now()))

	body := `{"username":"editor1","password":"correct-Horse1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginBadPasswordRejected(t *testing.T) {
	s, mock := newTestServer(t)

	hash, err := auth.HashPassword("correct-Horse1")
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, role, created_at")).
		WithArgs("editor1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "created_at"}).
			AddRow(int64(3), "editor1", hash, "editor", time.Now()))

	body := `{"username":"editor1","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetTitleNotFound(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/titles/movie/99", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, s, models.RoleEditor))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTitleRejectsUnknownKind(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/titles/widget/1", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, s, models.RoleEditor))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteSyncErrorMapsStatuses(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.writeSyncError(rec, &sync.ConflictError{Kind: models.KindMovie, TMDBID: 550, ExistingID: 1, AttemptID: 2})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	s.writeSyncError(rec, fmt.Errorf("%w: movie 550", sync.ErrDetailsUnavailable))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = httptest.NewRecorder()
	s.writeSyncError(rec, fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSecurityHeadersApplied(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
