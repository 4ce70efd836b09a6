package api

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tmuhq/tmusync/internal/auth"
	"github.com/tmuhq/tmusync/internal/config"
	"github.com/tmuhq/tmusync/internal/httputil"
	"github.com/tmuhq/tmusync/internal/jobs"
	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/sitemap"
	"github.com/tmuhq/tmusync/internal/sync"
)

type Server struct {
	config   *config.Config
	auth     *auth.Auth
	users    *repository.UserRepository
	titles   *repository.TitleRepository
	settings *repository.SettingsRepository
	syncSvc  *sync.Service
	sitemap  *sitemap.Builder
	jobQueue *jobs.Queue
	wsHub    *WSHub

	// shared limiter for the credential endpoints
	authLimiter *rate.Limiter
	router      *http.ServeMux
}

func NewServer(cfg *config.Config, database *sql.DB, syncSvc *sync.Service, jobQueue *jobs.Queue) (*Server, error) {
	authService, err := auth.NewAuth(cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		return nil, err
	}

	titles := repository.NewTitleRepository(database)
	settings := repository.NewSettingsRepository(database)

	s := &Server{
		config:      cfg,
		auth:        authService,
		users:       repository.NewUserRepository(database),
		titles:      titles,
		settings:    settings,
		syncSvc:     syncSvc,
		sitemap:     sitemap.NewBuilder(titles, settings, cfg.SiteBaseURL),
		jobQueue:    jobQueue,
		wsHub:       NewWSHub(),
		authLimiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
		router:      http.NewServeMux(),
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) setupRoutes() {
	// Stored artwork (posters, stills, profiles, thumbs)
	s.router.Handle("GET /assets/", http.StripPrefix("/assets/",
		http.FileServer(http.Dir(s.config.DataDir))))

	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("POST /api/v1/setup", s.rlAuth(s.handleSetup))
	s.router.HandleFunc("POST /api/v1/auth/login", s.rlAuth(s.handleLogin))

	// Crawl surface
	s.router.HandleFunc("GET /sitemap.xml", s.handleSitemapIndex)
	s.router.HandleFunc("GET /sitemaps/{file}", s.handleSitemapPage)
	s.router.HandleFunc("GET /robots.txt", s.handleRobots)

	// WebSocket
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)

	// Titles
	s.router.HandleFunc("GET /api/v1/titles/{kind}/{id}", s.authMiddleware(s.handleGetTitle, models.RoleEditor))
	s.router.HandleFunc("DELETE /api/v1/titles/{kind}/{id}", s.authMiddleware(s.handleDeleteTitle, models.RoleAdmin))

	// Sync (the save-event surface)
	s.router.HandleFunc("POST /api/v1/sync/{kind}/{id}", s.authMiddleware(s.handleSyncTitle, models.RoleEditor))
	s.router.HandleFunc("POST /api/v1/sync/person/{tmdbId}", s.authMiddleware(s.handleSyncPerson, models.RoleEditor))

	// Admin bulk trigger
	s.router.HandleFunc("POST /api/v1/admin/bulk", s.authMiddleware(s.handleBulk, models.RoleAdmin))

	// Settings (admin)
	s.router.HandleFunc("GET /api/v1/settings", s.authMiddleware(s.handleGetSettings, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/settings", s.authMiddleware(s.handleUpdateSettings, models.RoleAdmin))
}

// ──────────────────── Middleware ────────────────────

func (s *Server) authMiddleware(next http.HandlerFunc, requiredRole models.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if t := r.URL.Query().Get("token"); t != "" {
			tokenString = t
		} else {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authorization")
			return
		}

		claims, err := s.auth.ValidateToken(tokenString)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		if !s.auth.CheckPermission(claims.Role, requiredRole) {
			httputil.WriteError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
			return
		}

		r.Header.Set("X-User-Role", string(claims.Role))
		next(w, r)
	}
}

// rlAuth throttles the credential endpoints against brute forcing.
func (s *Server) rlAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.Allow() {
			httputil.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts, slow down")
			return
		}
		next(w, r)
	}
}

// ──────────────────── Entry ────────────────────

// Handler returns the router wrapped with the global middleware chain:
// security headers → CORS → routes.
func (s *Server) Handler() http.Handler {
	return s.securityHeadersMiddleware(s.corsMiddleware(s.router))
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
