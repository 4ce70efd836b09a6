package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tmuhq/tmusync/internal/api"
	"github.com/tmuhq/tmusync/internal/config"
	"github.com/tmuhq/tmusync/internal/db"
	"github.com/tmuhq/tmusync/internal/jobs"
	"github.com/tmuhq/tmusync/internal/media"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/scheduler"
	"github.com/tmuhq/tmusync/internal/sync"
	"github.com/tmuhq/tmusync/internal/tmdb"
	"github.com/tmuhq/tmusync/internal/version"
)

func main() {
	ver := version.Load()
	log.Printf("tmusync %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)
	if cfg.TMDBAPIKey == "" {
		log.Println("warning: no TMDB API key configured, remote syncs will fail")
	}

	fetcher := tmdb.NewClient(cfg.TMDBAPIKey, cfg.TMDBLanguage)
	importer := media.NewImporter(cfg.DataDir, repository.NewVideoRepository(database.DB))
	syncSvc := sync.NewService(database.DB, fetcher, importer, cfg.SyncConcurrency)

	queue := jobs.NewQueue(cfg.RedisAddr, cfg.SyncConcurrency)
	defer queue.Stop()

	srv, err := api.NewServer(cfg, database.DB, syncSvc, queue)
	if err != nil {
		log.Fatalf("server init failed: %v", err)
	}

	titles := repository.NewTitleRepository(database.DB)
	jobs.RegisterHandlers(queue, syncSvc, titles, srv.WSHub())
	if err := queue.Start(); err != nil {
		log.Fatalf("queue start failed: %v", err)
	}

	sched := scheduler.New(titles, queue, cfg.RefreshCron)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler start failed: %v", err)
	}
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}
