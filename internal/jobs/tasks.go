package jobs

import (
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/sync"
)

const (
	TaskTitleSync  = "sync:title"
	TaskPersonSync = "sync:person"
	TaskBulkSync   = "sync:bulk"
)

// ──────── Payloads ────────

type TitleSyncPayload struct {
	Kind           string `json:"kind"`
	LocalID        int64  `json:"local_id"`
	TMDBID         int64  `json:"tmdb_id,omitempty"`
	RefreshCredits bool   `json:"refresh_credits,omitempty"`
	RefreshImages  bool   `json:"refresh_images,omitempty"`
	RefreshVideos  bool   `json:"refresh_videos,omitempty"`
	RefreshSeasons bool   `json:"refresh_seasons,omitempty"`
	OnlySeason     int    `json:"only_season,omitempty"`
}

type PersonSyncPayload struct {
	TMDBID int64 `json:"tmdb_id"`
}

type BulkSyncPayload struct {
	RunID          string  `json:"run_id"`
	Kind           string  `json:"kind"`
	Action         string  `json:"action"`
	IDs            []int64 `json:"ids,omitempty"`
	RefreshCredits bool    `json:"refresh_credits,omitempty"`
	RefreshImages  bool    `json:"refresh_images,omitempty"`
	RefreshVideos  bool    `json:"refresh_videos,omitempty"`
	RefreshSeasons bool    `json:"refresh_seasons,omitempty"`
	OnlySeason     int     `json:"only_season,omitempty"`
}

// EventNotifier receives task progress events; the websocket hub satisfies it.
type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, svc *sync.Service, titles *repository.TitleRepository, notifier EventNotifier) {
	q.RegisterHandler(TaskTitleSync, NewTitleSyncHandler(svc, titles, notifier))
	q.RegisterHandler(TaskPersonSync, NewPersonSyncHandler(svc))
	q.RegisterHandler(TaskBulkSync, NewBulkSyncHandler(svc, titles, notifier))
}
