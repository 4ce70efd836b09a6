package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/sync"
)

// ──────── Bulk Sync Handler ────────

// BulkSyncHandler walks a whole title family (or an explicit id list) and
// reconciles each row in turn. Item failures are logged and counted, never
// fatal to the run; progress goes out over the notifier so the admin surface
// can render a live bar.
type BulkSyncHandler struct {
	svc      *sync.Service
	titles   *repository.TitleRepository
	notifier EventNotifier
}

func NewBulkSyncHandler(svc *sync.Service, titles *repository.TitleRepository, notifier EventNotifier) *BulkSyncHandler {
	return &BulkSyncHandler{svc: svc, titles: titles, notifier: notifier}
}

func (h *BulkSyncHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload BulkSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	kind, err := models.ParseKind(payload.Kind)
	if err != nil {
		return err
	}
	if !kind.IsTitle() {
		return fmt.Errorf("bulk sync does not cover kind %q", kind)
	}

	targets, err := h.resolveTargets(kind, payload.IDs)
	if err != nil {
		return fmt.Errorf("resolve targets: %w", err)
	}

	taskID := "bulk:" + payload.Kind
	if payload.RunID != "" {
		taskID = "bulk:" + payload.RunID
	}
	taskDesc := fmt.Sprintf("Bulk %s: %s", payload.Action, kind)

	if len(targets) == 0 {
		log.Printf("Bulk: no %s rows to process", kind)
		return nil
	}

	log.Printf("Bulk: %s on %d %s rows", payload.Action, len(targets), kind)
	h.broadcast(taskID, "running", 0, taskDesc)

	synced, failed, conflicts := 0, 0, 0
	var lastBroadcast time.Time
	for i, target := range targets {
		select {
		case <-ctx.Done():
			log.Printf("Bulk: cancelled after %d/%d rows", i, len(targets))
			h.broadcast(taskID, "complete", 100, taskDesc+" (cancelled)")
			return ctx.Err()
		default:
		}

		if now := time.Now(); now.Sub(lastBroadcast) >= 500*time.Millisecond || i == len(targets)-1 {
			lastBroadcast = now
			pct := int(float64(i+1) / float64(len(targets)) * 100)
			h.broadcast(taskID, "running", pct,
				fmt.Sprintf("%s (%d/%d)", taskDesc, i+1, len(targets)))
		}

		if err := h.processOne(ctx, kind, payload, target); err != nil {
			if errors.Is(err, sync.ErrIDConflict) {
				conflicts++
			} else {
				failed++
			}
			log.Printf("Bulk: %s %d: %v", kind, target.ID, err)
			continue
		}
		synced++
	}

	log.Printf("Bulk: %s done: %d ok, %d failed, %d conflicts", kind, synced, failed, conflicts)
	h.broadcast(taskID, "complete", 100,
		fmt.Sprintf("%s: %d ok, %d failed, %d conflicts", taskDesc, synced, failed, conflicts))
	return nil
}

func (h *BulkSyncHandler) processOne(ctx context.Context, kind models.EntityKind, payload BulkSyncPayload, target repository.SyncTarget) error {
	if payload.Action == string(models.BulkDelete) {
		return h.svc.Delete(ctx, kind, target.ID)
	}

	req := &sync.SyncRequest{
		Kind:           kind,
		LocalID:        target.ID,
		TMDBID:         target.TMDBID,
		RefreshCredits: payload.RefreshCredits,
		RefreshImages:  payload.RefreshImages,
		RefreshVideos:  payload.RefreshVideos,
		RefreshSeasons: payload.RefreshSeasons,
		OnlySeason:     payload.OnlySeason,
	}
	_, err := h.svc.Sync(ctx, req)
	return err
}

func (h *BulkSyncHandler) resolveTargets(kind models.EntityKind, ids []int64) ([]repository.SyncTarget, error) {
	if len(ids) == 0 {
		return h.titles.ListSyncTargets(kind)
	}
	var targets []repository.SyncTarget
	for _, id := range ids {
		stored, err := h.titles.GetByID(kind, id)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			log.Printf("Bulk: %s %d not found, skipping", kind, id)
			continue
		}
		target := repository.SyncTarget{ID: id}
		if stored.TMDBID != nil {
			target.TMDBID = *stored.TMDBID
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func (h *BulkSyncHandler) broadcast(taskID, status string, progress int, description string) {
	if h.notifier == nil {
		return
	}
	h.notifier.Broadcast("task:update", map[string]interface{}{
		"task_id":     taskID,
		"task_type":   TaskBulkSync,
		"status":      status,
		"progress":    progress,
		"description": description,
	})
}
