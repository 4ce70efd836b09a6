package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/sync"
)

// ──────── Single Title Sync Handler ────────

type TitleSyncHandler struct {
	svc      *sync.Service
	titles   *repository.TitleRepository
	notifier EventNotifier
}

func NewTitleSyncHandler(svc *sync.Service, titles *repository.TitleRepository, notifier EventNotifier) *TitleSyncHandler {
	return &TitleSyncHandler{svc: svc, titles: titles, notifier: notifier}
}

func (h *TitleSyncHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload TitleSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	kind, err := models.ParseKind(payload.Kind)
	if err != nil {
		return err
	}

	req := &sync.SyncRequest{
		Kind:           kind,
		LocalID:        payload.LocalID,
		TMDBID:         payload.TMDBID,
		RefreshCredits: payload.RefreshCredits,
		RefreshImages:  payload.RefreshImages,
		RefreshVideos:  payload.RefreshVideos,
		RefreshSeasons: payload.RefreshSeasons,
		OnlySeason:     payload.OnlySeason,
	}
	if req.TMDBID == 0 && req.LocalID != 0 {
		stored, err := h.titles.GetByID(kind, req.LocalID)
		if err != nil {
			return err
		}
		if stored == nil || stored.TMDBID == nil {
			log.Printf("Sync: %s %d has no provider id, skipping", kind, req.LocalID)
			return nil
		}
		req.TMDBID = *stored.TMDBID
	}

	title, err := h.svc.Sync(ctx, req)
	if err != nil {
		// a conflicting provider id will not resolve itself on retry
		if errors.Is(err, sync.ErrIDConflict) {
			log.Printf("Sync: %s %d: %v", kind, req.TMDBID, err)
			return nil
		}
		return err
	}

	if h.notifier != nil {
		h.notifier.Broadcast("title:synced", map[string]interface{}{
			"kind": kind.String(), "id": title.ID, "title": title.Title,
		})
	}
	return nil
}

// ──────── Person Sync Handler ────────

type PersonSyncHandler struct {
	svc *sync.Service
}

func NewPersonSyncHandler(svc *sync.Service) *PersonSyncHandler {
	return &PersonSyncHandler{svc: svc}
}

func (h *PersonSyncHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload PersonSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	_, err := h.svc.SyncPerson(ctx, payload.TMDBID)
	return err
}
