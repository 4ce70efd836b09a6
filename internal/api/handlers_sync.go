package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tmuhq/tmusync/internal/httputil"
	"github.com/tmuhq/tmusync/internal/jobs"
	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/sync"
)

func pathKind(r *http.Request) (models.EntityKind, error) {
	return models.ParseKind(r.PathValue("kind"))
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// handleSyncTitle runs the save-event reconciliation inline and returns the
// stored row. The body is an optional SyncRequest carrying submitted fields
// and refresh flags; kind and id always come from the path.
func (s *Server) handleSyncTitle(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil || !kind.IsTitle() {
		httputil.WriteError(w, http.StatusBadRequest, "bad_kind", "kind must be movie, tv or drama")
		return
	}
	id, err := pathID(r, "id")
	if err != nil || id < 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_id", "invalid title id")
		return
	}

	var req sync.SyncRequest
	if err := httputil.ReadJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	req.Kind = kind
	req.LocalID = id

	if req.TMDBID == 0 && id != 0 {
		stored, err := s.titles.GetByID(kind, id)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not load title")
			return
		}
		if stored == nil {
			httputil.WriteError(w, http.StatusNotFound, "not_found", "title not found")
			return
		}
		if stored.TMDBID != nil {
			req.TMDBID = *stored.TMDBID
		}
	}
	if req.TMDBID == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "no_tmdb_id", "title has no provider id to sync from")
		return
	}

	title, err := s.syncSvc.Sync(r.Context(), &req)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}

	s.wsHub.Broadcast("title:synced", map[string]interface{}{
		"kind": kind.String(), "id": title.ID, "title": title.Title,
	})
	httputil.WriteJSON(w, http.StatusOK, title)
}

func (s *Server) handleSyncPerson(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := pathID(r, "tmdbId")
	if err != nil || tmdbID <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_id", "invalid person id")
		return
	}

	person, err := s.syncSvc.SyncPerson(r.Context(), tmdbID)
	if err != nil {
		s.writeSyncError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, person)
}

func (s *Server) handleGetTitle(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil || !kind.IsTitle() {
		httputil.WriteError(w, http.StatusBadRequest, "bad_kind", "kind must be movie, tv or drama")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_id", "invalid title id")
		return
	}

	title, err := s.titles.GetByID(kind, id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not load title")
		return
	}
	if title == nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "title not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, title)
}

func (s *Server) handleDeleteTitle(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil || !kind.IsTitle() {
		httputil.WriteError(w, http.StatusBadRequest, "bad_kind", "kind must be movie, tv or drama")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_id", "invalid title id")
		return
	}

	if err := s.syncSvc.Delete(r.Context(), kind, id); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// handleBulk queues a whole-family (or id-list) sync run. The run id doubles
// as the websocket task id so the admin page can follow progress.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var payload jobs.BulkSyncPayload
	if err := httputil.ReadJSON(r, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	kind, err := models.ParseKind(payload.Kind)
	if err != nil || !kind.IsTitle() {
		httputil.WriteError(w, http.StatusBadRequest, "bad_kind", "kind must be movie, tv or drama")
		return
	}
	switch models.BulkAction(payload.Action) {
	case models.BulkAdd, models.BulkUpdate, models.BulkDelete:
	default:
		httputil.WriteError(w, http.StatusBadRequest, "bad_action", "action must be add, update or delete")
		return
	}

	payload.RunID = uuid.NewString()
	taskID, err := s.jobQueue.EnqueueUnique(jobs.TaskBulkSync, payload, "bulk:"+payload.Kind,
		asynq.Queue(jobs.QueueBulk))
	if err != nil {
		log.Printf("API: bulk enqueue failed: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not queue bulk run")
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"run_id":  payload.RunID,
	})
}

// writeSyncError maps the reconciler's error kinds onto HTTP statuses.
func (s *Server) writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sync.ErrIDConflict):
		httputil.WriteError(w, http.StatusConflict, "tmdb_id_conflict", err.Error())
	case errors.Is(err, sync.ErrDetailsUnavailable):
		httputil.WriteError(w, http.StatusBadGateway, "details_unavailable", err.Error())
	default:
		log.Printf("API: sync failed: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "sync failed")
	}
}
