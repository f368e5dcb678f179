package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eliasbr/fanvoice/internal/models"
	"github.com/eliasbr/fanvoice/internal/storage"
)

type DeadLetterHandler struct {
	store storage.Storage
	queue Queue
}

func NewDeadLetterHandler(store storage.Storage, queue Queue) *DeadLetterHandler {
	return &DeadLetterHandler{store: store, queue: queue}
}

func (h *DeadLetterHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	letters, err := h.store.ListDeadLetters(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list dead letters")
		return
	}
	if letters == nil {
		letters = []models.DeadLetter{}
	}
	writeJSON(w, http.StatusOK, letters)
}

// Replay re-enqueues a dead-lettered message and deletes its record. The
// record is only removed once the job is back on the queue.
func (h *DeadLetterHandler) Replay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.store.GetDeadLetter(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get dead letter")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "dead letter not found")
		return
	}

	if !h.queue.Enqueue(d.Message()) {
		writeError(w, http.StatusServiceUnavailable, "reply queue is full")
		return
	}

	if err := h.store.DeleteDeadLetter(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "replayed but failed to delete record")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"replayed": id})
}

func (h *DeadLetterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.store.GetDeadLetter(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get dead letter")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "dead letter not found")
		return
	}

	if err := h.store.DeleteDeadLetter(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete dead letter")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeadLetterHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DeadLetterHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
