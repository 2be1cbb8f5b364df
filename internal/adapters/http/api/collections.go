package api

import (
	"fmt"
	"net/http"

	"github.com/okian/hrdesk/internal/domain/types"
)

// collectionHandler serves CRUD routes for one record kind.
type collectionHandler[T any] struct {
	store    RecordStore[T]
	maxLimit int
}

func registerCollection[T any](s *Server, mux *http.ServeMux, store RecordStore[T]) {
	h := &collectionHandler[T]{store: store, maxLimit: s.maxListLimit}
	kind := string(store.Kind())
	base := "/api/v1/" + kind
	item := base + "/{id}"

	mux.HandleFunc("GET "+base, s.route(h.handleList, kind))
	mux.HandleFunc("POST "+base, s.route(h.handleCreate, kind))
	mux.HandleFunc("GET "+item, s.route(h.handleGet, kind+"_item"))
	mux.HandleFunc("PUT "+item, s.route(h.handleUpdate, kind+"_item"))
	mux.HandleFunc("DELETE "+item, s.route(h.handleDelete, kind+"_item"))
}

// handleList handles GET /api/v1/{kind}?q=&offset=&limit= requests.
func (h *collectionHandler[T]) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := queryInt(q, "offset", 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	limit, err := queryInt(q, "limit", 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			fmt.Errorf("%w: limit must not exceed %d", ErrBadRequest, h.maxLimit))
		return
	}

	res, err := h.store.List(r.Context(), types.ListQuery{Search: q.Get("q"), Offset: offset, Limit: limit})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGet handles GET /api/v1/{kind}/{id} requests.
func (h *collectionHandler[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleCreate handles POST /api/v1/{kind} requests.
func (h *collectionHandler[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var rec T
	if err := decodeJSON(w, r, &rec); err != nil {
		writeServiceError(w, r, err)
		return
	}
	created, err := h.store.Create(r.Context(), rec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdate handles PUT /api/v1/{kind}/{id} requests. The path id wins
// over any id in the body.
func (h *collectionHandler[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var rec T
	if err := decodeJSON(w, r, &rec); err != nil {
		writeServiceError(w, r, err)
		return
	}
	updated, err := h.store.Update(r.Context(), r.PathValue("id"), rec)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDelete handles DELETE /api/v1/{kind}/{id} requests.
func (h *collectionHandler[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
