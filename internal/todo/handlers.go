package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/yujing9528/go-todo-api/internal/logger"
)

type Handler struct {
	store  *Store
	logger *logrus.Logger
}

// NewHandler serves the todo routes backed by store.
func NewHandler(store *Store, logger *logrus.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Register mounts the todo routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/todos", func(r chi.Router) {
		r.Get("/", h.handleListTodos)
		r.Post("/", h.handleCreateTodo)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetTodo)
			r.Put("/", h.handleUpdateTodo)
			r.Delete("/", h.handleDeleteTodo)
			r.Patch("/toggle", h.handleToggleTodo)
		})
	})

	// single-item path used by the serverless deployment
	r.Get("/todo/{id}", h.handleGetTodo)
}

func (h *Handler) handleListTodos(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		h.writeValidation(w, err)
		return
	}

	items, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, found, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	if !found {
		h.writeNotFound(w, id)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// handleCreateTodo answers 201 with the stored todo.
func (h *Handler) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var input createTodoRequest
	if err := h.decodeJSON(w, r, &input); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := input.Validate(); err != nil {
		h.writeValidation(w, err)
		return
	}

	t, err := h.store.Create(r.Context(), *input.Title, input.Description)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch Patch
	if err := h.decodeJSON(w, r, &patch); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := patch.Validate(); err != nil {
		h.writeValidation(w, err)
		return
	}

	t, found, err := h.store.Update(r.Context(), id, patch)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	if !found {
		h.writeNotFound(w, id)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	t, found, err := h.store.Toggle(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	if !found {
		h.writeNotFound(w, id)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, r, err)
		return
	}
	if !deleted {
		h.writeNotFound(w, id)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Todo %s deleted successfully", id),
		"id":      id,
	})
}

// parseListFilter reads completed, search and limit from the query string.
func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{Limit: DefaultListLimit}

	if raw := q.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return ListFilter{}, &ValidationError{Field: "completed", Message: "must be a boolean"}
		}
		filter.Completed = &completed
	}
	if q.Has("search") {
		search := q.Get("search")
		filter.Search = &search
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return ListFilter{}, &ValidationError{Field: "limit", Message: "must be a positive integer"}
		}
		filter.Limit = limit
	}
	return filter, nil
}

// decodeJSON accepts exactly one JSON object of at most 1 MiB.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// 1 MiB cap, exactly one JSON object, unknown fields ignored
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Warn("json encode error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}

func (h *Handler) writeNotFound(w http.ResponseWriter, id string) {
	h.writeError(w, http.StatusNotFound, fmt.Sprintf("Todo with id %s not found", id))
}

func (h *Handler) writeValidation(w http.ResponseWriter, err error) {
	h.writeError(w, http.StatusUnprocessableEntity, err.Error())
}

// writeStorageError logs err and answers 500.
func (h *Handler) writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	logger.WithRequestID(h.logger, middleware.GetReqID(r.Context())).
		WithError(err).
		WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).
		Error("todo store failure")
	h.writeError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
}
