package todo

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yujing9528/go-todo-api/internal/logger"
)

func newTestRouter(t *testing.T) (http.Handler, *Store) {
	t.Helper()
	store, _ := setupTestStore(t)
	r := chi.NewRouter()
	NewHandler(store, logger.Discard()).Register(r)
	return r, store
}

func request(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), "body: %s", rec.Body.String())
}

func TestHandlers_Lifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	start := time.Now().Truncate(time.Microsecond)

	rec := request(t, router, http.MethodPost, "/todos/", `{"title":"Buy milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Todo
	decodeResponse(t, rec, &created)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Nil(t, created.Description)
	assert.False(t, created.Completed)
	assert.False(t, created.CreatedAt.Before(start))

	rec = request(t, router, http.MethodPatch, "/todos/"+created.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled Todo
	decodeResponse(t, rec, &toggled)
	assert.True(t, toggled.Completed)

	rec = request(t, router, http.MethodGet, "/todos/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Todo
	decodeResponse(t, rec, &got)
	assert.True(t, got.Completed)
	assert.Equal(t, created.ID, got.ID)

	rec = request(t, router, http.MethodDelete, "/todos/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var confirmation map[string]string
	decodeResponse(t, rec, &confirmation)
	assert.Equal(t, created.ID, confirmation["id"])
	assert.Contains(t, confirmation["message"], created.ID)

	rec = request(t, router, http.MethodGet, "/todos/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var notFound map[string]string
	decodeResponse(t, rec, &notFound)
	assert.Equal(t, "Todo with id "+created.ID+" not found", notFound["detail"])
}

func TestHandlers_JSONShape(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, http.MethodPost, "/todos", `{"title":"Shape","description":"d","extra":"ignored"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var raw map[string]any
	decodeResponse(t, rec, &raw)
	assert.ElementsMatch(t, []string{"id", "title", "description", "completed", "created_at"}, keys(raw))
	assert.Equal(t, "d", raw["description"])
	_, err := time.Parse(time.RFC3339Nano, raw["created_at"].(string))
	assert.NoError(t, err)
}

func TestHandlers_CreateValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing title", `{"description":"x"}`, http.StatusUnprocessableEntity},
		{"empty title", `{"title":""}`, http.StatusUnprocessableEntity},
		{"null title", `{"title":null}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"title":`, http.StatusBadRequest},
		{"two objects", `{"title":"a"}{"title":"b"}`, http.StatusBadRequest},
		{"wrong type", `{"title":5}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(t, router, http.MethodPost, "/todos/", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := request(t, router, http.MethodGet, "/todos/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []Todo
	decodeResponse(t, rec, &items)
	assert.Empty(t, items)
}

func TestHandlers_TitleStoredAsSent(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, http.MethodPost, "/todos/", `{"title":"  Buy milk  "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Todo
	decodeResponse(t, rec, &created)
	assert.Equal(t, "  Buy milk  ", created.Title)

	rec = request(t, router, http.MethodGet, "/todos/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Todo
	decodeResponse(t, rec, &got)
	assert.Equal(t, "  Buy milk  ", got.Title)

	rec = request(t, router, http.MethodPost, "/todos/", `{"title":"   "}`)
	assert.Equal(t, http.StatusCreated, rec.Code, "whitespace is a non-empty title")

	rec = request(t, router, http.MethodPut, "/todos/"+created.ID, `{"title":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlers_UpdatePartial(t *testing.T) {
	router, store := newTestRouter(t)
	created, err := store.Create(t.Context(), "Original", strPtr("details"))
	require.NoError(t, err)

	rec := request(t, router, http.MethodPut, "/todos/"+created.ID, `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated Todo
	decodeResponse(t, rec, &updated)
	assert.Equal(t, "Renamed", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "details", *updated.Description)
	assert.False(t, updated.Completed)

	rec = request(t, router, http.MethodPut, "/todos/"+created.ID, `{"description":null,"completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated = Todo{}
	decodeResponse(t, rec, &updated)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Nil(t, updated.Description)
	assert.True(t, updated.Completed)

	rec = request(t, router, http.MethodPut, "/todos/"+created.ID, `{"title":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = request(t, router, http.MethodPut, "/todos/"+created.ID, `{"completed":null}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = request(t, router, http.MethodPut, "/todos/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_NotFoundRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/todos/nope"},
		{http.MethodGet, "/todo/nope"},
		{http.MethodPatch, "/todos/nope/toggle"},
		{http.MethodDelete, "/todos/nope"},
	} {
		rec := request(t, router, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		assert.Contains(t, rec.Body.String(), "Todo with id nope not found")
	}
}

func TestHandlers_GetAlias(t *testing.T) {
	router, store := newTestRouter(t)
	created, err := store.Create(t.Context(), "Alias", nil)
	require.NoError(t, err)

	rec := request(t, router, http.MethodGet, "/todo/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got Todo
	decodeResponse(t, rec, &got)
	assert.Equal(t, created.ID, got.ID)
}

func TestHandlers_ListFilters(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := t.Context()
	for _, title := range []string{"foo a", "foo b", "bar c"} {
		created, err := store.Create(ctx, title, nil)
		require.NoError(t, err)
		if title != "foo b" {
			_, _, err = store.Toggle(ctx, created.ID)
			require.NoError(t, err)
		}
	}

	list := func(query string) []Todo {
		rec := request(t, router, http.MethodGet, "/todos/"+query, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var items []Todo
		decodeResponse(t, rec, &items)
		return items
	}

	assert.Len(t, list(""), 3)
	for _, item := range list("?completed=true") {
		assert.True(t, item.Completed)
	}
	assert.Len(t, list("?completed=true"), 2)
	assert.Len(t, list("?search=foo"), 2)

	both := list("?completed=true&search=foo")
	require.Len(t, both, 1)
	assert.Equal(t, "foo a", both[0].Title)

	assert.Len(t, list("?limit=1"), 1)

	for _, bad := range []string{"?limit=0", "?limit=-3", "?limit=abc", "?completed=maybe"} {
		rec := request(t, router, http.MethodGet, "/todos/"+bad, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, bad)
	}
}

func TestHandlers_StorageFailure(t *testing.T) {
	store, db := setupTestStore(t)
	r := chi.NewRouter()
	NewHandler(store, logger.Discard()).Register(r)

	_, err := db.Exec(`DROP TABLE todos`)
	require.NoError(t, err)

	rec := request(t, r, http.MethodPost, "/todos/", `{"title":"x"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	decodeResponse(t, rec, &body)
	assert.Contains(t, body["detail"], "Internal server error:")
	assert.Contains(t, body["detail"], "no such table")

	rec = request(t, r, http.MethodGet, "/todos/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
