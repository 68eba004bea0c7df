package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayuhutasoit2004/go-todo-app/internal/auth"
	dom "github.com/ayuhutasoit2004/go-todo-app/internal/domain"
	"github.com/ayuhutasoit2004/go-todo-app/internal/service"
)

// fakeTodoService records calls and returns canned results.
type fakeTodoService struct {
	listRes service.ListResult
	todo    dom.Todo
	err     error

	lastUserID int64
	lastID     int64
	lastCreate service.CreateTodoInput
	lastUpdate service.UpdateTodoInput
	lastCover  *multipart.FileHeader
}

func (f *fakeTodoService) List(_ context.Context, userID int64, search, filter string, page int) (service.ListResult, error) {
	f.lastUserID = userID
	return f.listRes, f.err
}

func (f *fakeTodoService) Create(_ context.Context, userID int64, in service.CreateTodoInput) (dom.Todo, error) {
	f.lastUserID = userID
	f.lastCreate = in
	return f.todo, f.err
}

func (f *fakeTodoService) Get(_ context.Context, userID, id int64) (dom.Todo, error) {
	f.lastUserID, f.lastID = userID, id
	return f.todo, f.err
}

func (f *fakeTodoService) Update(_ context.Context, userID, id int64, in service.UpdateTodoInput) (dom.Todo, error) {
	f.lastUserID, f.lastID = userID, id
	f.lastUpdate = in
	return f.todo, f.err
}

func (f *fakeTodoService) ToggleFinished(_ context.Context, userID, id int64) (dom.Todo, error) {
	f.lastUserID, f.lastID = userID, id
	return f.todo, f.err
}

func (f *fakeTodoService) Delete(_ context.Context, userID, id int64) error {
	f.lastUserID, f.lastID = userID, id
	return f.err
}

func (f *fakeTodoService) UpdateCover(_ context.Context, userID, id int64, cover *multipart.FileHeader) (dom.Todo, error) {
	f.lastUserID, f.lastID = userID, id
	f.lastCover = cover
	return f.todo, f.err
}

func (f *fakeTodoService) DeleteCover(_ context.Context, userID, id int64) (dom.Todo, error) {
	f.lastUserID, f.lastID = userID, id
	return f.todo, f.err
}

func (f *fakeTodoService) CoverURL(t dom.Todo) *string {
	if t.Cover == nil {
		return nil
	}
	u := "http://files.local/" + *t.Cover
	return &u
}

func newTestRouter(svc service.TodoService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Stand-in for RequireSession: every request runs as user 7.
	r.Use(func(c *gin.Context) { auth.SetUserID(c, 7) })

	h := NewTodoHandler(svc)
	r.GET("/todos", h.List)
	r.POST("/todos", h.Create)
	r.GET("/todos/:id/edit", h.Edit)
	r.PUT("/todos/:id", h.Update)
	r.POST("/todos/:id/toggle", h.Toggle)
	r.DELETE("/todos/:id", h.Delete)
	r.POST("/todos/:id/cover", h.UpdateCover)
	r.DELETE("/todos/:id/cover", h.DeleteCover)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, fileField, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("not-really-an-image"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestListHandler_EchoesFiltersAndMeta(t *testing.T) {
	cover := "covers/abc_pic.png"
	svc := &fakeTodoService{listRes: service.ListResult{
		Items:      []dom.Todo{{ID: 1, UserID: 7, Title: "Buy milk", Cover: &cover}},
		Total:      21,
		Page:       1,
		PageSize:   20,
		TotalPages: 2,
		Stats:      dom.TodoStats{Total: 21, Finished: 3, Unfinished: 18},
		Search:     "milk",
		Filter:     "unfinished",
	}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/todos?search=milk&filter=unfinished&page=1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, svc.lastUserID)

	var body struct {
		Todos []struct {
			Title    string  `json:"title"`
			CoverURL *string `json:"cover_url"`
		} `json:"todos"`
		Meta struct {
			Total      int64 `json:"total"`
			TotalPages int   `json:"total_pages"`
		} `json:"meta"`
		Stats   dom.TodoStats `json:"stats"`
		Filters struct {
			Search string `json:"search"`
			Filter string `json:"filter"`
		} `json:"filters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Todos, 1)
	assert.Equal(t, "Buy milk", body.Todos[0].Title)
	require.NotNil(t, body.Todos[0].CoverURL)
	assert.Equal(t, "http://files.local/covers/abc_pic.png", *body.Todos[0].CoverURL)
	assert.EqualValues(t, 21, body.Meta.Total)
	assert.Equal(t, 2, body.Meta.TotalPages)
	assert.EqualValues(t, 21, body.Stats.Total)
	assert.Equal(t, "milk", body.Filters.Search)
	assert.Equal(t, "unfinished", body.Filters.Filter)
}

func TestCreateHandler_MultipartWithCover(t *testing.T) {
	svc := &fakeTodoService{todo: dom.Todo{ID: 3, UserID: 7, Title: "new"}}
	r := newTestRouter(svc)

	body, ct := multipartBody(t, map[string]string{"title": "new", "description": "d"}, "cover", "pic.png")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/todos", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "new", svc.lastCreate.Title)
	assert.Equal(t, "d", svc.lastCreate.Description)
	require.NotNil(t, svc.lastCreate.Cover)
	assert.Equal(t, "pic.png", svc.lastCreate.Cover.Filename)
	assert.Contains(t, w.Body.String(), "Todo added successfully!")
}

func TestCreateHandler_MissingCoverIsNil(t *testing.T) {
	svc := &fakeTodoService{todo: dom.Todo{ID: 3, UserID: 7, Title: "new"}}
	r := newTestRouter(svc)

	body, ct := multipartBody(t, map[string]string{"title": "new"}, "", "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/todos", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, svc.lastCreate.Cover)
}

func TestCreateHandler_ValidationErrorMapsTo400(t *testing.T) {
	svc := &fakeTodoService{err: &service.ValidationError{Field: "title", Message: "title is required"}}
	r := newTestRouter(svc)

	body, ct := multipartBody(t, map[string]string{"title": ""}, "", "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/todos", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "title is required", resp.Errors["title"])
}

func TestEditHandler_NotFoundMapsTo404(t *testing.T) {
	svc := &fakeTodoService{err: service.ErrNotFound}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/todos/42/edit", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.EqualValues(t, 42, svc.lastID)
}

func TestUpdateHandler_BadIDRejected(t *testing.T) {
	svc := &fakeTodoService{}
	r := newTestRouter(svc)

	body, ct := multipartBody(t, map[string]string{"title": "x"}, "", "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/todos/abc", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleHandler_ReturnsUpdatedTodo(t *testing.T) {
	svc := &fakeTodoService{todo: dom.Todo{ID: 9, UserID: 7, Title: "t", IsFinished: true}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/todos/9/toggle", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Todo struct {
			IsFinished bool `json:"is_finished"`
		} `json:"todo"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Todo.IsFinished)
	assert.Equal(t, "Todo status changed successfully!", resp.Message)
}

func TestDeleteHandler_Success(t *testing.T) {
	svc := &fakeTodoService{}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/todos/4", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, svc.lastID)
	assert.Contains(t, w.Body.String(), "Todo deleted successfully!")
}

func TestDeleteHandler_InternalErrorMapsTo500(t *testing.T) {
	svc := &fakeTodoService{err: errors.New("db down")}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/todos/4", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUpdateCoverHandler_PassesFileThrough(t *testing.T) {
	svc := &fakeTodoService{todo: dom.Todo{ID: 4, UserID: 7, Title: "t"}}
	r := newTestRouter(svc)

	body, ct := multipartBody(t, nil, "cover", "new.jpg")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/todos/4/cover", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastCover)
	assert.Equal(t, "new.jpg", svc.lastCover.Filename)
}

func TestUpdateCoverHandler_MissingFileStillReachesService(t *testing.T) {
	// The required-cover rule lives in the service so the handler passes nil on.
	svc := &fakeTodoService{err: &service.ValidationError{Field: "cover", Message: "cover file is required"}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/todos/4/cover", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.lastCover)
}

func TestDeleteCoverHandler_Success(t *testing.T) {
	svc := &fakeTodoService{todo: dom.Todo{ID: 4, UserID: 7, Title: "t"}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/todos/4/cover", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cover deleted successfully!")
}
