package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ayuhutasoit2004/go-todo-app/internal/auth"
	dom "github.com/ayuhutasoit2004/go-todo-app/internal/domain"
	"github.com/ayuhutasoit2004/go-todo-app/internal/dto"
	"github.com/ayuhutasoit2004/go-todo-app/internal/service"
)

type TodoHandler struct {
	svc service.TodoService
}

func NewTodoHandler(svc service.TodoService) *TodoHandler {
	return &TodoHandler{svc: svc}
}

// List godoc
// @Summary      List todos with search, filter, stats and pagination
// @Tags         todos
// @Produce      json
// @Security     CookieAuth
// @Param        search  query  string  false  "Case-insensitive match on title or description"
// @Param        filter  query  string  false  "all | finished | unfinished"
// @Param        page    query  int     false  "Page number (20 per page)"
// @Success      200  {object}  dto.ListTodosResponse
// @Failure      500  {object}  map[string]string
// @Router       /todos [get]
func (h *TodoHandler) List(c *gin.Context) {
	userID := auth.UserIDFromContext(c)

	var q dto.ListTodosQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.List(c.Request.Context(), userID, q.Search, q.Filter, q.Page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ListTodosResponse{
		Todos: h.todosToResponses(res.Items),
		Meta: dto.PageMeta{
			Page:       res.Page,
			PageSize:   res.PageSize,
			Total:      res.Total,
			TotalPages: res.TotalPages,
		},
		Stats:   res.Stats,
		Filters: dto.Filters{Search: res.Search, Filter: res.Filter},
	})
}

// Create godoc
// @Summary      Create a todo with an optional image cover
// @Tags         todos
// @Accept       multipart/form-data
// @Produce      json
// @Security     CookieAuth
// @Param        title        formData  string  true   "Title (max 255 chars)"
// @Param        description  formData  string  false  "Description"
// @Param        cover        formData  file    false  "Cover image (jpeg/png/jpg/gif, max 2048 KB)"
// @Success      201  {object}  dto.TodoMessageResponse
// @Failure      400  {object}  map[string]map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /todos [post]
func (h *TodoHandler) Create(c *gin.Context) {
	userID := auth.UserIDFromContext(c)

	var form dto.CreateTodoForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cover, ok := optionalFormFile(c, "cover")
	if !ok {
		return
	}

	t, err := h.svc.Create(c.Request.Context(), userID, service.CreateTodoInput{
		Title:       form.Title,
		Description: form.Description,
		Cover:       cover,
	})
	if err != nil {
		respondTodoError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TodoMessageResponse{
		Todo:    h.todoToResponse(t),
		Message: "Todo added successfully!",
	})
}

// Edit godoc
// @Summary      Fetch a single todo for editing
// @Tags         todos
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      404  {object}  map[string]string
// @Router       /todos/{id}/edit [get]
func (h *TodoHandler) Edit(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.todoToResponse(t))
}

// Update godoc
// @Summary      Update title/description, optionally replacing the cover
// @Tags         todos
// @Accept       multipart/form-data
// @Produce      json
// @Security     CookieAuth
// @Param        id           path      int     true   "Todo ID"
// @Param        title        formData  string  true   "Title (max 255 chars)"
// @Param        description  formData  string  false  "Description"
// @Param        cover        formData  file    false  "New cover image; old one is removed"
// @Success      200  {object}  dto.TodoMessageResponse
// @Failure      400  {object}  map[string]map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /todos/{id} [put]
func (h *TodoHandler) Update(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var form dto.UpdateTodoForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cover, ok := optionalFormFile(c, "cover")
	if !ok {
		return
	}

	t, err := h.svc.Update(c.Request.Context(), userID, id, service.UpdateTodoInput{
		Title:       form.Title,
		Description: form.Description,
		Cover:       cover,
	})
	if err != nil {
		respondTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TodoMessageResponse{
		Todo:    h.todoToResponse(t),
		Message: "Todo updated successfully!",
	})
}

// Toggle godoc
// @Summary      Flip the finished state
// @Tags         todos
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoMessageResponse
// @Failure      404  {object}  map[string]string
// @Router       /todos/{id}/toggle [post]
func (h *TodoHandler) Toggle(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.ToggleFinished(c.Request.Context(), userID, id)
	if err != nil {
		respondTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TodoMessageResponse{
		Todo:    h.todoToResponse(t),
		Message: "Todo status changed successfully!",
	})
}

// Delete godoc
// @Summary      Delete a todo and its cover
// @Tags         todos
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  map[string]string
// @Router       /todos/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		respondTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Todo deleted successfully!"})
}

// UpdateCover godoc
// @Summary      Replace only the cover image
// @Tags         todos
// @Accept       multipart/form-data
// @Produce      json
// @Security     CookieAuth
// @Param        id     path      int   true  "Todo ID"
// @Param        cover  formData  file  true  "Cover image (jpeg/png/jpg/gif, max 2048 KB)"
// @Success      200  {object}  dto.TodoMessageResponse
// @Failure      400  {object}  map[string]map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /todos/{id}/cover [post]
func (h *TodoHandler) UpdateCover(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	cover, ok := optionalFormFile(c, "cover")
	if !ok {
		return
	}
	t, err := h.svc.UpdateCover(c.Request.Context(), userID, id, cover)
	if err != nil {
		respondTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TodoMessageResponse{
		Todo:    h.todoToResponse(t),
		Message: "Cover updated successfully!",
	})
}

// DeleteCover godoc
// @Summary      Remove the cover image (idempotent)
// @Tags         todos
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoMessageResponse
// @Failure      404  {object}  map[string]string
// @Router       /todos/{id}/cover [delete]
func (h *TodoHandler) DeleteCover(c *gin.Context) {
	userID := auth.UserIDFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.DeleteCover(c.Request.Context(), userID, id)
	if err != nil {
		respondTodoError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TodoMessageResponse{
		Todo:    h.todoToResponse(t),
		Message: "Cover deleted successfully!",
	})
}

// ===== helpers =====

func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// optionalFormFile reads a file field, treating a missing file as nil. The
// second return is false after an error response has already been written.
func optionalFormFile(c *gin.Context, name string) (*multipart.FileHeader, bool) {
	fh, err := c.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return fh, true
}

func respondTodoError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{ve.Field: ve.Message}})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *TodoHandler) todoToResponse(t dom.Todo) dto.TodoResponse {
	return dto.TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsFinished:  t.IsFinished,
		Cover:       t.Cover,
		CoverURL:    h.svc.CoverURL(t),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (h *TodoHandler) todosToResponses(list []dom.Todo) []dto.TodoResponse {
	out := make([]dto.TodoResponse, len(list))
	for i := range list {
		out[i] = h.todoToResponse(list[i])
	}
	return out
}
