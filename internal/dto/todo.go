package dto

import (
	"time"

	dom "github.com/ayuhutasoit2004/go-todo-app/internal/domain"
)

// ListTodosQuery is the query string for GET /todos.
// Filter accepts all|finished|unfinished; anything else behaves like "all".
type ListTodosQuery struct {
	Search string `form:"search"`
	Filter string `form:"filter"`
	Page   int    `form:"page"`
}

// CreateTodoForm is the multipart form for POST /todos.
// The optional cover file is read separately via FormFile.
type CreateTodoForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
}

// UpdateTodoForm is the multipart form for PUT /todos/:id.
type UpdateTodoForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
}

type TodoResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsFinished  bool      `json:"is_finished"`
	Cover       *string   `json:"cover"`
	CoverURL    *string   `json:"cover_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PageMeta carries enough to render page links.
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Filters echoes the active search/filter back to the presentation layer.
type Filters struct {
	Search string `json:"search"`
	Filter string `json:"filter"`
}

type ListTodosResponse struct {
	Todos   []TodoResponse `json:"todos"`
	Meta    PageMeta       `json:"meta"`
	Stats   dom.TodoStats  `json:"stats"`
	Filters Filters        `json:"filters"`
}

// TodoMessageResponse is returned by mutations: the affected todo plus the
// one-shot status message the UI shows after redirect.
type TodoMessageResponse struct {
	Todo    TodoResponse `json:"todo"`
	Message string       `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
