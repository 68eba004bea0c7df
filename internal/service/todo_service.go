package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"

	"github.com/ayuhutasoit2004/go-todo-app/internal/blob"
	"github.com/ayuhutasoit2004/go-todo-app/internal/cache"
	dom "github.com/ayuhutasoit2004/go-todo-app/internal/domain"
	"github.com/ayuhutasoit2004/go-todo-app/internal/repo"
)

var ErrNotFound = errors.New("todo not found")

// ValidationError reports a bad or missing input field. The operation it
// aborted performed no mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

const (
	FilterAll        = "all"
	FilterFinished   = "finished"
	FilterUnfinished = "unfinished"

	// PageSize is the fixed listing window.
	PageSize = 20

	maxTitleLen   = 255
	maxCoverBytes = 2048 << 10 // 2048 KB
)

var allowedCoverExts = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// CreateTodoInput carries the validated-at-the-boundary fields for Create.
type CreateTodoInput struct {
	Title       string
	Description string
	Cover       *multipart.FileHeader
}

// UpdateTodoInput mirrors CreateTodoInput for Update; a nil Cover leaves the
// existing cover untouched.
type UpdateTodoInput struct {
	Title       string
	Description string
	Cover       *multipart.FileHeader
}

// ListResult is one list page plus owner-wide stats and pagination metadata.
type ListResult struct {
	Items      []dom.Todo
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
	Stats      dom.TodoStats
	Search     string
	Filter     string
}

// TodoService owns query construction, stats aggregation and the cover-file
// lifecycle tied to record mutations.
type TodoService interface {
	List(ctx context.Context, userID int64, search, filter string, page int) (ListResult, error)
	Create(ctx context.Context, userID int64, in CreateTodoInput) (dom.Todo, error)
	Get(ctx context.Context, userID, id int64) (dom.Todo, error)
	Update(ctx context.Context, userID, id int64, in UpdateTodoInput) (dom.Todo, error)
	ToggleFinished(ctx context.Context, userID, id int64) (dom.Todo, error)
	Delete(ctx context.Context, userID, id int64) error
	UpdateCover(ctx context.Context, userID, id int64, cover *multipart.FileHeader) (dom.Todo, error)
	DeleteCover(ctx context.Context, userID, id int64) (dom.Todo, error)
	CoverURL(t dom.Todo) *string
}

type todoService struct {
	repo  repo.TodoRepo
	cache *cache.TodoCache
	blobs blob.Store
	log   *slog.Logger
	sf    singleflight.Group
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled.
func NewTodoService(r repo.TodoRepo, c *cache.TodoCache, b blob.Store, log *slog.Logger) TodoService {
	if log == nil {
		log = slog.Default()
	}
	return &todoService{repo: r, cache: c, blobs: b, log: log}
}

// ===== validation =====

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", &ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", maxTitleLen)}
	}
	return title, nil
}

func validateCover(fh *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedCoverExts[ext] {
		return &ValidationError{Field: "cover", Message: "cover must be a jpeg, png, jpg or gif image"}
	}
	if fh.Size > maxCoverBytes {
		return &ValidationError{Field: "cover", Message: "cover must be at most 2048 KB"}
	}
	return nil
}

func coverContentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

// ===== list =====

func (s *todoService) List(ctx context.Context, userID int64, search, filter string, page int) (ListResult, error) {
	search = strings.TrimSpace(search)
	filter = strings.TrimSpace(filter)
	if page < 1 {
		page = 1
	}

	pageData, err := s.loadPage(ctx, userID, search, filter, page)
	if err != nil {
		return ListResult{}, err
	}
	stats, err := s.loadStats(ctx, userID)
	if err != nil {
		return ListResult{}, err
	}

	totalPages := int((pageData.Total + PageSize - 1) / PageSize)
	return ListResult{
		Items:      pageData.Items,
		Total:      pageData.Total,
		Page:       page,
		PageSize:   PageSize,
		TotalPages: totalPages,
		Stats:      stats,
		Search:     search,
		Filter:     filter,
	}, nil
}

func listQueryFor(search, filter string, page int) repo.ListQuery {
	q := repo.ListQuery{
		Search: search,
		Limit:  PageSize,
		Offset: (page - 1) * PageSize,
	}
	// Anything other than finished/unfinished (including "all" or absent)
	// imposes no finished-state constraint.
	switch filter {
	case FilterFinished:
		v := true
		q.Finished = &v
	case FilterUnfinished:
		v := false
		q.Finished = &v
	}
	return q
}

func (s *todoService) loadPage(ctx context.Context, userID int64, search, filter string, page int) (dom.TodoPage, error) {
	fetch := func() (dom.TodoPage, error) {
		items, total, err := s.repo.ListPage(ctx, userID, listQueryFor(search, filter, page))
		if err != nil {
			return dom.TodoPage{}, err
		}
		return dom.TodoPage{Items: items, Total: total}, nil
	}
	if s.cache == nil {
		return fetch()
	}
	key := "page:" + strconv.FormatInt(userID, 10) + ":" + strings.ToLower(search) + ":" + filter + ":" + strconv.Itoa(page)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if p, err := s.cache.GetPage(ctx, userID, search, filter, page); err == nil && p != nil {
			return *p, nil
		}
		p, err := fetch()
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetPage(ctx, userID, search, filter, page, p)
		return p, nil
	})
	if err != nil {
		return dom.TodoPage{}, err
	}
	return v.(dom.TodoPage), nil
}

func (s *todoService) loadStats(ctx context.Context, userID int64) (dom.TodoStats, error) {
	if s.cache == nil {
		return s.repo.Stats(ctx, userID)
	}
	key := "stats:" + strconv.FormatInt(userID, 10)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if st, err := s.cache.GetStats(ctx, userID); err == nil && st != nil {
			return *st, nil
		}
		st, err := s.repo.Stats(ctx, userID)
		if err != nil {
			return nil, err
		}
		_ = s.cache.SetStats(ctx, userID, st)
		return st, nil
	})
	if err != nil {
		return dom.TodoStats{}, err
	}
	return v.(dom.TodoStats), nil
}

// ===== create =====

func (s *todoService) Create(ctx context.Context, userID int64, in CreateTodoInput) (dom.Todo, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return dom.Todo{}, err
	}
	if in.Cover != nil {
		if err := validateCover(in.Cover); err != nil {
			return dom.Todo{}, err
		}
	}

	var cover *string
	if in.Cover != nil {
		key, err := s.storeCover(ctx, in.Cover)
		if err != nil {
			return dom.Todo{}, err
		}
		cover = &key
	}

	t, err := s.repo.Create(ctx, dom.Todo{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		IsFinished:  false,
		Cover:       cover,
	})
	if err != nil {
		// The insert failed after the blob write; remove the blob so it
		// cannot leak.
		if cover != nil {
			s.deleteBlobBestEffort(ctx, *cover)
		}
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

// ===== get =====

func (s *todoService) Get(ctx context.Context, userID, id int64) (dom.Todo, error) {
	t, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	return t, nil
}

// ===== update =====

func (s *todoService) Update(ctx context.Context, userID, id int64, in UpdateTodoInput) (dom.Todo, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return dom.Todo{}, err
	}
	if in.Cover != nil {
		if err := validateCover(in.Cover); err != nil {
			return dom.Todo{}, err
		}
	}

	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return dom.Todo{}, err
	}

	// The new blob is written before any record mutation so a storage
	// failure aborts the whole operation.
	var newKey *string
	if in.Cover != nil {
		key, err := s.storeCover(ctx, in.Cover)
		if err != nil {
			return dom.Todo{}, err
		}
		newKey = &key
	}

	t, err := s.repo.Update(ctx, userID, id, title, strings.TrimSpace(in.Description))
	if err != nil {
		if newKey != nil {
			s.deleteBlobBestEffort(ctx, *newKey)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}

	if newKey != nil {
		t, err = s.repo.SetCover(ctx, userID, id, newKey)
		if err != nil {
			s.deleteBlobBestEffort(ctx, *newKey)
			if errors.Is(err, pgx.ErrNoRows) {
				return dom.Todo{}, ErrNotFound
			}
			return dom.Todo{}, err
		}
		if existing.Cover != nil {
			s.deleteBlobBestEffort(ctx, *existing.Cover)
		}
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

// ===== toggle =====

func (s *todoService) ToggleFinished(ctx context.Context, userID, id int64) (dom.Todo, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return dom.Todo{}, err
	}
	t, err := s.repo.SetFinished(ctx, userID, id, !existing.IsFinished)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

// ===== delete =====

func (s *todoService) Delete(ctx context.Context, userID, id int64) error {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	// A failed blob delete must not block record deletion; worst case is an
	// orphaned blob, which we log.
	if existing.Cover != nil {
		s.deleteBlobBestEffort(ctx, *existing.Cover)
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.invalidateCache(ctx, userID)
	return nil
}

// ===== cover only =====

func (s *todoService) UpdateCover(ctx context.Context, userID, id int64, cover *multipart.FileHeader) (dom.Todo, error) {
	if cover == nil {
		return dom.Todo{}, &ValidationError{Field: "cover", Message: "cover file is required"}
	}
	if err := validateCover(cover); err != nil {
		return dom.Todo{}, err
	}
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return dom.Todo{}, err
	}
	t, err := s.replaceCover(ctx, userID, id, existing.Cover, cover)
	if err != nil {
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

func (s *todoService) DeleteCover(ctx context.Context, userID, id int64) (dom.Todo, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if existing.Cover == nil {
		// Already absent: idempotent no-op.
		return existing, nil
	}
	s.deleteBlobBestEffort(ctx, *existing.Cover)
	t, err := s.repo.SetCover(ctx, userID, id, nil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

// CoverURL maps the todo's stored cover path to its public URL, nil when the
// todo has no cover.
func (s *todoService) CoverURL(t dom.Todo) *string {
	if t.Cover == nil {
		return nil
	}
	u := s.blobs.URL(*t.Cover)
	return &u
}

// ===== blob helpers =====

// storeCover writes the upload into the blob store and returns its key.
// A write failure aborts the calling operation before any record mutation.
func (s *todoService) storeCover(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open cover upload: %w", err)
	}
	defer f.Close()

	key := blob.CoverKey(fh.Filename)
	if err := s.blobs.Store(ctx, key, coverContentType(fh), f, fh.Size); err != nil {
		return "", fmt.Errorf("store cover: %w", err)
	}
	return key, nil
}

// replaceCover stores the new blob, points the record at it, then removes the
// old blob. The record never references an unstored file: the new blob exists
// before the record is updated, and the old one is only dropped afterwards.
func (s *todoService) replaceCover(ctx context.Context, userID, id int64, old *string, fh *multipart.FileHeader) (dom.Todo, error) {
	key, err := s.storeCover(ctx, fh)
	if err != nil {
		return dom.Todo{}, err
	}
	t, err := s.repo.SetCover(ctx, userID, id, &key)
	if err != nil {
		s.deleteBlobBestEffort(ctx, key)
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, err
	}
	if old != nil {
		s.deleteBlobBestEffort(ctx, *old)
	}
	return t, nil
}

func (s *todoService) deleteBlobBestEffort(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete cover blob", "key", key, "error", err)
	}
}

func (s *todoService) invalidateCache(ctx context.Context, userID int64) {
	if s.cache != nil {
		_ = s.cache.InvalidateUser(ctx, userID)
	}
}
