package repo

import (
	"context"
	"fmt"
	"strings"

	dom "github.com/ayuhutasoit2004/go-todo-app/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ListQuery describes the predicate and window for a list-page read. All
// reads are additionally scoped to the owning user.
type ListQuery struct {
	// Search matches title or description case-insensitively when non-empty.
	Search string
	// Finished constrains is_finished when non-nil.
	Finished *bool
	Limit    int
	Offset   int
}

type TodoRepo interface {
	Create(ctx context.Context, t dom.Todo) (dom.Todo, error)
	GetByID(ctx context.Context, userID, id int64) (dom.Todo, error)
	ListPage(ctx context.Context, userID int64, q ListQuery) ([]dom.Todo, int64, error)
	Update(ctx context.Context, userID, id int64, title, description string) (dom.Todo, error)
	SetFinished(ctx context.Context, userID, id int64, finished bool) (dom.Todo, error)
	SetCover(ctx context.Context, userID, id int64, cover *string) (dom.Todo, error)
	Delete(ctx context.Context, userID, id int64) error
	Stats(ctx context.Context, userID int64) (dom.TodoStats, error)
}

type PGTodoRepo struct {
	db DB
}

func NewPGTodoRepo(db DB) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

const todoColumns = "id, user_id, title, description, is_finished, cover, created_at, updated_at"

func scanTodo(row pgx.Row) (dom.Todo, error) {
	var t dom.Todo
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.IsFinished,
		&t.Cover, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.Todo) (dom.Todo, error) {
	query := `
		INSERT INTO todos (user_id, title, description, is_finished, cover)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + todoColumns
	return scanTodo(r.db.QueryRow(ctx, query, t.UserID, t.Title, t.Description, t.IsFinished, t.Cover))
}

func (r *PGTodoRepo) GetByID(ctx context.Context, userID, id int64) (dom.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE user_id = $1 AND id = $2`
	return scanTodo(r.db.QueryRow(ctx, query, userID, id))
}

// buildListWhere assembles the WHERE clause for ListPage; the same predicate
// feeds both the page select and the filtered count.
func buildListWhere(userID int64, q ListQuery) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if q.Finished != nil {
		args = append(args, *q.Finished)
		conds = append(conds, fmt.Sprintf("is_finished = $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func (r *PGTodoRepo) ListPage(ctx context.Context, userID int64, q ListQuery) ([]dom.Todo, int64, error) {
	where, args := buildListWhere(userID, q)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM todos WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM todos WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		todoColumns, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []dom.Todo
	for rows.Next() {
		var t dom.Todo
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.IsFinished,
			&t.Cover, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, t)
	}
	return list, total, rows.Err()
}

func (r *PGTodoRepo) Update(ctx context.Context, userID, id int64, title, description string) (dom.Todo, error) {
	query := `
		UPDATE todos SET title = $3, description = $4, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING ` + todoColumns
	return scanTodo(r.db.QueryRow(ctx, query, userID, id, title, description))
}

func (r *PGTodoRepo) SetFinished(ctx context.Context, userID, id int64, finished bool) (dom.Todo, error) {
	query := `
		UPDATE todos SET is_finished = $3, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING ` + todoColumns
	return scanTodo(r.db.QueryRow(ctx, query, userID, id, finished))
}

func (r *PGTodoRepo) SetCover(ctx context.Context, userID, id int64, cover *string) (dom.Todo, error) {
	query := `
		UPDATE todos SET cover = $3, updated_at = NOW()
		WHERE user_id = $1 AND id = $2
		RETURNING ` + todoColumns
	return scanTodo(r.db.QueryRow(ctx, query, userID, id, cover))
}

func (r *PGTodoRepo) Delete(ctx context.Context, userID, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM todos WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Stats counts the owner's whole collection, ignoring search and filter.
func (r *PGTodoRepo) Stats(ctx context.Context, userID int64) (dom.TodoStats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_finished)
		FROM todos WHERE user_id = $1`
	var s dom.TodoStats
	if err := r.db.QueryRow(ctx, query, userID).Scan(&s.Total, &s.Finished); err != nil {
		return dom.TodoStats{}, err
	}
	s.Unfinished = s.Total - s.Finished
	return s, nil
}
