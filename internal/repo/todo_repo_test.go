package repo

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "github.com/ayuhutasoit2004/go-todo-app/internal/domain"
)

func newMockRepo(t *testing.T) (*PGTodoRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPGTodoRepo(mock), mock
}

func todoRows(todos ...dom.Todo) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "user_id", "title", "description", "is_finished", "cover", "created_at", "updated_at",
	})
	for _, t := range todos {
		rows.AddRow(t.ID, t.UserID, t.Title, t.Description, t.IsFinished, t.Cover, t.CreatedAt, t.UpdatedAt)
	}
	return rows
}

func TestBuildListWhere(t *testing.T) {
	fin := true

	where, args := buildListWhere(7, ListQuery{})
	assert.Equal(t, "user_id = $1", where)
	assert.Equal(t, []any{int64(7)}, args)

	where, args = buildListWhere(7, ListQuery{Search: "milk"})
	assert.Equal(t, "user_id = $1 AND (title ILIKE $2 OR description ILIKE $2)", where)
	assert.Equal(t, []any{int64(7), "%milk%"}, args)

	where, args = buildListWhere(7, ListQuery{Search: "milk", Finished: &fin})
	assert.Equal(t, "user_id = $1 AND (title ILIKE $2 OR description ILIKE $2) AND is_finished = $3", where)
	assert.Equal(t, []any{int64(7), "%milk%", true}, args)
}

func TestGetByID_ScopedToOwner(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, title, description, is_finished, cover, created_at, updated_at FROM todos WHERE user_id = $1 AND id = $2`)).
		WithArgs(int64(1), int64(42)).
		WillReturnRows(todoRows(dom.Todo{ID: 42, UserID: 1, Title: "t", CreatedAt: now, UpdatedAt: now}))

	got, err := r.GetByID(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NoRows(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM todos WHERE user_id").
		WithArgs(int64(1), int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.GetByID(context.Background(), 1, 42)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestListPage_CountsAndSelectsWithSearch(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM todos WHERE user_id = $1 AND (title ILIKE $2 OR description ILIKE $2)`)).
		WithArgs(int64(1), "%milk%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`)).
		WithArgs(int64(1), "%milk%", 20, 0).
		WillReturnRows(todoRows(dom.Todo{ID: 5, UserID: 1, Title: "Buy milk", CreatedAt: now, UpdatedAt: now}))

	items, total, err := r.ListPage(context.Background(), 1, ListQuery{Search: "milk", Limit: 20, Offset: 0})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPage_FinishedConstraint(t *testing.T) {
	r, mock := newMockRepo(t)
	fin := false

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM todos WHERE user_id = $1 AND is_finished = $2`)).
		WithArgs(int64(1), false).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $3 OFFSET $4`)).
		WithArgs(int64(1), false, 20, 20).
		WillReturnRows(todoRows())

	items, total, err := r.ListPage(context.Background(), 1, ListQuery{Finished: &fin, Limit: 20, Offset: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NoRowsAffectedMapsToErrNoRows(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM todos WHERE user_id = $1 AND id = $2`)).
		WithArgs(int64(1), int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := r.Delete(context.Background(), 1, 42)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_Success(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM todos`)).
		WithArgs(int64(1), int64(42)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, r.Delete(context.Background(), 1, 42))
}

func TestStats_DerivesUnfinished(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_finished)`)).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count", "finished"}).AddRow(int64(10), int64(4)))

	s, err := r.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 10, s.Total)
	assert.EqualValues(t, 4, s.Finished)
	assert.EqualValues(t, 6, s.Unfinished)
	assert.Equal(t, s.Total, s.Finished+s.Unfinished)
}

func TestSetCover_ClearsWithNil(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE todos SET cover = $3, updated_at = NOW()`)).
		WithArgs(int64(1), int64(42), (*string)(nil)).
		WillReturnRows(todoRows(dom.Todo{ID: 42, UserID: 1, Title: "t", CreatedAt: now, UpdatedAt: now}))

	got, err := r.SetCover(context.Background(), 1, 42, nil)
	require.NoError(t, err)
	assert.Nil(t, got.Cover)
}
