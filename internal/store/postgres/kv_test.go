package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rollbook/internal/errs"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestKV_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewKV(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key=\$1`).
		WithArgs("attendance").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(`[]`))
	v, found, err := s.Get(ctx, "attendance")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `[]`, v)

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key=\$1`).
		WithArgs("current_user").
		WillReturnError(pgx.ErrNoRows)
	_, found, err = s.Get(ctx, "current_user")
	require.NoError(t, err)
	require.False(t, found)

	mock.ExpectQuery(`SELECT value FROM kv_store WHERE key=\$1`).
		WithArgs("users").
		WillReturnError(errors.New("conn reset"))
	_, _, err = s.Get(ctx, "users")
	require.ErrorIs(t, err, errs.ErrStorage)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKV_Set(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewKV(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO kv_store \(key, value, updated_at\) VALUES \(\$1, \$2, now\(\)\) ON CONFLICT \(key\) DO UPDATE SET value=EXCLUDED.value, updated_at=now\(\)`).
		WithArgs("users", `[]`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.Set(ctx, "users", `[]`))

	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs("users", `[]`).
		WillReturnError(errors.New("disk full"))
	require.ErrorIs(t, s.Set(ctx, "users", `[]`), errs.ErrStorage)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKV_Remove_Idempotent(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewKV(db)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM kv_store WHERE key=\$1`).
		WithArgs("current_user").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM kv_store WHERE key=\$1`).
		WithArgs("current_user").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.Remove(ctx, "current_user"))
	require.NoError(t, s.Remove(ctx, "current_user"))
	require.NoError(t, mock.ExpectationsWereMet())
}
