package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics/internal/carrier"
)

func aliasesArray(aliases []string) pgtype.Array[string] {
	return pgtype.Array[string]{
		Elements: aliases,
		Valid:    true,
		Dims:     []pgtype.ArrayDimension{{Length: int32(len(aliases)), LowerBound: 1}},
	}
}

func TestCarriersRepo_SeedIfEmpty_SkipsWhenPopulated(t *testing.T) {
	mock, adapter := newMockDB(t)
	defer mock.Close()
	repo := NewCarriersRepo(adapter)

	mock.ExpectQuery(`SELECT count\(\*\) FROM carriers`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))

	require.NoError(t, repo.SeedIfEmpty(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarriersRepo_ListCachesUntilWrite(t *testing.T) {
	mock, adapter := newMockDB(t)
	defer mock.Close()
	repo := NewCarriersRepo(adapter)
	ctx := context.Background()

	rows := pgxmock.NewRows([]string{"id", "nombre_canonico", "aliases", "regex_pattern", "es_externo", "es_pickup", "activo", "prioridad_regex"}).
		AddRow(int64(1), "ANDREANI", aliasesArray([]string{"andreani"}), "andreani", true, false, true, 10)
	mock.ExpectQuery(`SELECT id, nombre_canonico, aliases`).WillReturnRows(rows)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ANDREANI", list[0].NombreCanonico)

	list2, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, list, list2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarriersRepo_FindByName_NotFound(t *testing.T) {
	mock, adapter := newMockDB(t)
	defer mock.Close()
	repo := NewCarriersRepo(adapter)

	mock.ExpectQuery(`SELECT id FROM carriers WHERE nombre_canonico`).
		WithArgs("PICKUP").
		WillReturnError(pgx.ErrNoRows)

	id, ok, err := repo.FindByName(context.Background(), "PICKUP")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, id)
}

func TestCarriersRepo_Create_DuplicateMapsToAppError(t *testing.T) {
	mock, adapter := newMockDB(t)
	defer mock.Close()
	repo := NewCarriersRepo(adapter)

	mock.ExpectQuery(`INSERT INTO carriers`).WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), carrier.Carrier{NombreCanonico: "PICKUP"})
	require.Error(t, err)
}
