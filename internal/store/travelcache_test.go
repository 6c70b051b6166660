package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logistics/internal/matrix"
)

func TestTravelCacheRepo_LookupPair_Miss(t *testing.T) {
	mock, adapter := newMockDB(t)
	defer mock.Close()
	repo := NewTravelCacheRepo(adapter)

	mock.ExpectQuery(`SELECT duration_sec FROM distance_matrix_cache`).
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := repo.LookupPair(context.Background(),
		matrix.Point{Lat: -32.91973, Lng: -68.81829},
		matrix.Point{Lat: -32.89, Lng: -68.82})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTravelCacheRepo_LookupPair_Hit(t *testing.T) {
	mock, adapter := newMockDB(t)
	defer mock.Close()
	repo := NewTravelCacheRepo(adapter)

	rows := pgxmock.NewRows([]string{"duration_sec"}).AddRow(600)
	mock.ExpectQuery(`SELECT duration_sec FROM distance_matrix_cache`).WillReturnRows(rows)

	minutes, ok, err := repo.LookupPair(context.Background(),
		matrix.Point{Lat: -32.91973, Lng: -68.81829},
		matrix.Point{Lat: -32.89, Lng: -68.82})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10.0, minutes)
}

func TestTravelCacheRepo_SavePair(t *testing.T) {
	mock, adapter := newMockDB(t)
	defer mock.Close()
	repo := NewTravelCacheRepo(adapter).WithTTL(0) // zero keeps the default

	mock.ExpectExec(`INSERT INTO distance_matrix_cache`).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.SavePair(context.Background(),
		matrix.Point{Lat: -32.91973, Lng: -68.81829},
		matrix.Point{Lat: -32.89, Lng: -68.82}, 600, "ors")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
